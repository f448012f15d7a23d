// Package store defines the RunStore interface for saving and browsing
// experiment results.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is a saved experiment: its parameters, the configuration it ran
// with, and the averaged reward curve.
type Run struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Config is the effective configuration as YAML.
	Config string `json:"config,omitempty"`

	Agents  int     `json:"agents"`
	Actions int     `json:"actions"`
	Alpha   float64 `json:"alpha"`
	Rounds  int     `json:"rounds"`
	Trials  int     `json:"trials"`
	Seed    uint64  `json:"seed"`

	FinalMean   float64 `json:"final_mean"`
	FinalStdDev float64 `json:"final_stddev"`

	// Mean and StdDev are indexed by step. ListRuns leaves them empty.
	Mean   []float64 `json:"mean,omitempty"`
	StdDev []float64 `json:"stddev,omitempty"`
}

// RunStore persists experiment runs.
type RunStore interface {
	// SaveRun stores run, assigning a new ID and creation time when they
	// are empty, and returns the ID. Saving an existing ID replaces it.
	SaveRun(ctx context.Context, run Run) (string, error)

	// GetRun returns the run with its curve, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns every run without curves, newest first.
	ListRuns(ctx context.Context) ([]Run, error)

	// DeleteRun removes a run and its curve, or returns ErrRunNotFound.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}
