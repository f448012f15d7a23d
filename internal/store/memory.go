package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRunStore implements RunStore for testing and development.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string]Run)}
}

// SaveRun stores a copy of run.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, run Run) (string, error) {
	if len(run.Mean) != len(run.StdDev) {
		return "", fmt.Errorf("curve length mismatch: %d means, %d deviations", len(run.Mean), len(run.StdDev))
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.Mean = slices.Clone(run.Mean)
	run.StdDev = slices.Clone(run.StdDev)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return run.ID, nil
}

// GetRun returns a copy of the run with ID id.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	run.Mean = slices.Clone(run.Mean)
	run.StdDev = slices.Clone(run.StdDev)
	return &run, nil
}

// ListRuns returns every run without curves, newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		run.Mean, run.StdDev = nil, nil
		runs = append(runs, run)
	}
	slices.SortFunc(runs, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return runs, nil
}

// DeleteRun removes the run with ID id.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}
