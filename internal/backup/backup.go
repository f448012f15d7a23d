// Package backup provides backup and restore for the ljal run store.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/IrisYanfGuo/exam/internal/store"
)

// DirName is the backup directory inside the store directory.
const DirName = "backups"

// DefaultDir returns <storeDir>/backups.
func DefaultDir(storeDir string) string {
	return filepath.Join(storeDir, DirName)
}

// GeneratePath creates a timestamped backup filename in dir.
func GeneratePath(dir string, now time.Time) string {
	ts := now.UTC().Format("20060102-150405.000000")
	return filepath.Join(dir, fmt.Sprintf("%s%s%s", filePrefix, ts, fileSuffix))
}

// Backup writes every run in rs, curves included, to path.
func Backup(ctx context.Context, rs store.RunStore, path string) (*Header, error) {
	summaries, err := rs.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]store.Run, 0, len(summaries))
	for _, s := range summaries {
		run, err := rs.GetRun(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get run %s: %w", s.ID, err)
		}
		runs = append(runs, *run)
	}

	return Write(path, runs, time.Now())
}

// RestoreMode controls how restore handles existing runs.
type RestoreMode string

const (
	// RestoreMerge skips runs whose ID already exists (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace deletes every existing run before restoring.
	RestoreReplace RestoreMode = "replace"
)

// Valid reports whether m is a known restore mode.
func (m RestoreMode) Valid() bool {
	return m == RestoreMerge || m == RestoreReplace
}

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
	Removed  int `json:"removed"`
}

// Restore loads the runs in the backup at path into rs.
func Restore(ctx context.Context, rs store.RunStore, path string, mode RestoreMode) (*RestoreResult, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid restore mode: %q (valid: merge, replace)", mode)
	}

	_, runs, err := Read(path)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}

	if mode == RestoreReplace {
		existing, err := rs.ListRuns(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		for _, r := range existing {
			if err := rs.DeleteRun(ctx, r.ID); err != nil {
				return nil, fmt.Errorf("failed to remove run %s: %w", r.ID, err)
			}
			result.Removed++
		}
	}

	for _, run := range runs {
		if mode == RestoreMerge {
			_, err := rs.GetRun(ctx, run.ID)
			if err == nil {
				result.Skipped++
				continue
			}
			if !errors.Is(err, store.ErrRunNotFound) {
				return nil, fmt.Errorf("failed to check existing run %s: %w", run.ID, err)
			}
		}

		if _, err := rs.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to restore run %s: %w", run.ID, err)
		}
		result.Restored++
	}

	return result, nil
}
