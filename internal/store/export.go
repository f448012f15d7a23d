package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ExportJSONL writes every run in s, curves included, to w as one JSON
// object per line, newest first.
func ExportJSONL(ctx context.Context, s RunStore, w io.Writer) (int, error) {
	// List first; GetRun per ID fills in the curves.
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	for i, r := range runs {
		run, err := s.GetRun(ctx, r.ID)
		if err != nil {
			return i, fmt.Errorf("failed to get run %s: %w", r.ID, err)
		}
		if err := enc.Encode(run); err != nil {
			return i, fmt.Errorf("failed to encode run %s: %w", r.ID, err)
		}
	}
	return len(runs), nil
}

// ImportJSONL reads runs written by ExportJSONL and saves them into s,
// keeping their IDs. Blank lines are skipped.
func ImportJSONL(ctx context.Context, s RunStore, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	// Curves of long runs make long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	lineNum, imported := 0, 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var run Run
		if err := json.Unmarshal(line, &run); err != nil {
			return imported, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if _, err := s.SaveRun(ctx, run); err != nil {
			return imported, fmt.Errorf("line %d: failed to save run %s: %w", lineNum, run.ID, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("failed to read runs: %w", err)
	}
	return imported, nil
}
