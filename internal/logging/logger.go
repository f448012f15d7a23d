// Package logging provides leveled logging and round tracing for ljal.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A RoundLogger for per-round JSONL traces (<dir>/rounds.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level the learner
// logs every round.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Round is one traced learning round.
type Round struct {
	Trial       int     `json:"trial"`
	Step        int     `json:"step"`
	Actions     []int   `json:"actions"`
	Reward      float64 `json:"reward"`
	Temperature float64 `json:"temperature"`
}

// RoundLogger appends Round records to a JSONL file.
// It is safe for concurrent use. A nil RoundLogger is safe to use;
// all methods are no-ops on nil receiver.
type RoundLogger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewRoundLogger creates a round logger writing to dir/rounds.jsonl.
// At "info" level (the default) it returns nil and no file is created.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewRoundLogger(dir string, level string) *RoundLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "rounds.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &RoundLogger{file: f, path: path}
}

// Path returns the trace file path, or "" for a nil logger.
func (rl *RoundLogger) Path() string {
	if rl == nil {
		return ""
	}
	return rl.path
}

// Log writes r as a single JSONL line with a "time" field added.
// The caller's Actions slice is copied before encoding.
func (rl *RoundLogger) Log(r Round) {
	if rl == nil {
		return
	}

	entry := struct {
		Round
		Time string `json:"time"`
	}{
		Round: r,
		Time:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	entry.Actions = append([]int(nil), r.Actions...)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.file == nil {
		return
	}
	_, _ = rl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (rl *RoundLogger) Close() {
	if rl == nil {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.file != nil {
		rl.file.Close()
		rl.file = nil
	}
}
