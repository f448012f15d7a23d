package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DBFileName is the database file inside a store directory.
const DBFileName = "ljal.db"

// ResolveDir expands a leading "~" to the user's home directory and makes
// dir absolute.
func ResolveDir(dir string) (string, error) {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(homeDir, strings.TrimPrefix(dir, "~"))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}

// EnsureDir resolves dir and creates it if it doesn't exist.
func EnsureDir(dir string) (string, error) {
	resolved, err := ResolveDir(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(resolved, 0755); err != nil {
		return "", fmt.Errorf("failed to create store directory: %w", err)
	}
	return resolved, nil
}
