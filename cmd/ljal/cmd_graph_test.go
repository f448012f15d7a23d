package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGraphDefaultFormatIsDOT(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, tmpDir, "graph")
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	for _, want := range []string{"digraph ljal {", "a1 -> a2;", "a1 -> a3;", "a4 ["} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}
}

func TestGraphJSON(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	for _, args := range [][]string{
		{"graph", "--format", "json"},
		{"--json", "graph"},
	} {
		out, err := execute(t, tmpDir, args...)
		if err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}

		var result struct {
			Nodes []struct {
				ID   int    `json:"id"`
				Role string `json:"role"`
				Rows int    `json:"rows"`
				Cols int    `json:"cols"`
			} `json:"nodes"`
			Edges []struct {
				Source int `json:"source"`
				Target int `json:"target"`
			} `json:"edges"`
		}
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if len(result.Nodes) != 5 || len(result.Edges) != 2 {
			t.Fatalf("%v: got %d nodes, %d edges", args, len(result.Nodes), len(result.Edges))
		}
		if result.Nodes[1].Rows != 4 || result.Nodes[1].Cols != 16 || result.Nodes[1].Role != "joint" {
			t.Errorf("agent 1 = %+v, want joint 4x16", result.Nodes[1])
		}
		if result.Nodes[0].Cols != 1 || result.Nodes[0].Role != "independent" {
			t.Errorf("agent 0 = %+v, want independent 4x1", result.Nodes[0])
		}
	}
}

func TestGraphFromConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	cfgPath := filepath.Join(tmpDir, "ring.yaml")
	content := "graph:\n  agents: 3\n  arcs: [[0, 1], [1, 2], [2, 0]]\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, tmpDir, "--config", cfgPath, "graph")
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	for _, want := range []string{"a0 -> a1;", "a1 -> a2;", "a2 -> a0;"} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}
}

func TestGraphInvalidArcs(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	cfgPath := filepath.Join(tmpDir, "loop.yaml")
	if err := os.WriteFile(cfgPath, []byte("graph:\n  agents: 2\n  arcs: [[1, 1]]\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, tmpDir, "--config", cfgPath, "graph")
	if err == nil || !strings.Contains(err.Error(), "self-loop") {
		t.Errorf("expected self-loop error, got %v", err)
	}
}

func TestGraphUnsupportedFormat(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	_, err := execute(t, tmpDir, "graph", "--format", "svg")
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}
