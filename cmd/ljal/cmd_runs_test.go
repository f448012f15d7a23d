package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// saveRun runs a small experiment with --save and returns the run id.
func saveRun(t *testing.T, tmpDir, name string) string {
	t.Helper()
	result := runExperimentJSON(t, tmpDir, "--trials", "2", "--rounds", "10", "--name", name, "--save")
	if result.ID == "" {
		t.Fatal("experiment --save returned no id")
	}
	return result.ID
}

func listRuns(t *testing.T, tmpDir string) []map[string]interface{} {
	t.Helper()
	out, err := execute(t, tmpDir, "--json", "runs", "list")
	if err != nil {
		t.Fatalf("runs list failed: %v", err)
	}
	var result struct {
		Runs  []map[string]interface{} `json:"runs"`
		Count int                      `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if result.Count != len(result.Runs) {
		t.Errorf("count = %d, runs = %d", result.Count, len(result.Runs))
	}
	return result.Runs
}

func TestRunsList_Empty(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, tmpDir, "runs", "list")
	if err != nil {
		t.Fatalf("runs list failed: %v", err)
	}
	if !strings.Contains(out, "No runs saved") {
		t.Errorf("unexpected output: %q", out)
	}

	if runs := listRuns(t, tmpDir); len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestRunsList(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	first := saveRun(t, tmpDir, "first")
	second := saveRun(t, tmpDir, "second")

	runs := listRuns(t, tmpDir)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0]["id"] != second || runs[1]["id"] != first {
		t.Errorf("runs not newest first: %v, %v", runs[0]["id"], runs[1]["id"])
	}
	if _, ok := runs[0]["mean"]; ok {
		t.Error("list should omit curves")
	}

	out, err := execute(t, tmpDir, "runs", "list")
	if err != nil {
		t.Fatalf("runs list failed: %v", err)
	}
	for _, want := range []string{"ID", "FINAL", first, second, "first", "second"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRunsShow(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	id := saveRun(t, tmpDir, "shown")

	out, err := execute(t, tmpDir, "runs", "show", id)
	if err != nil {
		t.Fatalf("runs show failed: %v", err)
	}
	for _, want := range []string{
		"Run:      " + id,
		"Name:     shown",
		"Agents:   5",
		"Trials:   2 x 10 rounds (seed 1)",
		"Final:    1.000 ± 0.000",
		"Configuration:",
		"ev_mode: visit-weighted",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunsShow_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	_, err := execute(t, tmpDir, "runs", "show", "missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestRunsDelete(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	id := saveRun(t, tmpDir, "doomed")

	out, err := execute(t, tmpDir, "runs", "delete", id)
	if err != nil {
		t.Fatalf("runs delete failed: %v", err)
	}
	if !strings.Contains(out, "Deleted run "+id) {
		t.Errorf("unexpected output: %q", out)
	}
	if runs := listRuns(t, tmpDir); len(runs) != 0 {
		t.Errorf("expected no runs after delete, got %d", len(runs))
	}

	if _, err := execute(t, tmpDir, "runs", "delete", id); err == nil {
		t.Error("deleting twice should fail")
	}
}

func TestRunsChart(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	id := saveRun(t, tmpDir, "charted")
	chartPath := filepath.Join(tmpDir, "chart.html")

	out, err := execute(t, tmpDir, "runs", "chart", id, "-o", chartPath)
	if err != nil {
		t.Fatalf("runs chart failed: %v", err)
	}
	if !strings.Contains(out, "Chart written to "+chartPath) {
		t.Errorf("unexpected output: %q", out)
	}
	data, err := os.ReadFile(chartPath)
	if err != nil {
		t.Fatalf("chart not written: %v", err)
	}
	if !strings.Contains(string(data), "charted") {
		t.Error("chart should carry the run name")
	}
}

func TestRunsExportImport(t *testing.T) {
	srcDir := t.TempDir()
	isolateHome(t, srcDir)

	saveRun(t, srcDir, "a")
	saveRun(t, srcDir, "b")

	exportPath := filepath.Join(srcDir, "runs.jsonl")
	out, err := execute(t, srcDir, "runs", "export", "-o", exportPath)
	if err != nil {
		t.Fatalf("runs export failed: %v", err)
	}
	if !strings.Contains(out, "Exported 2 runs") {
		t.Errorf("unexpected output: %q", out)
	}

	stdout, err := execute(t, srcDir, "runs", "export")
	if err != nil {
		t.Fatalf("runs export to stdout failed: %v", err)
	}
	if lines := strings.Count(stdout, "\n"); lines != 2 {
		t.Errorf("stdout export has %d lines, want 2", lines)
	}

	dstDir := t.TempDir()
	out, err = execute(t, dstDir, "--json", "runs", "import", exportPath)
	if err != nil {
		t.Fatalf("runs import failed: %v", err)
	}
	var result map[string]int
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if result["imported"] != 2 {
		t.Errorf("imported = %d, want 2", result["imported"])
	}
	if runs := listRuns(t, dstDir); len(runs) != 2 {
		t.Errorf("expected 2 imported runs, got %d", len(runs))
	}
}

func TestRunsImport_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, err := execute(t, tmpDir, "runs", "import", filepath.Join(tmpDir, "nope.jsonl")); err == nil {
		t.Error("expected error for missing import file")
	}
}
