package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IrisYanfGuo/exam/internal/store"
)

func sampleRuns() []store.Run {
	return []store.Run{
		{ID: "r1", Name: "one", Rounds: 2, Mean: []float64{0.5, 1}, StdDev: []float64{0, 0}},
		{ID: "r2", Name: "two", Rounds: 1, Mean: []float64{0.25}, StdDev: []float64{0.1}},
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "b.json.gz")
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	header, err := Write(path, sampleRuns(), created)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if header.Version != FormatVersion || header.RunCount != 2 || header.Steps != 3 {
		t.Errorf("header = %+v", header)
	}
	if !strings.HasPrefix(header.Checksum, "sha256:") {
		t.Errorf("checksum = %q, want sha256 prefix", header.Checksum)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}

	readHeader, runs, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !readHeader.CreatedAt.Equal(created) || readHeader.Checksum != header.Checksum {
		t.Errorf("read header = %+v, want %+v", readHeader, header)
	}
	if len(runs) != 2 || runs[0].ID != "r1" || runs[1].Mean[0] != 0.25 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestReadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.json.gz")
	if _, err := Write(path, sampleRuns(), time.Now()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	header, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if header.RunCount != 2 {
		t.Errorf("RunCount = %d, want 2", header.RunCount)
	}
}

func TestVerify_DetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.json.gz")
	if _, err := Write(path, sampleRuns(), time.Now()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := Verify(path); err != nil {
		t.Fatalf("Verify() on intact file error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	err = Verify(path)
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Verify() error = %v, want checksum mismatch", err)
	}
	if _, _, err := Read(path); err == nil {
		t.Error("Read() should reject a corrupted payload")
	}
}

func TestReadHeader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "", "reading header line"},
		{"not json", "hello\n", "parsing header"},
		{"future version", `{"version":99}` + "\n", "unsupported backup version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json.gz")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := ReadHeader(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ReadHeader() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
