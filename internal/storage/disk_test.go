package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	upload := filepath.Join(dir, "uploads", "doc1_report.pdf")
	nested := filepath.Join(dir, "uploads", "inbox", "doc2_notes.txt")
	db := filepath.Join(dir, "guardrail.db")
	for path, body := range map[string]string{upload: "hello", nested: "abc", db: "xy"} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{db}, 2},
		{"nested directory", []string{filepath.Join(dir, "uploads")}, 8},
		{"file and directory", []string{db, filepath.Join(dir, "uploads")}, 10},
		{"missing path skipped", []string{db, filepath.Join(dir, "missing")}, 2},
		{"empty path skipped", []string{"", upload}, 5},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}
