package watcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NamanLimani/guardrail-ai/internal/models"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) HandleFile(_ context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.paths...)
	sort.Strings(out)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := New([]string{dir}, []string{".txt"}, true, rec, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	target := filepath.Join(sub, "f.txt")
	for i := 0; i < 3; i++ {
		writeFile(t, target, "hello")
	}
	writeFile(t, filepath.Join(dir, "skip.bin"), "x")
	writeFile(t, filepath.Join(dir, ".partial.txt"), "x")

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	time.Sleep(150 * time.Millisecond)
	got := rec.snapshot()
	if len(got) != 1 || got[0] != target {
		t.Errorf("handled = %v, want only %s once", got, target)
	}
}

func TestWatcher_NewDirectoryIsSynced(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New([]string{dir}, nil, true, rec, WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Build the directory elsewhere and move it in, like a drag-and-drop.
	staging := filepath.Join(t.TempDir(), "batch")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(staging, "a.txt"), "a")
	if err := os.Rename(staging, filepath.Join(dir, "batch")); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(dir, "batch", "a.txt")
	waitFor(t, func() bool {
		for _, p := range rec.snapshot() {
			if p == want {
				return true
			}
		}
		return false
	})
}

func TestWatcher_SyncExisting(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "top.md"), "x")
	writeFile(t, filepath.Join(nested, "deep.md"), "x")
	writeFile(t, filepath.Join(dir, "other.csv"), "x")

	tests := []struct {
		name      string
		recursive bool
		want      []string
	}{
		{"recursive", true, []string{filepath.Join(nested, "deep.md"), filepath.Join(dir, "top.md")}},
		{"flat", false, []string{filepath.Join(dir, "top.md")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			w := New([]string{dir}, []string{"md"}, tt.recursive, rec)
			w.SyncExisting(context.Background())
			got := rec.snapshot()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestWatcher_StartCreatesRoots(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox", "u1")
	w := New([]string{root}, nil, false, &recorder{})
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path string
		exts []string
		want bool
	}{
		{"a.PDF", []string{".pdf"}, true},
		{"a.pdf", []string{"pdf"}, true},
		{"a.docx", []string{".pdf", ".txt"}, false},
		{"noext", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.exts); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v", tt.path, tt.exts, got)
		}
	}
}

type fakeAccepter struct {
	mu    sync.Mutex
	calls []string
	body  []string
	err   error
}

func (f *fakeAccepter) Accept(_ context.Context, owner, filename, contentType string, r io.Reader) (*models.Document, error) {
	data, _ := io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, owner+"/"+filename+"/"+contentType)
	f.body = append(f.body, string(data))
	if f.err != nil {
		return nil, f.err
	}
	return &models.Document{ID: "doc", OwnerID: owner, Filename: filename}, nil
}

func TestInbox_IngestsOncePerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "first")

	acc := &fakeAccepter{}
	in := NewInbox(acc, "inbox", false, nil)
	in.HandleFile(context.Background(), path)
	in.HandleFile(context.Background(), path)
	if len(acc.calls) != 1 || !strings.HasPrefix(acc.calls[0], "inbox/notes.txt/") || acc.body[0] != "first" {
		t.Fatalf("calls = %v, body = %v", acc.calls, acc.body)
	}

	writeFile(t, path, "second version")
	in.HandleFile(context.Background(), path)
	if len(acc.calls) != 2 || acc.body[1] != "second version" {
		t.Errorf("changed file should be ingested again: %v", acc.body)
	}
}

func TestInbox_RemoveAfterIngest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	writeFile(t, path, "%PDF-1.4")

	acc := &fakeAccepter{}
	NewInbox(acc, "u1", true, nil).HandleFile(context.Background(), path)
	if len(acc.calls) != 1 || acc.calls[0] != "u1/scan.pdf/application/pdf" {
		t.Fatalf("calls = %v", acc.calls)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should be removed after ingest, stat err = %v", err)
	}
}

func TestInbox_FailedAcceptIsRetried(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "x")

	acc := &fakeAccepter{err: errors.New("storage down")}
	in := NewInbox(acc, "u1", true, nil)
	in.HandleFile(context.Background(), path)
	acc.err = nil
	in.HandleFile(context.Background(), path)
	if len(acc.calls) != 2 {
		t.Errorf("calls = %v, want a retry", acc.calls)
	}
	in.HandleFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
}
