package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()

	w, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("new watcher should not be running")
	}

	if err := w.Start(dir); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !w.IsRunning() {
		t.Error("watcher should be running after Start()")
	}
	if err := w.Start(dir); err == nil {
		t.Error("second Start() should fail")
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("watcher should not be running after Stop()")
	}
	if _, ok := <-w.Events(); ok {
		t.Error("Events() should be closed after Stop()")
	}
}

func TestWatcher_StartMissingDir(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer w.Stop()

	if err := w.Start(t.TempDir(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Start() on a missing directory should fail")
	}
	if w.IsRunning() {
		t.Error("failed Start() left the watcher running")
	}
}

func TestWatcher_Events(t *testing.T) {
	dir := t.TempDir()

	w, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer w.Stop()
	if err := w.Start(dir); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	path := filepath.Join(dir, "pending")
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		if ev.Path != path || ev.Op != OpCreate {
			t.Errorf("event = %+v, want create of %s", ev, path)
		}
	case err := <-w.Errors():
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for a created file")
	}
}

func TestDebounce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan Event)
	out := Debounce(ctx, in, 50*time.Millisecond)

	for _, name := range []string{"a", "b", "c"} {
		in <- Event{Path: name, Op: OpModify}
	}

	select {
	case batch := <-out:
		if len(batch) != 3 || batch[0].Path != "a" || batch[2].Path != "c" {
			t.Errorf("batch = %+v, want a, b, c together", batch)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch after the quiet period")
	}

	in <- Event{Path: "d", Op: OpDelete}
	close(in)

	batch, ok := <-out
	if !ok || len(batch) != 1 || batch[0].Path != "d" {
		t.Errorf("final batch = %+v (ok=%v), want d flushed on close", batch, ok)
	}
	if _, ok := <-out; ok {
		t.Error("output should close after input closes")
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{Op(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
