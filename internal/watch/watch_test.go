package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestWatcher_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "old.txt")
	amended := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(original, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(amended, []byte("b"), 0644))

	changed := make(chan struct{}, 1)
	w, err := New([]string{original, amended}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(amended, []byte("b changed"), 0644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change callback after write")
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.txt")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(watched, []byte("a"), 0644))

	changed := make(chan struct{}, 1)
	w, err := New([]string{watched}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("noise"), 0644))

	select {
	case <-changed:
		t.Fatal("callback fired for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_FiresOnRenameReplace(t *testing.T) {
	// Editors save by writing a temp file and renaming it over the
	// original.
	dir := t.TempDir()
	watched := filepath.Join(dir, "bill.txt")
	require.NoError(t, os.WriteFile(watched, []byte("v1"), 0644))

	changed := make(chan struct{}, 1)
	w, err := New([]string{watched}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	tmp := filepath.Join(dir, ".bill.txt.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0644))
	require.NoError(t, os.Rename(tmp, watched))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change callback after rename replace")
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "nope", "file.txt")}, func() {}, discardLogger())
	require.Error(t, err)
}
