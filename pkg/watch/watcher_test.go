package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlock-solve/gridlock/pkg/common/logging"
	"github.com/gridlock-solve/gridlock/pkg/gridlock"
)

const (
	classicPuzzle = "530070000600195000098000060800060003400803001700020006060000280000419005000080079"
	classicSolved = "534678912672195348198342567859761423426853791713924856961537284287419635345286179"
)

func newTestWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	log := logging.New(io.Discard, logging.LevelError, logging.FormatText)
	engine := gridlock.NewEngine(gridlock.WithWorkers(2), gridlock.WithLogger(log))
	w, err := New(dir, ".sdk", 50*time.Millisecond, engine, log)
	require.NoError(t, err)
	w.Solved = make(chan string, 8)
	return w
}

func waitSolved(t *testing.T, w *Watcher) string {
	t.Helper()
	select {
	case path := <-w.Solved:
		return path
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for a solution file")
		return ""
	}
}

func TestNewRequiresDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), ".sdk", 0, gridlock.NewEngine(), nil)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file, ".sdk", 0, gridlock.NewEngine(), nil)
	assert.Error(t, err)
}

func TestWatchSolvesDroppedFile(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	// Let the event loop start before dropping the file.
	time.Sleep(100 * time.Millisecond)
	puzzle := filepath.Join(dir, "classic.sdk")
	require.NoError(t, os.WriteFile(puzzle, []byte(classicPuzzle+"\n"), 0o644))

	out := waitSolved(t, w)
	assert.Equal(t, filepath.Join(dir, "classic.solution"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, classicSolved+"\n", string(data))

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestSweepSolvesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "early.sdk"), []byte(classicPuzzle), 0o644))

	w := newTestWatcher(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	out := waitSolved(t, w)
	assert.Equal(t, filepath.Join(dir, "early.solution"), out)
}

func TestWatchIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(classicPuzzle), 0o644))

	select {
	case path := <-w.Solved:
		t.Fatalf("unexpected solve of %s", path)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatchSkipsBadPuzzles(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sdk"), []byte("not a puzzle"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.sdk"), []byte(classicPuzzle), 0o644))

	// Only the good puzzle produces a solution file.
	out := waitSolved(t, w)
	assert.Equal(t, filepath.Join(dir, "good.solution"), out)
	_, err := os.Stat(filepath.Join(dir, "bad.solution"))
	assert.True(t, os.IsNotExist(err))
}

func TestDebounceCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	puzzle := filepath.Join(dir, "busy.sdk")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(puzzle, []byte(classicPuzzle), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	waitSolved(t, w)

	// No further solves should arrive for the coalesced burst.
	select {
	case path := <-w.Solved:
		if strings.HasSuffix(path, "busy.solution") {
			t.Fatal("burst of writes produced more than one solve")
		}
	case <-time.After(500 * time.Millisecond):
	}
}
