package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
	ch      chan []string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan []string, 16)}
}

func (r *recorder) onChange(_ context.Context, paths []string) {
	r.mu.Lock()
	r.batches = append(r.batches, paths)
	r.mu.Unlock()
	r.ch <- paths
}

func (r *recorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case paths := <-r.ch:
		return paths
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func TestWatcher_ReportsPythonChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New([]string{dir}, rec.onChange, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	target := filepath.Join(dir, "test_a.py")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(target, []byte("def test_a(): pass\n"), 0644))

	paths := rec.wait(t)
	assert.Equal(t, []string{target}, paths)
	assert.GreaterOrEqual(t, w.Stats().Events, 1)
	assert.Equal(t, 1, w.Stats().WatchedDirs)
}

func TestWatcher_WatchesNewSubdirectories(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New([]string{dir}, rec.onChange, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))

	// Give the watcher a moment to register the new directory.
	require.Eventually(t, func() bool { return w.Stats().WatchedDirs == 2 }, 5*time.Second, 10*time.Millisecond)

	target := filepath.Join(sub, "test_b.py")
	require.NoError(t, os.WriteFile(target, []byte("def test_b(): pass\n"), 0644))

	paths := rec.wait(t)
	assert.Contains(t, paths, target)
}

func TestWatcher_IgnoredDirectories(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".venv", "lib"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tests"), 0755))

	w, err := New([]string{dir}, func(context.Context, []string) {},
		WithIgnore(func(_ string, d fs.DirEntry) bool { return d.Name() == ".venv" }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	assert.Equal(t, 2, w.Stats().WatchedDirs)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := New([]string{t.TempDir()}, func(context.Context, []string) {})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestWatcher_StartMissingRoot(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "gone")}, func(context.Context, []string) {})
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	w.Stop() // must not block after a failed Start
	_ = w.watcher.Close()
}
