package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// batchCollector records flushed batches.
type batchCollector struct {
	mu      sync.Mutex
	batches [][]string
	notify  chan struct{}
}

func newBatchCollector() *batchCollector {
	return &batchCollector{notify: make(chan struct{}, 16)}
}

func (c *batchCollector) flush(paths []string) {
	c.mu.Lock()
	c.batches = append(c.batches, paths)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *batchCollector) all() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]string, len(c.batches))
	copy(out, c.batches)
	return out
}

func (c *batchCollector) waitForBatch(t *testing.T) []string {
	t.Helper()
	select {
	case <-c.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a flushed batch")
	}
	batches := c.all()
	return batches[len(batches)-1]
}

func startWatcher(t *testing.T, debounce time.Duration) (string, *batchCollector) {
	t.Helper()
	dir := t.TempDir()
	collector := newBatchCollector()
	w := New(dir, debounce, collector.flush)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return dir, collector
}

func TestCoalescesEventsIntoOneBatch(t *testing.T) {
	dir, collector := startWatcher(t, 150*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))

	batch := collector.waitForBatch(t)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "b.txt"),
	}, batch)
	assert.Len(t, collector.all(), 1)
}

func TestIgnoresUnsupportedExtensions(t *testing.T) {
	dir, collector := startWatcher(t, 100*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.bin"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.md"), []byte("# k"), 0o644))

	batch := collector.waitForBatch(t)
	assert.Equal(t, []string{filepath.Join(dir, "keep.md")}, batch)
}

func TestSecondBurstIsSecondBatch(t *testing.T) {
	dir, collector := startWatcher(t, 100*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "first.md"), []byte("1"), 0o644))
	first := collector.waitForBatch(t)
	assert.Equal(t, []string{filepath.Join(dir, "first.md")}, first)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "second.md"), []byte("2"), 0o644))
	second := collector.waitForBatch(t)
	assert.Equal(t, []string{filepath.Join(dir, "second.md")}, second)
	assert.Len(t, collector.all(), 2)
}

func TestPicksUpNewSubdirectories(t *testing.T) {
	dir, collector := startWatcher(t, 150*time.Millisecond)

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "deep.md"), []byte("# d"), 0o644))

	batch := collector.waitForBatch(t)
	assert.Contains(t, batch, filepath.Join(sub, "deep.md"))
}

func TestStopDiscardsPending(t *testing.T) {
	dir := t.TempDir()
	collector := newBatchCollector()
	w := New(dir, time.Hour, collector.flush)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "never.md"), []byte("x"), 0o644))
	// The debounce window is an hour; stopping must not flush.
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	assert.Empty(t, collector.all())
}
