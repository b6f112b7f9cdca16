package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleFiresOnceAfterBurst(t *testing.T) {
	w := &Watcher{debounce: 50 * time.Millisecond, fire: make(chan struct{}, 1)}
	defer w.stop()

	var last time.Time
	for i := 0; i < 5; i++ {
		last = time.Now()
		w.schedule()
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-w.fire:
		assert.GreaterOrEqual(t, time.Since(last), w.debounce)
	case <-time.After(5 * time.Second):
		t.Fatal("debounce never fired")
	}

	select {
	case <-w.fire:
		t.Fatal("burst fired more than once")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherRunsSettledFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "main.lox")
	require.NoError(t, os.WriteFile(script, []byte("print 0;"), 0644))

	contents := make(chan string, 4)
	w, err := New(script, 100*time.Millisecond, func(path string) {
		data, _ := os.ReadFile(path)
		contents <- string(data)
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Truncate, then write in two parts, the way some editors save
	f, err := os.OpenFile(script, os.O_WRONLY|os.O_TRUNC, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("print ")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = f.WriteString("42;")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case got := <-contents:
		assert.Equal(t, "print 42;", got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
	assert.Equal(t, uint64(1), w.Changes())
}

func TestWatcherCallsOnChange(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "main.lox")
	other := filepath.Join(dir, "other.lox")
	require.NoError(t, os.WriteFile(script, []byte("print 1;"), 0644))

	changed := make(chan string, 4)
	w, err := New(script, 10*time.Millisecond, func(path string) { changed <- path }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Other files in the directory are ignored
	require.NoError(t, os.WriteFile(other, []byte("print 2;"), 0644))
	require.NoError(t, os.WriteFile(script, []byte("print 3;"), 0644))

	select {
	case path := <-changed:
		assert.Equal(t, script, path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "main.lox"), 0, func(string) {}, nil)
	assert.Error(t, err)
}
