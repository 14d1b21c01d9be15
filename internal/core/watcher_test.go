package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.csv")
	require.NoError(t, os.WriteFile(path, []byte("Category,Test\nOld,o1\n"), 0o644))

	p := NewProvider(WithDefaultPath(path), WithProviderLogger(quietLogger()))
	require.NoError(t, p.LoadDefault())

	w, err := NewWatcher(p)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})

	// Give the watcher a moment to start reading events.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("Category,Test\nNew,n1\n"), 0o644))

	assert.Eventually(t, func() bool {
		m := p.Default()
		return m != nil && m.Has("New", "n1")
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_KeepsPreviousOnBadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.csv")
	require.NoError(t, os.WriteFile(path, []byte("Category,Test\nOld,o1\n"), 0o644))

	p := NewProvider(WithDefaultPath(path), WithProviderLogger(quietLogger()))
	require.NoError(t, p.LoadDefault())

	w, err := NewWatcher(p)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("not a config\n"), 0o644))

	assert.Eventually(t, func() bool { return w.Reloads() > 0 }, 3*time.Second, 20*time.Millisecond)
	assert.True(t, p.Default().Has("Old", "o1"))
}

func TestNewWatcher_RequiresPath(t *testing.T) {
	_, err := NewWatcher(NewProvider())
	assert.ErrorIs(t, err, ErrInvalidParams)
}
