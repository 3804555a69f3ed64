package tokenfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "credential.json"), nil)

	cred, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, cred)

	require.NoError(t, s.Save("opaque-token"))

	cred, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", cred)

	require.NoError(t, s.Clear())

	cred, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, cred)
}

func TestStore_ClearTwice(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "credential.json"), nil)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
}

func TestStore_WatchReportsExternalChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.json")
	watched := NewStore(path, nil)
	other := NewStore(path, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 16)
	done := make(chan error, 1)

	go func() {
		done <- watched.Watch(ctx, func() { changes <- struct{}{} })
	}()

	// Keep writing until the watcher has registered and reports an event.
	require.Eventually(t, func() bool {
		if err := other.Save("from-another-process"); err != nil {
			return false
		}

		select {
		case <-changes:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
