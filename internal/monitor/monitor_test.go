package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/marker"
)

type fakeStore struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *fakeStore) Purge(context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func snapshot() mapctl.State {
	return mapctl.State{
		Generation: 3,
		Mode:       "inline",
		Active:     "marker-2",
		Markers: []marker.View{
			{MarkerID: "marker-1", Visible: true},
			{MarkerID: "marker-2", Visible: true},
			{MarkerID: "marker-3"},
		},
	}
}

func TestTick_WritesStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	store := &fakeStore{n: 2}
	s := NewService(Dependencies{
		Store:      store,
		Snapshot:   snapshot,
		Pending:    func() int { return 4 },
		Clients:    func() int { return 1 },
		StatusPath: path,
	})

	st, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), st.Generation)
	assert.Equal(t, 3, st.Markers)
	assert.Equal(t, 2, st.Visible)
	assert.Equal(t, "marker-2", st.Active)
	assert.Equal(t, 4, st.PendingNotifications)
	assert.Equal(t, 1, st.Clients)
	assert.Equal(t, 2, st.Purged)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Status
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, st.Visible, onDisk.Visible)

	st, err = s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, st.Purged)
}

func TestTick_PurgeErrorIsLogged(t *testing.T) {
	s := NewService(Dependencies{Store: &fakeStore{err: errors.New("locked")}})
	st, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Purged)
}

func TestTick_BadStatusPath(t *testing.T) {
	s := NewService(Dependencies{StatusPath: filepath.Join(t.TempDir(), "missing", "status.json")})
	_, err := s.Tick(context.Background())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	store := &fakeStore{}
	s := NewService(Dependencies{Store: store, Interval: 5 * time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestStart_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewService(Dependencies{Interval: time.Hour})
	require.NoError(t, s.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 5*time.Millisecond)
	s.Stop()
}
