package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19radio/internal/app/history"
	"github.com/osa030/19radio/internal/app/notification"
	"github.com/osa030/19radio/internal/app/playback"
	"github.com/osa030/19radio/internal/app/visual"
	"github.com/osa030/19radio/internal/domain/station"
	"github.com/osa030/19radio/internal/domain/stream"
)

// scriptedHandle is a stream handle whose lifecycle events are pushed by the test.
type scriptedHandle struct {
	mu      sync.Mutex
	attempt uint64
	volume  int
	events  chan stream.Event
}

func newScriptedHandle() *scriptedHandle {
	return &scriptedHandle{events: make(chan stream.Event, 16)}
}

func (h *scriptedHandle) Start() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempt++
	return h.attempt
}

func (h *scriptedHandle) Stop() {}

func (h *scriptedHandle) SetVolume(v int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
}

func (h *scriptedHandle) Events() <-chan stream.Event { return h.events }

func (h *scriptedHandle) Close() error { return nil }

func (h *scriptedHandle) current() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempt
}

var testStation = station.Station{Name: "Jazz FM", Genre: "Jazz", URL: "https://stream.example.com/jazz", Live: true}

func newTestManager(t *testing.T) (*Manager, *scriptedHandle) {
	t.Helper()

	h := newScriptedHandle()
	ctrl := playback.NewController(h, playback.Config{InitialVolume: playback.DefaultVolume})

	cfg := visual.DefaultConfig()
	cfg.Interval = time.Millisecond
	driver, err := visual.NewDriver(cfg)
	require.NoError(t, err)

	m := NewManager(ctrl, driver, history.New(history.DefaultSize), testStation)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m, h
}

func levelsWithin(levels []int, lo, hi int) bool {
	for _, l := range levels {
		if l < lo || l > hi {
			return false
		}
	}
	return true
}

func TestManager_PlayToPlaying(t *testing.T) {
	m, h := newTestManager(t)

	require.NoError(t, m.Play())
	assert.Equal(t, playback.StatusConnecting, m.State().Status)

	h.events <- stream.Buffering(h.current())
	h.events <- stream.StartedPlaying(h.current())

	require.Eventually(t, func() bool {
		return m.State().Status == playback.StatusPlaying
	}, time.Second, time.Millisecond)
	assert.Empty(t, m.State().ErrorMessage)

	assert.Eventually(t, func() bool {
		return levelsWithin(m.Levels(), visual.DefaultMin, visual.DefaultMax)
	}, time.Second, time.Millisecond)

	assert.Eventually(t, func() bool {
		entries := m.History()
		return len(entries) == 1 && entries[0].StationName == "Jazz FM"
	}, time.Second, time.Millisecond)
}

func TestManager_FailureDecaysLevels(t *testing.T) {
	m, h := newTestManager(t)

	require.NoError(t, m.Play())
	h.events <- stream.StartedPlaying(h.current())
	require.Eventually(t, func() bool {
		return levelsWithin(m.Levels(), visual.DefaultMin, visual.DefaultMax)
	}, time.Second, time.Millisecond)

	h.events <- stream.Event{Type: stream.EventFailed, Attempt: h.current(), Reason: "network error", Kind: stream.FailureConnection}

	require.Eventually(t, func() bool {
		return m.State().Status == playback.StatusFailed
	}, time.Second, time.Millisecond)
	assert.Equal(t, "network error", m.State().ErrorMessage)

	assert.Eventually(t, func() bool {
		return levelsWithin(m.Levels(), 0, 0)
	}, time.Second, time.Millisecond)

	// Retry clears the error immediately.
	require.NoError(t, m.Play())
	s := m.State()
	assert.Equal(t, playback.StatusConnecting, s.Status)
	assert.Empty(t, s.ErrorMessage)
}

func TestManager_Toggle(t *testing.T) {
	m, h := newTestManager(t)

	require.NoError(t, m.Toggle())
	assert.Equal(t, playback.StatusConnecting, m.State().Status)

	require.NoError(t, m.Toggle())
	assert.Equal(t, playback.StatusPaused, m.State().Status)

	require.NoError(t, m.Toggle())
	assert.Equal(t, playback.StatusConnecting, m.State().Status)
	assert.Equal(t, uint64(2), h.current())
}

func TestManager_Volume(t *testing.T) {
	m, _ := newTestManager(t)

	v, err := m.AdjustVolume(+30)
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	v, err = m.AdjustVolume(-5)
	require.NoError(t, err)
	assert.Equal(t, 95, v)

	v, err = m.SetVolume(-20)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestManager_BroadcastsChanges(t *testing.T) {
	m, h := newTestManager(t)

	received := make(chan notification.Notification, 16)
	id := m.GetNotificationManager().Subscribe(notification.StreamFunc(func(n notification.Notification) error {
		received <- n
		return nil
	}))
	defer m.GetNotificationManager().Unsubscribe(id)

	require.NoError(t, m.Play())
	h.events <- stream.StartedPlaying(h.current())

	want := []playback.Status{playback.StatusConnecting, playback.StatusPlaying}
	for _, status := range want {
		select {
		case n := <-received:
			assert.Equal(t, notification.TypeStatusChanged, n.Type)
			assert.Equal(t, status, n.State.Status)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s notification", status)
		}
	}
}

func TestManager_StartTwice(t *testing.T) {
	m, _ := newTestManager(t)
	assert.ErrorIs(t, m.Start(context.Background()), ErrAlreadyStarted)
}

func TestManager_Close(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	select {
	case <-m.Done():
	default:
		t.Fatal("Done should be closed")
	}
	assert.ErrorIs(t, m.Play(), playback.ErrClosed)
}

func TestManager_GetStatus(t *testing.T) {
	m, _ := newTestManager(t)

	s := m.GetStatus()
	assert.Equal(t, playback.StatusIdle, s.State.Status)
	assert.Equal(t, playback.DefaultVolume, s.State.Volume)
	assert.Len(t, s.Levels, visual.DefaultBars)
	assert.Equal(t, testStation, s.Station)
	assert.Empty(t, s.History)
}
