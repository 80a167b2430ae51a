package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19radio/internal/app/history"
	"github.com/osa030/19radio/internal/app/playback"
	"github.com/osa030/19radio/internal/app/player"
	"github.com/osa030/19radio/internal/app/visual"
	"github.com/osa030/19radio/internal/domain/station"
	"github.com/osa030/19radio/internal/domain/stream"
	"github.com/osa030/19radio/internal/infra/config"
)

type scriptedHandle struct {
	mu      sync.Mutex
	attempt uint64
	events  chan stream.Event
}

func (h *scriptedHandle) Start() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempt++
	return h.attempt
}
func (h *scriptedHandle) Stop()                       {}
func (h *scriptedHandle) SetVolume(int)               {}
func (h *scriptedHandle) Events() <-chan stream.Event { return h.events }
func (h *scriptedHandle) Close() error                { return nil }

func (h *scriptedHandle) current() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempt
}

type testEnv struct {
	server *httptest.Server
	handle *scriptedHandle
	player *player.Manager
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()

	h := &scriptedHandle{events: make(chan stream.Event, 16)}
	ctrl := playback.NewController(h, playback.Config{InitialVolume: playback.DefaultVolume})
	driver, err := visual.NewDriver(visual.DefaultConfig())
	require.NoError(t, err)

	p := player.NewManager(ctrl, driver, history.New(history.DefaultSize), station.Station{
		Name:  "Jazz FM",
		Genre: "Jazz",
		URL:   "https://stream.example.com/jazz",
		Live:  true,
	})
	require.NoError(t, p.Start(context.Background()))

	cfg := config.Default()
	cfg.Server.Token = token

	mux := http.NewServeMux()
	path, handler := NewPlayerServiceHandler(
		NewPlayerService(p),
		connect.WithInterceptors(NewControlAuthInterceptor(cfg)),
	)
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		_ = p.Close()
		server.Close()
	})
	return &testEnv{server: server, handle: h, player: p}
}

func TestPlayerService_GetState(t *testing.T) {
	env := newTestEnv(t, "")
	client := NewClient(env.server.Client(), env.server.URL, "")

	state, err := client.GetState(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "idle", state.Status)
	assert.Equal(t, 75, state.Volume)
	assert.Empty(t, state.ErrorMessage)
	assert.False(t, state.Active)
	assert.Len(t, state.Levels, visual.DefaultBars)
	assert.Equal(t, "Jazz FM", state.Station.Name)
	assert.Equal(t, "Jazz", state.Station.Genre)
	assert.True(t, state.Station.Live)
}

func TestPlayerService_Control(t *testing.T) {
	env := newTestEnv(t, "")
	client := NewClient(env.server.Client(), env.server.URL, "")
	ctx := context.Background()

	state, err := client.Play(ctx)
	require.NoError(t, err)
	assert.Equal(t, "connecting", state.Status)

	state, err = client.SetVolume(ctx, 150)
	require.NoError(t, err)
	assert.Equal(t, 100, state.Volume)

	state, err = client.SetVolume(ctx, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Volume)

	state, err = client.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, "paused", state.Status)
}

func TestPlayerService_ControlToken(t *testing.T) {
	env := newTestEnv(t, "secret")
	ctx := context.Background()

	tests := []struct {
		name     string
		token    string
		wantCode connect.Code
	}{
		{name: "missing token", token: "", wantCode: connect.CodeUnauthenticated},
		{name: "wrong token", token: "nope", wantCode: connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(env.server.Client(), env.server.URL, tt.token)

			_, err := client.Play(ctx)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, connect.CodeOf(err))

			_, err = client.SetVolume(ctx, 10)
			assert.Equal(t, tt.wantCode, connect.CodeOf(err))

			// Read-only calls stay open.
			_, err = client.GetState(ctx)
			assert.NoError(t, err)
		})
	}

	client := NewClient(env.server.Client(), env.server.URL, "secret")
	state, err := client.Play(ctx)
	require.NoError(t, err)
	assert.Equal(t, "connecting", state.Status)
}

func TestPlayerService_ListHistory(t *testing.T) {
	env := newTestEnv(t, "")
	client := NewClient(env.server.Client(), env.server.URL, "")
	ctx := context.Background()

	entries, err := client.ListHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = client.Play(ctx)
	require.NoError(t, err)
	env.handle.events <- stream.StartedPlaying(env.handle.current())

	require.Eventually(t, func() bool {
		entries, err = client.ListHistory(ctx)
		return err == nil && len(entries) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "Jazz FM", entries[0].StationName)
	assert.Equal(t, "https://stream.example.com/jazz", entries[0].URL)
	assert.False(t, entries[0].PlayedAt.IsZero())
	assert.NotEmpty(t, entries[0].ID)
}

func TestPlayerService_WatchState(t *testing.T) {
	env := newTestEnv(t, "")
	client := NewClient(env.server.Client(), env.server.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *StateView, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.WatchState(ctx, func(v *StateView) error {
			received <- v
			return nil
		})
	}()

	next := func() *StateView {
		select {
		case v := <-received:
			return v
		case <-ctx.Done():
			t.Fatal("timed out waiting for state")
			return nil
		}
	}

	initial := next()
	assert.Equal(t, "initial_state", initial.Type)
	assert.Equal(t, "idle", initial.Status)

	require.Eventually(t, func() bool {
		return env.player.GetNotificationManager().SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, env.player.Play())
	v := next()
	assert.Equal(t, "status_changed", v.Type)
	assert.Equal(t, "connecting", v.Status)
	assert.Equal(t, "idle", v.Previous)
	assert.Greater(t, v.SequenceNo, initial.SequenceNo)

	env.handle.events <- stream.Failed(env.handle.current(), errors.New("network error"))
	v = next()
	assert.Equal(t, "failed", v.Status)
	assert.Equal(t, "network error", v.ErrorMessage)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WatchState did not return after cancel")
	}
}
