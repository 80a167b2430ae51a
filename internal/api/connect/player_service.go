package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/19radio/internal/app/notification"
	"github.com/osa030/19radio/internal/app/playback"
	"github.com/osa030/19radio/internal/app/player"
)

// PlayerServiceName is the fully-qualified name of the player service.
const PlayerServiceName = "radio.v1.PlayerService"

// Procedure paths.
const (
	GetStateProcedure    = "/" + PlayerServiceName + "/GetState"
	PlayProcedure        = "/" + PlayerServiceName + "/Play"
	PauseProcedure       = "/" + PlayerServiceName + "/Pause"
	SetVolumeProcedure   = "/" + PlayerServiceName + "/SetVolume"
	ListHistoryProcedure = "/" + PlayerServiceName + "/ListHistory"
	WatchStateProcedure  = "/" + PlayerServiceName + "/WatchState"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	player *player.Manager
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(p *player.Manager) *PlayerService {
	return &PlayerService{player: p}
}

// NewPlayerServiceHandler builds an HTTP handler serving every PlayerService
// procedure. It returns the path prefix to mount it on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.GetState, opts...))
	mux.Handle(PlayProcedure, connect.NewUnaryHandler(PlayProcedure, svc.Play, opts...))
	mux.Handle(PauseProcedure, connect.NewUnaryHandler(PauseProcedure, svc.Pause, opts...))
	mux.Handle(SetVolumeProcedure, connect.NewUnaryHandler(SetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(ListHistoryProcedure, connect.NewUnaryHandler(ListHistoryProcedure, svc.ListHistory, opts...))
	mux.Handle(WatchStateProcedure, connect.NewServerStreamHandler(WatchStateProcedure, svc.WatchState, opts...))
	return "/" + PlayerServiceName + "/", mux
}

// GetState returns the full player snapshot.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	status := s.player.GetStatus()

	msg, err := encodeSnapshot(status.State, status.Levels, status.Station)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// Play requests playback.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.player.Play(); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse()
}

// Pause stops playback.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.player.Pause(); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse()
}

// SetVolume sets the volume. Out-of-range values are clamped.
func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[wrapperspb.Int32Value],
) (*connect.Response[structpb.Struct], error) {
	if _, err := s.player.SetVolume(int(req.Msg.GetValue())); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse()
}

// ListHistory returns the listening history, newest first.
func (s *PlayerService) ListHistory(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	msg, err := encodeHistory(s.player.History())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// WatchState streams the current state followed by every change.
func (s *PlayerService) WatchState(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	notifManager := s.player.GetNotificationManager()

	adapter := &notificationStreamAdapter{stream: stream}
	defer adapter.close()

	// The snapshot is queued ahead of any change broadcast after it.
	subscriptionID := notifManager.SubscribeWithSnapshot(adapter, func() notification.Notification {
		state := s.player.State()
		return notification.Notification{
			Type:     notification.TypeInitialState,
			State:    state,
			Previous: state.Status,
		}
	})
	defer notifManager.Unsubscribe(subscriptionID)

	// Wait for client disconnect or player shutdown
	select {
	case <-ctx.Done():
	case <-s.player.Done():
	}
	return nil
}

func (s *PlayerService) stateResponse() (*connect.Response[structpb.Struct], error) {
	msg, err := encodeState(s.player.State())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func toConnectError(err error) error {
	if errors.Is(err, playback.ErrClosed) {
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized and stop once the handler has returned.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	closed bool
	stream *connect.ServerStream[structpb.Struct]
}

func (a *notificationStreamAdapter) Send(n notification.Notification) error {
	msg, err := encodeNotification(n)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("stream closed")
	}
	return a.stream.Send(msg)
}

func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
