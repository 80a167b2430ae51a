package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a typed PlayerService client.
type Client struct {
	token string

	getState    *connect.Client[emptypb.Empty, structpb.Struct]
	play        *connect.Client[emptypb.Empty, structpb.Struct]
	pause       *connect.Client[emptypb.Empty, structpb.Struct]
	setVolume   *connect.Client[wrapperspb.Int32Value, structpb.Struct]
	listHistory *connect.Client[emptypb.Empty, structpb.Struct]
	watchState  *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewClient creates a client for the server at baseURL. token is sent with
// control calls when non-empty.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		token:       token,
		getState:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+GetStateProcedure, opts...),
		play:        connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PlayProcedure, opts...),
		pause:       connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PauseProcedure, opts...),
		setVolume:   connect.NewClient[wrapperspb.Int32Value, structpb.Struct](httpClient, baseURL+SetVolumeProcedure, opts...),
		listHistory: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ListHistoryProcedure, opts...),
		watchState:  connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+WatchStateProcedure, opts...),
	}
}

// GetState returns the full player snapshot.
func (c *Client) GetState(ctx context.Context) (*StateView, error) {
	resp, err := c.getState.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, errors.Wrap(err, "get state")
	}
	return decodeState(resp.Msg)
}

// Play requests playback.
func (c *Client) Play(ctx context.Context) (*StateView, error) {
	resp, err := c.play.CallUnary(ctx, authorize(connect.NewRequest(&emptypb.Empty{}), c.token))
	if err != nil {
		return nil, errors.Wrap(err, "play")
	}
	return decodeState(resp.Msg)
}

// Pause stops playback.
func (c *Client) Pause(ctx context.Context) (*StateView, error) {
	resp, err := c.pause.CallUnary(ctx, authorize(connect.NewRequest(&emptypb.Empty{}), c.token))
	if err != nil {
		return nil, errors.Wrap(err, "pause")
	}
	return decodeState(resp.Msg)
}

// SetVolume sets the volume.
func (c *Client) SetVolume(ctx context.Context, volume int) (*StateView, error) {
	req := connect.NewRequest(wrapperspb.Int32(int32(volume)))
	resp, err := c.setVolume.CallUnary(ctx, authorize(req, c.token))
	if err != nil {
		return nil, errors.Wrap(err, "set volume")
	}
	return decodeState(resp.Msg)
}

// ListHistory returns the listening history, newest first.
func (c *Client) ListHistory(ctx context.Context) ([]HistoryEntryView, error) {
	resp, err := c.listHistory.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, errors.Wrap(err, "list history")
	}
	var view historyView
	if err := decodeStruct(resp.Msg, &view); err != nil {
		return nil, err
	}
	return view.Entries, nil
}

// WatchState calls fn for the initial state and every change until ctx is
// cancelled, the server ends the stream, or fn returns an error.
func (c *Client) WatchState(ctx context.Context, fn func(*StateView) error) error {
	stream, err := c.watchState.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return errors.Wrap(err, "watch state")
	}
	defer stream.Close()

	for stream.Receive() {
		view, err := decodeState(stream.Msg())
		if err != nil {
			return err
		}
		if err := fn(view); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "watch state stream")
	}
	return nil
}

func authorize[T any](req *connect.Request[T], token string) *connect.Request[T] {
	if token != "" {
		req.Header().Set(ControlTokenHeader, token)
	}
	return req
}

func decodeState(msg *structpb.Struct) (*StateView, error) {
	var view StateView
	if err := decodeStruct(msg, &view); err != nil {
		return nil, err
	}
	return &view, nil
}
