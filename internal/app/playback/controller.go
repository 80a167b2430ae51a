package playback

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19radio/internal/domain/stream"
)

// Errors
var (
	ErrClosed = errors.New("controller is closed")
)

// StreamHandle is the audio stream the controller drives.
// Start must cancel any previous attempt before beginning a new one, and
// neither Start nor Stop may block on event delivery.
type StreamHandle interface {
	Start() uint64
	Stop()
	SetVolume(volume int)
	Events() <-chan stream.Event
	Close() error
}

// Config holds controller configuration.
type Config struct {
	InitialVolume int // Volume applied at construction (clamped)
	EventBuffer   int // Change event channel capacity
}

// Controller owns the player state and serializes user intents with
// stream lifecycle events.
type Controller struct {
	mu sync.RWMutex

	handle StreamHandle
	state  State

	// attempt is the attempt number of the live connection attempt, 0 if none.
	// Stream events for any other attempt are stale.
	attempt uint64

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewController creates a new playback controller bound to handle.
func NewController(handle StreamHandle, config Config) *Controller {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		handle: handle,
		state: State{
			Status: StatusIdle,
			Volume: ClampVolume(config.InitialVolume),
		},
		eventCh: make(chan Event, config.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	handle.SetVolume(c.state.Volume)
	return c
}

// Events returns the change event channel. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Done returns a channel that is closed when the controller is closed.
func (c *Controller) Done() <-chan struct{} {
	return c.ctx.Done()
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsActive reports whether audio is flowing.
func (c *Controller) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.IsActive()
}

// Play requests playback. From Idle, Paused or Failed a new connection
// attempt is started. While Connecting or Playing it does nothing.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	switch c.state.Status {
	case StatusConnecting, StatusPlaying:
		return nil
	}

	c.attempt = c.handle.Start()
	zlog.Debug().Msgf("playback: play requested: from=%s attempt=%d", c.state.Status, c.attempt)
	c.setStatusLocked(StatusConnecting, "")
	return nil
}

// Pause stops playback. While Connecting the in-flight attempt is cancelled
// and any later event from it is ignored. In other states it does nothing.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	switch c.state.Status {
	case StatusPlaying, StatusConnecting:
	default:
		return nil
	}

	c.handle.Stop()
	zlog.Debug().Msgf("playback: pause requested: from=%s attempt=%d", c.state.Status, c.attempt)
	c.attempt = 0
	c.setStatusLocked(StatusPaused, "")
	return nil
}

// SetVolume clamps volume to [0,100], applies it to the stream in every
// state and returns the effective value.
func (c *Controller) SetVolume(volume int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.state.Volume, ErrClosed
	}

	volume = ClampVolume(volume)
	c.handle.SetVolume(volume)

	if volume == c.state.Volume {
		return volume, nil
	}
	c.state.Volume = volume
	c.sendEventLocked(Event{
		Type:     EventVolumeChanged,
		State:    c.state,
		Previous: c.state.Status,
	})
	return volume, nil
}

// HandleStreamEvent applies a stream lifecycle event.
func (c *Controller) HandleStreamEvent(e stream.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if c.attempt == 0 || e.Attempt != c.attempt {
		zlog.Debug().Msgf("playback: ignoring stale stream event: type=%s attempt=%d current=%d",
			e.Type, e.Attempt, c.attempt)
		return
	}

	switch e.Type {
	case stream.EventBuffering:
		// Still connecting

	case stream.EventStartedPlaying:
		if c.state.Status == StatusConnecting {
			c.setStatusLocked(StatusPlaying, "")
		}

	case stream.EventFailed:
		if c.state.Status != StatusConnecting && c.state.Status != StatusPlaying {
			return
		}
		reason := e.Reason
		if reason == "" {
			reason = DefaultErrorMessage
		}
		zlog.Warn().Msgf("playback: stream failed: kind=%s attempt=%d reason=%s", e.Kind, e.Attempt, reason)
		c.handle.Stop()
		c.attempt = 0
		c.setStatusLocked(StatusFailed, reason)

	case stream.EventPaused:
		// Pause is driven by the controller; nothing to reconcile
	}
}

// Run consumes stream events until ctx is cancelled, the controller is
// closed or the stream event channel is closed.
func (c *Controller) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback: event loop panicked: %v", r)
			zlog.Info().Msg("playback: restarting event loop")
			go c.Run(ctx)
		}
	}()

	events := c.handle.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			c.HandleStreamEvent(e)
		}
	}
}

// Close closes the controller and releases the stream handle.
// Later intents return ErrClosed and later stream events are ignored.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.attempt = 0
	c.cancel()

	err := c.handle.Close()
	close(c.eventCh)
	if err != nil {
		return errors.Wrap(err, "failed to close stream handle")
	}
	return nil
}

// setStatusLocked moves to status and keeps ErrorMessage consistent with it.
// Must be called with lock held.
func (c *Controller) setStatusLocked(status Status, errorMessage string) {
	if status != StatusFailed {
		errorMessage = ""
	}
	prev := c.state.Status
	if prev == status && c.state.ErrorMessage == errorMessage {
		return
	}
	c.state.Status = status
	c.state.ErrorMessage = errorMessage

	zlog.Info().Msgf("playback: status changed: %s -> %s", prev, status)
	c.sendEventLocked(Event{
		Type:     EventStatusChanged,
		State:    c.state,
		Previous: prev,
	})
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	select {
	case c.eventCh <- e:
		// Successfully sent
	case <-c.ctx.Done():
		// Controller closed, don't send
	default:
		zlog.Warn().Msgf("playback: change event dropped: type=%s", e.Type)
	}
}
