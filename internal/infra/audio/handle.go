package audio

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19radio/internal/domain/stream"
)

// ErrStreamEnded is reported when the endpoint stops sending audio.
var ErrStreamEnded = errors.New("stream ended unexpectedly")

// Decoder turns the raw byte stream into audio samples.
// Closing the returned streamer must close rc.
type Decoder func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// DecodeMP3 is the default decoder.
func DecodeMP3(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return mp3.Decode(rc)
}

// Option configures a Handle.
type Option func(*Handle)

// WithDecoder sets the decoder.
func WithDecoder(d Decoder) Option {
	return func(h *Handle) {
		h.decode = d
	}
}

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(h *Handle) {
		if n > 0 {
			h.events = make(chan stream.Event, n)
		}
	}
}

// WithVolume sets the volume applied to the first attempt.
func WithVolume(v int) Option {
	return func(h *Handle) {
		h.volume = clampVolume(v)
	}
}

// Handle owns the single stream connection. Each Start begins a numbered
// attempt and cancels the previous one; events of a cancelled attempt are
// not delivered.
type Handle struct {
	mu sync.Mutex

	source Source
	decode Decoder
	output Output
	volume int

	attempt uint64
	cancel  context.CancelFunc

	events    chan stream.Event
	closed    chan struct{}
	isClosed  bool
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// NewHandle creates a new stream handle.
func NewHandle(source Source, output Output, opts ...Option) *Handle {
	h := &Handle{
		source: source,
		decode: DecodeMP3,
		output: output,
		volume: 75,
		events: make(chan stream.Event, 16),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Events returns the lifecycle event channel. It is closed by Close.
func (h *Handle) Events() <-chan stream.Event {
	return h.events
}

// Start begins a new connection attempt and returns its number.
// After Close it does nothing and returns the last attempt number.
func (h *Handle) Start() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isClosed {
		return h.attempt
	}

	h.stopLocked()

	h.attempt++
	attempt := h.attempt
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	h.wg.Add(1)
	go h.run(ctx, attempt)

	zlog.Debug().Msgf("audio: attempt started: attempt=%d", attempt)
	return attempt
}

// Stop cancels the current attempt and silences output immediately.
func (h *Handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *Handle) stopLocked() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.output.Clear()
}

// SetVolume applies volume immediately.
func (h *Handle) SetVolume(volume int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.volume = clampVolume(volume)
	h.output.SetVolume(h.volume)
}

// Close cancels any attempt, waits for it to finish and releases the output.
// It is safe to call more than once.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.isClosed = true
		h.stopLocked()
		close(h.closed)
		h.mu.Unlock()

		h.wg.Wait()
		close(h.events)

		if err := h.output.Close(); err != nil {
			h.closeErr = errors.Wrap(err, "failed to close output")
		}
		zlog.Debug().Msg("audio: handle closed")
	})
	return h.closeErr
}

// run drives one attempt: connect, decode, play, then watch for the end of
// the stream.
func (h *Handle) run(ctx context.Context, attempt uint64) {
	defer h.wg.Done()

	h.emit(ctx, stream.Buffering(attempt))

	body, err := h.source.Connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		h.fail(ctx, attempt, errors.Mark(err, stream.ErrConnection))
		return
	}

	streamer, format, err := h.decode(body)
	if err != nil {
		body.Close()
		if ctx.Err() != nil {
			return
		}
		h.fail(ctx, attempt, errors.Mark(errors.Wrap(err, "failed to decode stream"), stream.ErrPlayback))
		return
	}
	defer streamer.Close()

	ended := make(chan struct{})
	var endOnce sync.Once
	onEnd := func() {
		endOnce.Do(func() { close(ended) })
	}

	// Play under the lock so a concurrent Stop either prevents playback or
	// clears it.
	h.mu.Lock()
	if ctx.Err() != nil {
		h.mu.Unlock()
		return
	}
	err = h.output.Play(streamer, format, h.volume, onEnd)
	h.mu.Unlock()
	if err != nil {
		h.fail(ctx, attempt, errors.Mark(err, stream.ErrPlayback))
		return
	}

	zlog.Info().Msgf("audio: playing: attempt=%d sample_rate=%d", attempt, format.SampleRate)
	h.emit(ctx, stream.StartedPlaying(attempt))

	select {
	case <-ctx.Done():
		return
	case <-ended:
	}

	if ctx.Err() != nil {
		return
	}
	cause := ErrStreamEnded
	if serr := streamer.Err(); serr != nil {
		cause = errors.Wrap(serr, "stream error")
	}
	h.fail(ctx, attempt, errors.Mark(cause, stream.ErrPlayback))
}

func (h *Handle) fail(ctx context.Context, attempt uint64, err error) {
	zlog.Warn().Msgf("audio: attempt failed: attempt=%d err=%v", attempt, err)
	h.emit(ctx, stream.Failed(attempt, err))
}

// emit delivers e unless the attempt was cancelled or the handle closed.
func (h *Handle) emit(ctx context.Context, e stream.Event) {
	if ctx.Err() != nil {
		return
	}
	select {
	case h.events <- e:
	case <-ctx.Done():
	case <-h.closed:
	}
}

func clampVolume(v int) int {
	return min(max(v, 0), 100)
}
