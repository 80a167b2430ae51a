// Package stream defines the lifecycle events emitted by the audio stream handle.
package stream

import "github.com/cockroachdb/errors"

// Failure categories. Both surface to the player as a failed state.
var (
	ErrConnection = errors.New("stream connection failed")
	ErrPlayback   = errors.New("stream playback failed")
)

// EventType represents a stream lifecycle event type.
type EventType int

const (
	EventBuffering      EventType = iota // Connection attempt in progress
	EventStartedPlaying                  // Audio is flowing
	EventPaused                          // Playback halted by the handle
	EventFailed                          // Connection or playback failed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventBuffering:
		return "buffering"
	case EventStartedPlaying:
		return "started_playing"
	case EventPaused:
		return "paused"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureKind classifies a failed event.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureConnection
	FailurePlayback
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureConnection:
		return "connection"
	case FailurePlayback:
		return "playback"
	default:
		return "none"
	}
}

// Event is a single lifecycle event for one connection attempt.
type Event struct {
	Type    EventType
	Attempt uint64      // Attempt number returned by Start
	Reason  string      // Human-readable failure reason (failed only)
	Kind    FailureKind // Failure category (failed only)
}

// Buffering creates a buffering event.
func Buffering(attempt uint64) Event {
	return Event{Type: EventBuffering, Attempt: attempt}
}

// StartedPlaying creates a started-playing event.
func StartedPlaying(attempt uint64) Event {
	return Event{Type: EventStartedPlaying, Attempt: attempt}
}

// Failed creates a failed event from err. The failure kind is derived from
// the ErrConnection / ErrPlayback marks on err.
func Failed(attempt uint64, err error) Event {
	e := Event{Type: EventFailed, Attempt: attempt, Kind: KindOf(err)}
	if err != nil {
		e.Reason = err.Error()
	}
	return e
}

// KindOf returns the failure kind marked on err.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrConnection):
		return FailureConnection
	case errors.Is(err, ErrPlayback):
		return FailurePlayback
	default:
		return FailurePlayback
	}
}
