// Package playback provides the player state machine driven by user intents
// and stream lifecycle events.
package playback

// Status represents the playback status.
type Status int

const (
	StatusIdle       Status = iota // Nothing requested yet
	StatusConnecting               // Connection attempt in progress
	StatusPlaying                  // Audio is flowing
	StatusPaused                   // Stopped by the user
	StatusFailed                   // Last attempt failed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStatus parses the string form produced by Status.String.
func ParseStatus(s string) (Status, bool) {
	for st := StatusIdle; st <= StatusFailed; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StatusIdle, false
}

// Volume bounds.
const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 75
)

// DefaultErrorMessage is used when a failure carries no reason.
const DefaultErrorMessage = "stream failed"

// State is a snapshot of the player state.
// ErrorMessage is non-empty if and only if Status is StatusFailed.
type State struct {
	Status       Status
	Volume       int
	ErrorMessage string
}

// IsActive reports whether audio is flowing.
func (s State) IsActive() bool {
	return s.Status == StatusPlaying
}

// ClampVolume clamps v to [MinVolume, MaxVolume].
func ClampVolume(v int) int {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}
