package playback

// EventType represents a controller change event type.
type EventType int

const (
	EventStatusChanged EventType = iota // Status (and possibly error) changed
	EventVolumeChanged                  // Volume changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStatusChanged:
		return "status_changed"
	case EventVolumeChanged:
		return "volume_changed"
	default:
		return "unknown"
	}
}

// Event represents a controller change event.
type Event struct {
	Type     EventType
	State    State  // State after the change
	Previous Status // Status before the change
}
