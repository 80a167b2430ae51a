package connect

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/19radio/internal/app/history"
	"github.com/osa030/19radio/internal/app/notification"
	"github.com/osa030/19radio/internal/app/playback"
	"github.com/osa030/19radio/internal/domain/station"
)

// StationView is the wire form of the station.
type StationView struct {
	Name  string `mapstructure:"name"`
	Genre string `mapstructure:"genre"`
	URL   string `mapstructure:"url"`
	Live  bool   `mapstructure:"live"`
}

// StateView is the wire form of the player state. Snapshot fields (Levels,
// Station) are only set by GetState; notification fields (Type, SequenceNo,
// Previous) only by WatchState.
type StateView struct {
	Status       string      `mapstructure:"status"`
	Volume       int         `mapstructure:"volume"`
	ErrorMessage string      `mapstructure:"error_message"`
	Active       bool        `mapstructure:"active"`
	Levels       []int       `mapstructure:"levels"`
	Station      StationView `mapstructure:"station"`
	Type         string      `mapstructure:"type"`
	SequenceNo   uint64      `mapstructure:"sequence_no"`
	Previous     string      `mapstructure:"previous"`
}

// HistoryEntryView is the wire form of a history entry.
type HistoryEntryView struct {
	ID          string    `mapstructure:"id"`
	StationName string    `mapstructure:"station_name"`
	Genre       string    `mapstructure:"genre"`
	URL         string    `mapstructure:"url"`
	PlayedAt    time.Time `mapstructure:"played_at"`
}

type historyView struct {
	Entries []HistoryEntryView `mapstructure:"entries"`
}

func stateFields(s playback.State) map[string]any {
	return map[string]any{
		"status":        s.Status.String(),
		"volume":        s.Volume,
		"error_message": s.ErrorMessage,
		"active":        s.IsActive(),
	}
}

func stationFields(st station.Station) map[string]any {
	return map[string]any{
		"name":  st.DisplayName(),
		"genre": st.Genre,
		"url":   st.URL,
		"live":  st.Live,
	}
}

// encodeSnapshot builds the GetState payload.
func encodeSnapshot(s playback.State, levels []int, st station.Station) (*structpb.Struct, error) {
	fields := stateFields(s)
	// structpb only accepts []any for lists
	values := make([]any, len(levels))
	for i, l := range levels {
		values[i] = l
	}
	fields["levels"] = values
	fields["station"] = stationFields(st)
	return newStruct(fields)
}

// encodeState builds the payload returned by control methods.
func encodeState(s playback.State) (*structpb.Struct, error) {
	return newStruct(stateFields(s))
}

// encodeNotification builds a WatchState message.
func encodeNotification(n notification.Notification) (*structpb.Struct, error) {
	fields := stateFields(n.State)
	fields["type"] = n.Type.String()
	fields["sequence_no"] = n.SequenceNo
	fields["previous"] = n.Previous.String()
	return newStruct(fields)
}

// encodeHistory builds the ListHistory payload.
func encodeHistory(entries []history.Entry) (*structpb.Struct, error) {
	values := make([]any, len(entries))
	for i, e := range entries {
		values[i] = map[string]any{
			"id":           e.ID,
			"station_name": e.StationName,
			"genre":        e.Genre,
			"url":          e.URL,
			"played_at":    e.PlayedAt.Format(time.RFC3339Nano),
		}
	}
	return newStruct(map[string]any{"entries": values})
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode message")
	}
	return s, nil
}

// decodeStruct decodes a Struct payload into out using mapstructure.
func decodeStruct(s *structpb.Struct, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(s.AsMap()); err != nil {
		return errors.Wrap(err, "failed to decode message")
	}
	return nil
}
