package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStation_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		station  Station
		expected string
	}{
		{
			name:     "explicit name",
			station:  Station{Name: "Jazz FM", URL: "https://stream.example.com/jazz"},
			expected: "Jazz FM",
		},
		{
			name:     "blank name falls back to host",
			station:  Station{Name: "  ", URL: "https://stream.example.com:8000/live"},
			expected: "stream.example.com:8000",
		},
		{
			name:     "unparseable url",
			station:  Station{URL: "://bad"},
			expected: "Radio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.station.DisplayName())
		})
	}
}

func TestStation_Same(t *testing.T) {
	a := Station{Name: "Jazz FM", URL: "https://stream.example.com/jazz"}
	assert.True(t, a.Same(Station{Name: "Jazz FM", URL: "https://stream.example.com/jazz", Genre: "Jazz"}))
	assert.False(t, a.Same(Station{Name: "Jazz FM", URL: "https://stream.example.com/other"}))
}
