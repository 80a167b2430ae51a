package audio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.Header.Get("Icy-MetaData"))
		assert.Equal(t, "19radio/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))

		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("audio data"))
	}))
	defer server.Close()

	src := NewHTTP(HTTPConfig{
		URL:                   server.URL,
		UserAgent:             "19radio/test",
		ConnectTimeout:        5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		Headers:               map[string]string{"X-Extra": "yes"},
	})

	reader, err := src.Connect(context.Background())
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "audio data", string(data))
}

func TestHTTPSource_NonOKStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "forbidden", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewHTTP(HTTPConfig{URL: server.URL}).Connect(context.Background())
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
		})
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTP(HTTPConfig{URL: url, ConnectTimeout: time.Second}).Connect(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := newAudioServer(t)
	_, err := NewHTTP(HTTPConfig{URL: server.URL}).Connect(ctx)
	assert.Error(t, err)
}
