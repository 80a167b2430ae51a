// Package audio provides the stream handle that fetches, decodes and plays
// the radio stream.
package audio

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Source opens the audio byte stream.
type Source interface {
	Connect(ctx context.Context) (io.ReadCloser, error)
}

// HTTPConfig holds HTTP source configuration.
type HTTPConfig struct {
	URL                   string
	UserAgent             string
	ConnectTimeout        time.Duration
	ResponseHeaderTimeout time.Duration
	Headers               map[string]string
}

// HTTPSource fetches a stream over HTTP(S).
type HTTPSource struct {
	cfg    HTTPConfig
	client *http.Client
}

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stream returned status %d: %s", e.StatusCode, e.Status)
}

// NewHTTP creates a new HTTP source.
func NewHTTP(cfg HTTPConfig) *HTTPSource {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	return &HTTPSource{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   0, // Streams are long-lived
		},
	}
}

// Connect issues the request and returns the response body.
func (h *HTTPSource) Connect(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	// Inline ICY metadata would corrupt the decoder input
	req.Header.Set("Icy-MetaData", "0")
	if h.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", h.cfg.UserAgent)
	}
	for k, v := range h.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "http request failed")
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.WithStack(&StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	return resp.Body, nil
}
