// Package station provides the Station domain entity.
package station

import (
	"net/url"
	"strings"
)

// Station represents the single fixed stream the player is bound to.
type Station struct {
	Name  string // Display name
	Genre string // Genre label shown on the station card
	URL   string // Stream endpoint
	Live  bool   // Live broadcast (as opposed to on-demand)
}

// Host returns the host part of the stream URL, or an empty string if the
// URL cannot be parsed.
func (s *Station) Host() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// DisplayName returns the station name, falling back to the stream host.
func (s *Station) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	if host := s.Host(); host != "" {
		return host
	}
	return "Radio"
}

// Same reports whether two stations refer to the same stream.
func (s *Station) Same(other Station) bool {
	return s.URL == other.URL && s.Name == other.Name
}
