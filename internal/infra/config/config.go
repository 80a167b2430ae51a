// Package config provides configuration loading from YAML files.
package config

import (
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/19radio/internal/domain/station"
)

// DefaultStreamURL is the stream used when none is configured.
const DefaultStreamURL = "https://ice1.somafm.com/groovesalad-128-mp3"

// Config represents the application configuration.
type Config struct {
	Stream  StreamConfig  `yaml:"stream"`
	Player  PlayerConfig  `yaml:"player"`
	Visual  VisualConfig  `yaml:"visual"`
	History HistoryConfig `yaml:"history"`
	Server  ServerConfig  `yaml:"server"`
}

// StreamConfig represents the fixed stream endpoint.
type StreamConfig struct {
	URL                     string `yaml:"url" default:"https://ice1.somafm.com/groovesalad-128-mp3" validate:"required,url"`
	Name                    string `yaml:"name" default:"Groove Salad"`
	Genre                   string `yaml:"genre" default:"Ambient"`
	Live                    bool   `yaml:"live"`
	UserAgent               string `yaml:"user_agent" default:"19radio/1.0"`
	ConnectTimeoutMs        int    `yaml:"connect_timeout_ms" default:"10000" validate:"gte=100,lte=120000"`
	ResponseHeaderTimeoutMs int    `yaml:"response_header_timeout_ms" default:"15000" validate:"gte=100,lte=120000"`
}

// PlayerConfig represents playback configuration.
type PlayerConfig struct {
	InitialVolume *int `yaml:"initial_volume" default:"75" validate:"required,gte=0,lte=100"`
	Autoplay      bool `yaml:"autoplay"`
}

// VisualConfig represents waveform configuration.
type VisualConfig struct {
	Bars      int `yaml:"bars" default:"20" validate:"gte=1,lte=200"`
	Min       int `yaml:"min" default:"20" validate:"gte=0,lte=100"`
	Max       int `yaml:"max" default:"80" validate:"gte=0,lte=100,gtefield=Min"`
	DecayStep int `yaml:"decay_step" default:"5" validate:"gte=1,lte=100"`
	TickMs    int `yaml:"tick_ms" default:"33" validate:"gte=5,lte=1000"`
}

// HistoryConfig represents listening history configuration.
type HistoryConfig struct {
	Size int `yaml:"size" default:"10" validate:"gte=1,lte=100"`
}

// ServerConfig represents remote control server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:"127.0.0.1:8765"`
	Token string      `yaml:"token"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents shell commands run around the server lifetime.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	var cfg Config
	// Defaults are static tags; Set cannot fail on this struct.
	_ = defaults.Set(&cfg)
	return &cfg
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("RADIO_STREAM_URL"); v != "" {
		c.Stream.URL = v
	}
	if v := os.Getenv("RADIO_STREAM_NAME"); v != "" {
		c.Stream.Name = v
	}
	if v := os.Getenv("RADIO_CONTROL_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("RADIO_LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("RADIO_INITIAL_VOLUME"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid RADIO_INITIAL_VOLUME %q", v)
		}
		c.Player.InitialVolume = &n
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// Station returns the configured station.
func (c *Config) Station() station.Station {
	return station.Station{
		Name:  c.Stream.Name,
		Genre: c.Stream.Genre,
		URL:   c.Stream.URL,
		Live:  c.Stream.Live,
	}
}

// Volume returns the initial volume.
func (c *Config) Volume() int {
	if c.Player.InitialVolume == nil {
		return 75
	}
	return *c.Player.InitialVolume
}

// ConnectTimeout returns the stream connect timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Stream.ConnectTimeoutMs) * time.Millisecond
}

// ResponseHeaderTimeout returns the stream response header timeout.
func (c *Config) ResponseHeaderTimeout() time.Duration {
	return time.Duration(c.Stream.ResponseHeaderTimeoutMs) * time.Millisecond
}

// TickInterval returns the waveform tick interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Visual.TickMs) * time.Millisecond
}
