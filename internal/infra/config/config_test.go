package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func validConfig() Config {
	return *Default()
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "defaults are valid",
			modify:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing stream url",
			modify:  func(c *Config) { c.Stream.URL = "" },
			wantErr: true,
			errMsg:  "URL",
		},
		{
			name:    "invalid stream url",
			modify:  func(c *Config) { c.Stream.URL = "not a url" },
			wantErr: true,
			errMsg:  "URL",
		},
		{
			name:    "volume above range",
			modify:  func(c *Config) { c.Player.InitialVolume = intPtr(101) },
			wantErr: true,
			errMsg:  "InitialVolume",
		},
		{
			name:    "volume zero is allowed",
			modify:  func(c *Config) { c.Player.InitialVolume = intPtr(0) },
			wantErr: false,
		},
		{
			name:    "visual band inverted",
			modify:  func(c *Config) { c.Visual.Min = 70; c.Visual.Max = 30 },
			wantErr: true,
			errMsg:  "Max",
		},
		{
			name:    "zero decay step",
			modify:  func(c *Config) { c.Visual.DecayStep = 0 },
			wantErr: true,
			errMsg:  "DecayStep",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultStreamURL, cfg.Stream.URL)
	assert.Equal(t, 75, cfg.Volume())
	assert.Equal(t, 20, cfg.Visual.Bars)
	assert.Equal(t, 20, cfg.Visual.Min)
	assert.Equal(t, 80, cfg.Visual.Max)
	assert.Equal(t, 5, cfg.Visual.DecayStep)
	assert.Equal(t, 33, cfg.Visual.TickMs)
	assert.Equal(t, 10, cfg.History.Size)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radio.yaml")
	content := `
stream:
  url: https://stream.example.com/jazz
  name: Jazz FM
  genre: Jazz
  live: true
player:
  initial_volume: 0
  autoplay: true
visual:
  bars: 32
server:
  addr: ":9000"
  hooks:
    on_started:
      - echo started
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("RADIO_CONTROL_TOKEN", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://stream.example.com/jazz", cfg.Stream.URL)
	assert.Equal(t, 0, cfg.Volume(), "explicit zero volume must survive defaults")
	assert.Equal(t, 32, cfg.Visual.Bars)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "secret", cfg.Server.Token)
	assert.True(t, cfg.Player.Autoplay)
	assert.Equal(t, []string{"echo started"}, cfg.Server.Hooks.OnStarted)
	assert.Empty(t, cfg.Server.Hooks.OnStopped)

	st := cfg.Station()
	assert.Equal(t, "Jazz FM", st.Name)
	assert.Equal(t, "Jazz", st.Genre)
	assert.True(t, st.Live)
}

func TestLoad_EnvStreamURL(t *testing.T) {
	t.Setenv("RADIO_STREAM_URL", "https://override.example.com/live")
	t.Setenv("RADIO_INITIAL_VOLUME", "40")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com/live", cfg.Stream.URL)
	assert.Equal(t, 40, cfg.Volume())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "malformed yaml", content: "stream: [unclosed"},
		{name: "invalid url", content: "stream:\n  url: nope\n"},
		{name: "bad env volume", content: "", env: map[string]string{"RADIO_INITIAL_VOLUME": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "radio.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(33), cfg.TickInterval().Milliseconds())
	assert.Equal(t, int64(10000), cfg.ConnectTimeout().Milliseconds())
	assert.Equal(t, int64(15000), cfg.ResponseHeaderTimeout().Milliseconds())
}
