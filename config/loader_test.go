package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 8080
timezone: Asia/Nicosia
schedule:
  dataDir: /srv/gtfs
  regions:
    - { name: EMEL, path: EMEL }
    - { name: Abs, path: /tmp/abs }
realtime:
  pollInterval: 15s
  feeds:
    - { name: EMEL, prefix: emel_, url: "http://localhost:9000/emel" }
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 15*time.Second, cfg.Realtime.PollInterval)
	assert.Equal(t, DefaultTimeout, cfg.Realtime.Timeout)
	assert.Equal(t, DefaultFeedDelay, cfg.Realtime.FeedDelay)
	assert.Equal(t, DefaultRegionDelay, cfg.Schedule.RegionDelay)
	assert.True(t, cfg.Schedule.FilterTodayEnabled())
	assert.Equal(t, filepath.Join("/srv/gtfs", "EMEL"), cfg.Schedule.Regions[0].Path)
	assert.Equal(t, "/tmp/abs", cfg.Schedule.Regions[1].Path)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Nicosia", loc.String())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TZ_NAME", "UTC")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"feed without url", "server: {port: 1}\nrealtime:\n  feeds:\n    - {name: a, prefix: a_}\n"},
		{"feed with unsupported scheme", "server: {port: 1}\nrealtime:\n  feeds:\n    - {name: a, prefix: a_, url: 'ftp://host/feed.pb'}\n"},
		{"feed url without host", "server: {port: 1}\nrealtime:\n  feeds:\n    - {name: a, prefix: a_, url: 'http://'}\n"},
		{"region without path", "server: {port: 1}\nschedule:\n  regions:\n    - {name: a}\n"},
		{"bad log level", "server: {port: 1}\nlogging: {level: loud}\n"},
		{"bad timezone", "server: {port: 1}\ntimezone: Mars/Olympus\n"},
		{"port out of range", "server: {port: 70000}\n"},
		{"broken yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_InvalidPortEnv(t *testing.T) {
	t.Setenv("PORT", "abc")
	_, err := Parse([]byte(sampleYAML))
	assert.Error(t, err)
}

func TestLoadAppConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cybus.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	require.Len(t, cfg.Realtime.Feeds, 1)
	assert.Equal(t, "emel_", cfg.Realtime.Feeds[0].Prefix)
}

func TestLoadAppConfig_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CYBUS_CONFIG", "")

	_, err := LoadAppConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorIs(t, err, ErrNoConfigFile)
}

func TestLoadAppConfig_RepositoryConfig(t *testing.T) {
	cfg, err := LoadAppConfig("../config.yml")
	require.NoError(t, err)
	assert.Len(t, cfg.Schedule.Regions, 7)
	assert.Len(t, cfg.Realtime.Feeds, 6)
	assert.Equal(t, "0 30 3 * * *", cfg.Schedule.ReloadCron)
}
