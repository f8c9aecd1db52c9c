package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort         = 3001
	DefaultTimezone     = "Asia/Nicosia"
	DefaultPollInterval = 40 * time.Second
	DefaultTimeout      = 10 * time.Second
	DefaultFeedDelay    = time.Second
	DefaultRegionDelay  = 500 * time.Millisecond
	DefaultMaxBackoff   = 5 * time.Minute
	DefaultUserAgent    = "cybus/1.0"
	DefaultLookahead    = 366
)

// ErrNoConfigFile is returned when none of the candidate paths exist
var ErrNoConfigFile = errors.New("config: no config file found")

// LoadAppConfig loads, overrides and validates the application configuration.
// Explicit paths are tried first, then $CYBUS_CONFIG, config.yml and ./config/config.yml.
func LoadAppConfig(paths ...string) (*AppConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	candidates := append([]string{}, paths...)
	if p := os.Getenv("CYBUS_CONFIG"); p != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, "config.yml", "./config/config.yml")

	var data []byte
	var err error
	for _, p := range candidates {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, ErrNoConfigFile
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies environment overrides and defaults, then validates.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	v, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TZ_NAME"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("GTFS_DATA_DIR"); v != "" {
		cfg.Schedule.DataDir = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Schedule.RegionDelay == 0 {
		cfg.Schedule.RegionDelay = DefaultRegionDelay
	}
	if cfg.Schedule.LookaheadDays == 0 {
		cfg.Schedule.LookaheadDays = DefaultLookahead
	}
	if cfg.Schedule.DataDir != "" {
		for i, r := range cfg.Schedule.Regions {
			if !filepath.IsAbs(r.Path) {
				cfg.Schedule.Regions[i].Path = filepath.Join(cfg.Schedule.DataDir, r.Path)
			}
		}
	}
	if cfg.Realtime.PollInterval == 0 {
		cfg.Realtime.PollInterval = DefaultPollInterval
	}
	if cfg.Realtime.Timeout == 0 {
		cfg.Realtime.Timeout = DefaultTimeout
	}
	if cfg.Realtime.FeedDelay == 0 {
		cfg.Realtime.FeedDelay = DefaultFeedDelay
	}
	if cfg.Realtime.MaxBackoff == 0 {
		cfg.Realtime.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.Realtime.UserAgent == "" {
		cfg.Realtime.UserAgent = DefaultUserAgent
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "cybus"
	}
}

// Location resolves the configured timezone used for service dates and clock times
func (c *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
