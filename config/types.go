package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gt=0,lt=65536"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LoggingConfig controls log level, format and optional file output
type LoggingConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Console    bool   `yaml:"console"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"gte=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"maxAgeDays" validate:"gte=0"`
}

// Region is a single operator's static GTFS bundle (directory or .zip)
type Region struct {
	Name string `yaml:"name" validate:"required"`
	Path string `yaml:"path" validate:"required"`
}

// ScheduleConfig contains static schedule loading configuration
type ScheduleConfig struct {
	DataDir       string        `yaml:"dataDir"`
	Regions       []Region      `yaml:"regions" validate:"dive"`
	FilterToday   *bool         `yaml:"filterToday"`
	RegionDelay   time.Duration `yaml:"regionDelay" validate:"gte=0"`
	ReloadCron    string        `yaml:"reloadCron"`
	LookaheadDays int           `yaml:"lookaheadDays" validate:"gte=0"`
}

// Feed is a single GTFS-Realtime endpoint bound to a region prefix. URL may
// also be a file:// URL or a path to a saved feed dump.
type Feed struct {
	Name   string `yaml:"name" validate:"required"`
	Prefix string `yaml:"prefix" validate:"required"`
	URL    string `yaml:"url" validate:"required,feedurl"`
}

// RealtimeConfig contains GTFS-Realtime polling configuration
type RealtimeConfig struct {
	Feeds        []Feed        `yaml:"feeds" validate:"dive"`
	PollInterval time.Duration `yaml:"pollInterval" validate:"gte=0"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
	FeedDelay    time.Duration `yaml:"feedDelay" validate:"gte=0"`
	MaxBackoff   time.Duration `yaml:"maxBackoff" validate:"gte=0"`
	UserAgent    string        `yaml:"userAgent"`
}

// NATSConfig enables publishing of installed snapshots. Empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url" validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	Logging  LoggingConfig  `yaml:"logging"`
	Timezone string         `yaml:"timezone"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Realtime RealtimeConfig `yaml:"realtime"`
	NATS     NATSConfig     `yaml:"nats"`
}

// FilterTodayEnabled reports whether the loader restricts trips to today's services.
func (c ScheduleConfig) FilterTodayEnabled() bool {
	return c.FilterToday == nil || *c.FilterToday
}
