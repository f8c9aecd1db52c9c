package internal

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"github.com/Danyokkk/cybus/config"
)

// InitLogging builds the process logger: console or JSON on stdout, plus a
// rotating file when cfg.File is set. It also sets the zerolog global level.
func InitLogging(cfg config.LoggingConfig) zerolog.Logger {
	return NewLogger(cfg, os.Stdout)
}

// NewLogger is InitLogging with an explicit stdout writer.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"})
	} else {
		writers = append(writers, out)
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   true,
		})
	}

	return zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().Timestamp().Str("service", "cybus").
		Logger()
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
