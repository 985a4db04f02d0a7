package logs

import (
	"io"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"github.com/heyimalex/mpstream/internal/config"
)

// New builds the command's logger. Console output goes to stderr so stdout
// stays free for the encoded body; cfg.File adds a rotated log file.
func New(cfg config.Log, stderr io.Writer) zerolog.Logger {
	level := ParseLevel(cfg.Level)

	writers := []io.Writer{zerolog.ConsoleWriter{Out: stderr, NoColor: true}}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
}

// ParseLevel maps a config level name to a zerolog level, falling back to
// info for empty or unknown names. It accepts what config.Verify accepts.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}
