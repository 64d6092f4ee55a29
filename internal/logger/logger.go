package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults, lumberjack semantics.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes the daemon's own log destination. When Dir is set the
// coordinator and each worker write rotated logs under it; otherwise logs go
// to stderr only.
type Config struct {
	Level      string `json:"level" mapstructure:"level"`
	Dir        string `json:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// Writer returns a rotating log writer for the named component
// (e.g. "replicad", "worker-ec2a2cb2"). Returns nil when Dir is unset.
func (c Config) Writer(name string) io.WriteCloser {
	if c.Dir == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   filepath.Join(c.Dir, name+".log"),
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// ParseLevel maps a config string to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds a slog.Logger for the named component and installs it as the
// process default. Console output is colorized; file output (when Dir is set)
// is plain text.
func Setup(c Config, name string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	var h slog.Handler
	if w := c.Writer(name); w != nil {
		h = slog.NewTextHandler(io.MultiWriter(os.Stderr, w), opts)
	} else {
		h = NewColorTextHandler(os.Stderr, opts)
	}
	l := slog.New(h).With("component", name)
	slog.SetDefault(l)
	return l
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
