package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures where run logs go.
type Options struct {
	// Dir receives one JSON log file per run. Empty disables the file sink.
	Dir   string
	Name  string
	Level string
	// Console mirrors entries to stderr in human-readable form.
	Console bool
}

func DefaultOptions() Options {
	return Options{
		Dir:     os.TempDir(),
		Name:    "aht",
		Level:   "info",
		Console: true,
	}
}

// LogFileName is <timestamp>_<sanitized name>.log.
func LogFileName(name string, now time.Time) string {
	return fmt.Sprintf("%s_%s.log", now.Format("2006-01-02_15-04-05"), sanitize(name))
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

func newCore(opts Options) (zapcore.Core, *os.File, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var cores []zapcore.Core
	var file *os.File

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err = os.Create(filepath.Join(opts.Dir, LogFileName(opts.Name, time.Now())))
		if err != nil {
			return nil, nil, fmt.Errorf("create log file: %w", err)
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}

	if opts.Console {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level))
	}

	return zapcore.NewTee(cores...), file, nil
}

// sanitize makes a scenario or run name safe for the file system.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		return "run"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}

// Sanitize is exported for other sinks that name files after scenarios.
func Sanitize(s string) string {
	return sanitize(s)
}
