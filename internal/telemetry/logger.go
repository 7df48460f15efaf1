// Package telemetry configures structured logging for the client: a
// colorized handler for an interactive terminal, a JSON handler for piped
// or non-interactive runs.
package telemetry

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Config selects logging level and output format.
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"
}

// New builds a *slog.Logger from Config, writing to stderr so stdout stays
// clean for any piped output.
func New(config Config) *slog.Logger {
	if config.Format == "json" {
		opts := &slog.HandlerOptions{
			Level: config.Level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.Attr{Key: a.Key, Value: slog.StringValue(a.Value.Time().Format(time.RFC3339))}
				}
				return a
			},
		}
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	opts := &tint.Options{
		Level:      config.Level,
		TimeFormat: time.Kitchen,
	}
	return slog.New(tint.NewHandler(os.Stderr, opts))
}

// ConfigFromFlags resolves a Config from the --log-level/--log-format CLI
// flags, defaulting to info/text for an interactive session.
func ConfigFromFlags(level, format string) Config {
	config := Config{Level: slog.LevelInfo, Format: "text"}
	switch level {
	case "debug":
		config.Level = slog.LevelDebug
	case "warn":
		config.Level = slog.LevelWarn
	case "error":
		config.Level = slog.LevelError
	}
	if format != "" {
		config.Format = format
		return config
	}
	if !isTTY(os.Stderr) {
		config.Format = "json"
	}
	return config
}
