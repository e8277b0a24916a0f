package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lendware/availability-core/internal/infrastructure/config"
)

// Logger is the service-wide structured logger. It embeds slog.Logger, so
// all the usual Info/Warn/Error/Debug methods with key-value args apply.
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml, stamping
// every entry with the service name and version.
func New(cfg config.LoggingConfig, version string) *Logger {
	return &Logger{Logger: slog.New(newHandler(destination(cfg.Output), cfg, version))}
}

// With returns a child logger carrying extra default attributes, typically
// a component tag:
//
//	dispatcherLog := logger.With("component", "outbox")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a JSON/info/stdout logger for use before the config file
// has been loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// newHandler picks the handler format (JSON unless "text" is asked for)
// and attaches the default attributes.
func newHandler(w io.Writer, cfg config.LoggingConfig, version string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return handler.WithAttrs([]slog.Attr{
		slog.String("service", "availability-core"),
		slog.String("version", version),
	})
}

func destination(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps a config level string to slog.Level, defaulting to info
// for anything unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
