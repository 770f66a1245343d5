package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup builds the process-wide structured logger and installs it as the slog
// default. Production environments ("prod", "production") log at info and
// above; everything else includes debug. Every line carries the service name
// and, when provided, the environment.
func Setup(service, env string) *slog.Logger {
	logger := newLogger(os.Stdout, service, env)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: levelFor(env),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	logger := slog.New(handler).With(slog.String("service", strings.TrimSpace(service)))
	if env = strings.ToLower(strings.TrimSpace(env)); env != "" {
		logger = logger.With(slog.String("env", env))
	}
	return logger
}

func levelFor(env string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
