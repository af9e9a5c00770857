package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger создаёт настроенный zerolog, пишущий в stderr.
// Stdout остаётся за выводом CLI.
func NewLogger(appEnv string) zerolog.Logger {
	return NewLoggerTo(os.Stderr, appEnv)
}

// NewLoggerTo создаёт логгер с указанным приёмником.
func NewLoggerTo(w io.Writer, appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	switch appEnv {
	case "dev":
		level = zerolog.DebugLevel
	case "quiet":
		level = zerolog.WarnLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// Component возвращает логгер с полем component.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
