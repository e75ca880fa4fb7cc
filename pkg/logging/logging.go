// Package logging configures zerolog for the mailrender commands.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options drive Setup.
type Options struct {
	// Level is a zerolog level name ("debug", "info", ...). Empty means warn.
	Level string
	// Format is "console" (default) or "json".
	Format string
	// Out defaults to os.Stderr.
	Out io.Writer
}

// Setup builds the process logger. Unknown levels fall back to warn.
func Setup(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}

	var writer io.Writer = out
	if !strings.EqualFold(opts.Format, "json") {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
		}
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// LevelForVerbosity maps a -v count to a level name.
func LevelForVerbosity(verbosity int) string {
	switch verbosity {
	case 0:
		return ""
	case 1:
		return zerolog.InfoLevel.String()
	case 2:
		return zerolog.DebugLevel.String()
	default:
		return zerolog.TraceLevel.String()
	}
}

// Component returns a child logger tagged with a component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// LogDuration logs the duration of an operation
func LogDuration(logger zerolog.Logger, start time.Time, operation string) {
	logger.Debug().
		Str("operation", operation).
		Dur("duration", time.Since(start)).
		Msg("Operation completed")
}
