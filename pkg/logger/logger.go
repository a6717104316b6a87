package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates the process-wide zerolog.Logger.
// level: debug, info, warn, error. pretty switches to human-readable
// console output for local runs; production stays structured JSON.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	return build(w, parseLevel(level), true)
}

// NewWithWriter creates a logger writing to a custom writer (useful for testing).
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return build(w, parseLevel(level), false)
}

func build(w io.Writer, lvl zerolog.Level, caller bool) zerolog.Logger {
	ctx := zerolog.New(w).Level(lvl).With().Timestamp()
	if caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// parseLevel maps a config string to a zerolog level. Unknown values
// fall back to info rather than failing startup.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
