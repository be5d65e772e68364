// Package logging builds the process-wide zerolog logger from the loaded
// configuration. Console output is the default for interactive runs; json
// is for log shippers.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger at the requested level with the requested format.
// Unknown levels fall back to info, unknown formats to console.
func New(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stderr
	if format != "json" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// SetGlobal installs l as the zerolog package-level logger.
func SetGlobal(l zerolog.Logger) {
	log.Logger = l
}
