// Package logging adapts zerolog to the handler.Logger interface and
// sets up the process-wide writer: a human-readable console writer by
// default, switching to plain JSON lines under --debug (matching the
// teacher's own console/JSON writer selection) and to error-level-only
// under --silent.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbenden/deployer/internal/handler"
)

// Options configures New.
type Options struct {
	Debug  bool
	Silent bool
}

// New builds a zerolog.Logger per Options: --debug lowers the level to
// debug and writes structured JSON (useful for piping into another
// tool); --silent raises the level to error-only; the default is
// info-level output through a console writer.
func New(opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	var out io.Writer = os.Stderr

	switch {
	case opts.Silent:
		level = zerolog.ErrorLevel
	case opts.Debug:
		level = zerolog.DebugLevel
	}

	if !opts.Debug {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Adapter satisfies handler.Logger by forwarding to a zerolog.Logger.
type Adapter struct {
	log zerolog.Logger
}

// NewAdapter wraps log as a handler.Logger.
func NewAdapter(log zerolog.Logger) handler.Logger {
	return Adapter{log: log}
}

func (a Adapter) Debugf(format string, args ...any) { a.log.Debug().Msgf(format, args...) }
func (a Adapter) Infof(format string, args ...any)  { a.log.Info().Msgf(format, args...) }
func (a Adapter) Errorf(format string, args ...any) { a.log.Error().Msgf(format, args...) }
