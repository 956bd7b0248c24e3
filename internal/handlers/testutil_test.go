package handlers

import (
	"fmt"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/procrunner"
	"github.com/jbenden/deployer/internal/variables"
)

// recordingLogger captures every logged line so tests can assert on
// exact output.
type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Debugf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Infof(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Errorf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func newTestContext() (*handler.Context, *recordingLogger) {
	logger := &recordingLogger{}
	runner := procrunner.New(zerolog.New(io.Discard))
	ctx := &handler.Context{
		Variables: variables.NewStore(),
		Logger:    logger,
		Runner:    runner,
	}
	return ctx, logger
}

func newTestContextT(t *testing.T) (*handler.Context, *recordingLogger) {
	t.Helper()
	ctx, logger := newTestContext()
	t.Cleanup(ctx.Runner.Close)
	return ctx, logger
}
