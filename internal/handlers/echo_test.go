package handlers

import (
	"strings"
	"testing"

	"github.com/jbenden/deployer/internal/result"
)

func TestEchoLogsRenderedText(t *testing.T) {
	ctx, logger := newTestContextT(t)
	ctx.Variables.Set("name", "benden")
	e := &Echo{Text: "Hello {{ name }}"}

	res := e.Execute(ctx)
	if res.Outcome != result.OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}
	if !strings.Contains(strings.Join(logger.lines, "\n"), "Hello benden") {
		t.Fatalf("log lines = %v, want a line containing %q", logger.lines, "Hello benden")
	}
}

func TestEchoMultilineLogsOneLinePerLine(t *testing.T) {
	ctx, logger := newTestContextT(t)
	e := &Echo{Text: "a\nb\nc"}

	e.Execute(ctx)
	if len(logger.lines) != 3 {
		t.Fatalf("logged %d lines, want 3: %v", len(logger.lines), logger.lines)
	}
}
