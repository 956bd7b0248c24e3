package handlers

import (
	"strings"
	"testing"

	"github.com/jbenden/deployer/internal/result"
)

func TestFailAlwaysFails(t *testing.T) {
	ctx, logger := newTestContextT(t)
	f := &Fail{Message: "bye"}

	res := f.Execute(ctx)
	if res.Outcome != result.OutcomeFailure {
		t.Fatalf("Outcome = %v, want failure", res.Outcome)
	}
	if !strings.Contains(strings.Join(logger.lines, "\n"), "bye") {
		t.Fatalf("log lines = %v, want a line containing %q", logger.lines, "bye")
	}
}
