package handlers

import (
	"testing"

	"github.com/jbenden/deployer/internal/result"
)

func TestCommandRunsRenderedArgv(t *testing.T) {
	ctx, logger := newTestContextT(t)
	ctx.Variables.Set("greeting", "hi")
	c := &Command{Template: "echo {{ greeting }}"}

	res := c.Execute(ctx)
	if res.Outcome != result.OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success; log: %v", res.Outcome, logger.lines)
	}
}

func TestCommandNonexistentBinaryFails(t *testing.T) {
	ctx, _ := newTestContextT(t)
	c := &Command{Template: "/nonexistent-binary-deployer-test"}

	res := c.Execute(ctx)
	if res.Outcome != result.OutcomeFailure {
		t.Fatalf("Outcome = %v, want failure", res.Outcome)
	}
}

func TestCommandUnterminatedQuoteFails(t *testing.T) {
	ctx, _ := newTestContextT(t)
	c := &Command{Template: `echo "unterminated`}

	res := c.Execute(ctx)
	if res.Outcome != result.OutcomeFailure {
		t.Fatalf("Outcome = %v, want failure", res.Outcome)
	}
}
