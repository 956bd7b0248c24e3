package pipeline

import (
	"testing"
	"time"

	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/result"
	"github.com/jbenden/deployer/internal/variables"
)

func init() {
	retryBackoff = func(time.Duration) {}
}

type nullLogger struct{}

func (nullLogger) Debugf(string, ...any) {}
func (nullLogger) Infof(string, ...any)  {}
func (nullLogger) Errorf(string, ...any) {}

type countingHandler struct {
	calls int
	fail  int // fail this many times before succeeding; 0 means never fail
}

func (h *countingHandler) Execute(ctx *handler.Context) result.Result {
	h.calls++
	if h.calls <= h.fail {
		return result.Failure()
	}
	return result.Success()
}

func newCtx() *handler.Context {
	return &handler.Context{
		Variables: variables.NewStore(),
		Logger:    nullLogger{},
	}
}

func TestDecoratedNodeTagGateSkips(t *testing.T) {
	inner := &countingHandler{}
	n := &DecoratedNode{Name: "t", Tags: []string{"slow"}, Inner: inner}
	ctx := newCtx()
	ctx.SelectedTags = map[string]struct{}{"fast": {}}

	res := n.Execute(ctx)
	if res.Outcome != result.OutcomeSkipped {
		t.Fatalf("Outcome = %v, want skipped", res.Outcome)
	}
	if inner.calls != 0 {
		t.Fatalf("inner handler called %d times, want 0", inner.calls)
	}
}

func TestDecoratedNodeTagGateRunsOnOverlap(t *testing.T) {
	inner := &countingHandler{}
	n := &DecoratedNode{Name: "t", Tags: []string{"slow", "fast"}, Inner: inner}
	ctx := newCtx()
	ctx.SelectedTags = map[string]struct{}{"fast": {}}

	res := n.Execute(ctx)
	if res.Outcome != result.OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}
}

func TestDecoratedNodeWhenFalseSkips(t *testing.T) {
	inner := &countingHandler{}
	n := &DecoratedNode{Name: "t", When: "1 == 2", Inner: inner}
	res := n.Execute(newCtx())
	if res.Outcome != result.OutcomeSkipped {
		t.Fatalf("Outcome = %v, want skipped", res.Outcome)
	}
}

func TestDecoratedNodeRetriesUntilSuccess(t *testing.T) {
	inner := &countingHandler{fail: 2}
	n := &DecoratedNode{Name: "t", Attempts: 3, Inner: inner}
	res := n.Execute(newCtx())
	if res.Outcome != result.OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestDecoratedNodeExhaustsAttempts(t *testing.T) {
	inner := &countingHandler{fail: 10}
	n := &DecoratedNode{Name: "t", Attempts: 2, Inner: inner}
	res := n.Execute(newCtx())
	if res.Outcome != result.OutcomeFailure {
		t.Fatalf("Outcome = %v, want failure", res.Outcome)
	}
	if inner.calls != 2 {
		t.Fatalf("calls = %d, want 2", inner.calls)
	}
}

func TestDecoratedNodeWithItemsRunsEach(t *testing.T) {
	inner := &countingHandler{}
	n := &DecoratedNode{Name: "t", WithItems: []any{"a", "b", "c"}, Inner: inner}
	res := n.Execute(newCtx())
	if res.Outcome != result.OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestDecoratedNodeWithItemsBreaksOnFailure(t *testing.T) {
	inner := &countingHandler{fail: 100}
	n := &DecoratedNode{Name: "t", WithItems: []any{"a", "b", "c"}, Inner: inner}
	res := n.Execute(newCtx())
	if res.Outcome != result.OutcomeFailure {
		t.Fatalf("Outcome = %v, want failure", res.Outcome)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1 (short-circuit on first failure)", inner.calls)
	}
}

func TestDecoratedNodeRegisterCapturesResult(t *testing.T) {
	inner := &countingHandler{}
	n := &DecoratedNode{Name: "t", Register: "out", Inner: inner}
	ctx := newCtx()
	n.Execute(ctx)
	v := ctx.Variables.Top()["out"]
	res, ok := v.(result.Result)
	if !ok || res.Outcome != result.OutcomeSuccess {
		t.Fatalf("registered value = %#v", v)
	}
}
