package pipeline

import (
	"fmt"
	"time"

	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/literal"
	"github.com/jbenden/deployer/internal/rendering"
	"github.com/jbenden/deployer/internal/result"
)

// retryBackoff sleeps between retry attempts; count²  seconds per the
// spec. Overridable in tests so a multi-attempt retry test doesn't
// actually block for real wall-clock seconds.
var retryBackoff = time.Sleep

// DecoratedNode is the Executor Decorator described in the component
// design: it wraps a built handler instance with the common decorators
// (name, when, with_items, attempts, tags, register) and applies them,
// in order, around every call to the wrapped handler's Execute.
type DecoratedNode struct {
	Name      string
	When      any // nil, bool, or string
	WithItems any // nil, []any, or string
	Attempts  int
	Register  string
	Tags      []string
	Inner     handler.Handler
}

// Execute implements handler.Handler, so a DecoratedNode can itself be
// nested inside a container handler's task list.
func (n *DecoratedNode) Execute(ctx *handler.Context) result.Result {
	if len(ctx.SelectedTags) > 0 && len(n.Tags) > 0 && tagsDisjoint(n.Tags, ctx.SelectedTags) {
		return result.Skipped()
	}

	if n.When != nil {
		ok, err := rendering.EvaluateBool(n.When, ctx.Variables.Bindings())
		if err != nil {
			ctx.Logger.Errorf("%s: when evaluation failed: %v", n.Name, err)
			return result.Failure()
		}
		if !ok {
			return result.Skipped()
		}
	}

	if n.WithItems != nil {
		return n.executeWithItems(ctx)
	}

	res := n.executeWithRetry(ctx)
	return n.captureRegister(ctx, res)
}

func (n *DecoratedNode) executeWithItems(ctx *handler.Context) result.Result {
	items, err := n.resolveItems(ctx)
	if err != nil {
		ctx.Logger.Errorf("%s: with_items evaluation failed: %v", n.Name, err)
		return result.Failure()
	}

	res := result.Success()
	for _, item := range items {
		ctx.Variables.PushCopy()
		ctx.Variables.Set("item", item)
		res = n.executeWithRetry(ctx)
		ctx.Variables.Pop()
		if res.Failed() {
			break
		}
	}
	return n.captureRegister(ctx, res)
}

func (n *DecoratedNode) resolveItems(ctx *handler.Context) ([]any, error) {
	switch v := n.WithItems.(type) {
	case []any:
		return v, nil
	case string:
		rendered, err := rendering.Render(v, ctx.Variables.Bindings())
		if err != nil {
			return nil, err
		}
		val, err := literal.Eval(rendered)
		if err != nil {
			return nil, err
		}
		items, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("with_items must evaluate to a list, got %T", val)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("with_items must be a list or a string, got %T", v)
	}
}

func (n *DecoratedNode) executeWithRetry(ctx *handler.Context) result.Result {
	attempts := n.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var res result.Result
	for count := 1; count <= attempts; count++ {
		ctx.Logger.Debugf("%s is starting", n.Name)
		start := time.Now()
		res = func() (r result.Result) {
			defer func() {
				if p := recover(); p != nil {
					ctx.Logger.Errorf("%s: handler panicked: %v", n.Name, p)
					r = result.Failure()
				}
			}()
			return n.Inner.Execute(ctx)
		}()
		elapsed := time.Since(start)
		ctx.Logger.Debugf("%s has finished with %s, in %0.9fs", n.Name, res.Outcome, elapsed.Seconds())
		if res.Succeeded() {
			break
		}
		if count < attempts {
			retryBackoff(time.Duration(count*count) * time.Second)
		}
	}
	return res
}

func (n *DecoratedNode) captureRegister(ctx *handler.Context, res result.Result) result.Result {
	if res.Succeeded() && n.Register != "" {
		ctx.Variables.Set(n.Register, res)
	}
	return res
}

func tagsDisjoint(tags []string, selected map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := selected[t]; ok {
			return false
		}
	}
	return true
}
