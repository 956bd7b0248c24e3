package handlers

import (
	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/rendering"
	"github.com/jbenden/deployer/internal/result"
)

// Continue evaluates a list of boolean expressions under `when`; if any
// evaluates true, it signals its enclosing container to short-circuit
// successfully via the continue outcome.
type Continue struct {
	Conditions []any // bool or string, per entry
}

// Execute implements handler.Handler.
func (c *Continue) Execute(ctx *handler.Context) result.Result {
	for _, cond := range c.Conditions {
		ok, err := rendering.EvaluateBool(cond, ctx.Variables.Bindings())
		if err != nil {
			ctx.Logger.Errorf("continue: %v", err)
			return result.Failure()
		}
		if ok {
			return result.Continue()
		}
	}
	return result.Success()
}

// ContinueFactory returns the registrable handler.Factory for continue.
func ContinueFactory() handler.Factory {
	return handler.Factory{
		Tag: "continue",
		Schema: `{
			"type": "object",
			"properties": {
				"when": {"type": "array", "items": {"type": ["boolean", "string"]}}
			},
			"required": ["when"],
			"additionalProperties": false
		}`,
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			c := &Continue{}
			if whenNode, ok := payload.Get("when"); ok {
				for _, item := range whenNode.Items {
					c.Conditions = append(c.Conditions, document.ToValue(item))
				}
			}
			return []handler.Handler{c}, nil
		},
	}
}
