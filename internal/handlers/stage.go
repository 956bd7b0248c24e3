package handlers

import (
	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/result"
)

// Stage groups nested tasks under an optional scope: when scoped, a
// copy of the top variable frame is pushed on entry and popped on
// exit, so variables set inside do not escape.
type Stage struct {
	Scope    bool
	Children []handler.Handler
}

// Execute implements handler.Handler.
func (s *Stage) Execute(ctx *handler.Context) result.Result {
	if s.Scope {
		ctx.Variables.PushCopy()
		defer ctx.Variables.Pop()
	}

	suffix := ""
	if s.Scope {
		suffix = " (with scope)"
	}
	ctx.Logger.Debugf("beginning stage%s", suffix)

	res := result.Success()
	for _, c := range s.Children {
		res = c.Execute(ctx)
		if res.Failed() || res.Outcome == result.OutcomeContinue {
			break
		}
	}
	ctx.Logger.Debugf("completed stage")

	if res.IsSkipped() || res.Outcome == result.OutcomeContinue {
		res = result.Success()
	}
	return res
}

// StageFactory returns the registrable handler.Factory for stage.
func StageFactory() handler.Factory {
	return handler.Factory{
		Tag: "stage",
		Valid: func(payload document.Node, v handler.Validator) error {
			tasksNode, ok := payload.Get("tasks")
			if !ok || tasksNode.Kind != document.Sequence {
				return errNoTasks
			}
			return v.ValidateAll(tasksNode.Items)
		},
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			scope := true
			if v, ok := payload.Get("scope"); ok {
				if bv, ok := document.ToValue(v).(bool); ok {
					scope = bv
				}
			}
			tasksNode, _ := payload.Get("tasks")
			children, err := b.BuildAll(tasksNode.Items)
			if err != nil {
				return nil, err
			}
			return []handler.Handler{&Stage{Scope: scope, Children: children}}, nil
		},
	}
}
