package handlers

import (
	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/rendering"
	"github.com/jbenden/deployer/internal/result"
)

// Fail deliberately fails a pipeline, logging a rendered message.
type Fail struct {
	Message string
}

// Execute implements handler.Handler.
func (f *Fail) Execute(ctx *handler.Context) result.Result {
	rendered, err := rendering.Render(f.Message, ctx.Variables.Bindings())
	if err != nil {
		ctx.Logger.Errorf("fail: %v", err)
		return result.Failure()
	}
	ctx.Logger.Errorf("%s", rendered)
	return result.Failure()
}

// FailFactory returns the registrable handler.Factory for fail.
func FailFactory() handler.Factory {
	return handler.Factory{
		Tag:    "fail",
		Schema: scalarSchema,
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			return []handler.Handler{&Fail{Message: payload.String()}}, nil
		},
	}
}
