// Package handlers implements the nine built-in task handlers (echo,
// fail, set, env, command, shell, continue, stage, matrix) over the
// shared handler.Handler/handler.Factory contract.
package handlers

import (
	"strings"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/rendering"
	"github.com/jbenden/deployer/internal/result"
)

const scalarSchema = `{"type": ["string", "boolean", "number", "null"]}`

// Echo prints a rendered line (or lines) to the log; it always
// succeeds.
type Echo struct {
	Text string
}

// Execute implements handler.Handler.
func (e *Echo) Execute(ctx *handler.Context) result.Result {
	rendered, err := rendering.Render(e.Text, ctx.Variables.Bindings())
	if err != nil {
		ctx.Logger.Errorf("echo: %v", err)
		return result.Failure()
	}
	for _, line := range strings.Split(rendered, "\n") {
		ctx.Logger.Infof("| %s", line)
	}
	return result.Success()
}

// EchoFactory returns the registrable handler.Factory for echo.
func EchoFactory() handler.Factory {
	return handler.Factory{
		Tag:    "echo",
		Schema: scalarSchema,
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			return []handler.Handler{&Echo{Text: payload.String()}}, nil
		},
	}
}
