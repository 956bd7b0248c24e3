package handlers

import (
	"context"
	"errors"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/procrunner"
	"github.com/jbenden/deployer/internal/rendering"
	"github.com/jbenden/deployer/internal/result"
)

// Command runs a program directly — without a shell between this
// process and the child — by rendering a single string and tokenizing
// it into argv using POSIX shell-word rules.
type Command struct {
	Template string
}

// Execute implements handler.Handler.
func (c *Command) Execute(ctx *handler.Context) result.Result {
	rendered, err := rendering.Render(c.Template, ctx.Variables.Bindings())
	if err != nil {
		ctx.Logger.Errorf("command: %v", err)
		return result.Failure()
	}
	argv, err := splitPosixWords(rendered)
	if err != nil {
		ctx.Logger.Errorf("command: %v", err)
		return result.Failure()
	}
	if len(argv) == 0 {
		ctx.Logger.Errorf("command: empty argv after rendering %q", c.Template)
		return result.Failure()
	}

	ctx.Logger.Debugf("running: %v", argv)
	res, err := ctx.Runner.Run(context.Background(), argv, procrunner.Options{Silent: ctx.Silent})
	if err != nil {
		var terminated *procrunner.ProcessTerminatedError
		if errors.As(err, &terminated) {
			ctx.Logger.Errorf("process failed and returned %d", terminated.ExitCode)
		} else {
			ctx.Logger.Errorf("command: %v", err)
		}
		return result.Failure()
	}
	return res
}

// CommandFactory returns the registrable handler.Factory for command.
func CommandFactory() handler.Factory {
	return handler.Factory{
		Tag:    "command",
		Schema: `{"type": "string", "minLength": 1}`,
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			return []handler.Handler{&Command{Template: payload.String()}}, nil
		},
	}
}
