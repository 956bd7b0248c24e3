package pipeline

import (
	"time"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/registry"
	"github.com/jbenden/deployer/internal/result"
)

// Driver is the Pipeline Driver: it validates a document, builds it
// into executable nodes, and runs them in order, short-circuiting on
// the first failure.
type Driver struct {
	factory *Factory
}

// NewDriver returns a Driver whose Node Factory is bound to reg.
func NewDriver(reg *registry.Registry) *Driver {
	return &Driver{factory: New(reg)}
}

// Validate runs the validate phase only, used by the `validate` CLI
// subcommand.
func (d *Driver) Validate(nodes []document.Node) error {
	return d.factory.ValidateAll(nodes)
}

// Execute validates, builds, and runs nodes in document order against
// ctx, short-circuiting on the first failure and logging start/elapsed
// time at info level.
func (d *Driver) Execute(nodes []document.Node, ctx *handler.Context) (result.Result, error) {
	if err := d.factory.ValidateAll(nodes); err != nil {
		return result.Result{}, err
	}
	handlers, err := d.factory.BuildAll(nodes)
	if err != nil {
		return result.Result{}, err
	}

	start := time.Now()
	ctx.Logger.Infof("pipeline starting (%d top-level tasks)", len(handlers))

	res := result.Success()
	for _, h := range handlers {
		res = h.Execute(ctx)
		if res.Failed() {
			break
		}
	}

	ctx.Logger.Infof("pipeline finished with %s, in %0.9fs", res.Outcome, time.Since(start).Seconds())
	return res, nil
}
