package handlers

import "github.com/jbenden/deployer/internal/registry"

// RegisterAll registers the nine built-in task handlers into reg, in
// the fixed order the original pipeline ships them.
func RegisterAll(reg *registry.Registry) {
	reg.Register(EchoFactory())
	reg.Register(FailFactory())
	reg.Register(SetFactory())
	reg.Register(EnvFactory())
	reg.Register(CommandFactory())
	reg.Register(ShellFactory())
	reg.Register(ContinueFactory())
	reg.Register(StageFactory())
	reg.Register(MatrixFactory())
}
