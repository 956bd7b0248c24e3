// Package handler defines the shape every task kind implements: the
// three static operations (valid, build, execute) and the execution
// context they run against. Kept separate from internal/pipeline and
// internal/registry so neither depends on the concrete handler
// implementations in internal/handlers, avoiding an import cycle
// between the Node Factory and the handlers it builds.
package handler

import (
	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/procrunner"
	"github.com/jbenden/deployer/internal/result"
	"github.com/jbenden/deployer/internal/variables"
)

// Context carries everything a handler's Execute needs: the variable
// store, the user-selected tag filters, the matrix tag-pattern filter,
// and the process runner used by command/shell.
type Context struct {
	Variables         *variables.Store
	SelectedTags      map[string]struct{}
	MatrixTagPatterns []string
	Runner            *procrunner.Runner
	Logger            Logger
	Silent            bool
}

// Logger is the minimal logging surface handlers need; satisfied by a
// thin adapter over zerolog.Logger so this package stays free of a
// direct zerolog dependency.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// Handler is a concrete, built task instance ready to execute. Every
// built node in a pipeline — whether a leaf task or a container holding
// nested tasks — satisfies this single interface.
type Handler interface {
	Execute(ctx *Context) result.Result
}

// Builder lets a container handler (stage, matrix) recursively build
// its nested task list without importing the Node Factory directly;
// the Node Factory passes itself as a Builder when invoking a
// handler's BuildFunc.
type Builder interface {
	BuildAll(nodes []document.Node) ([]Handler, error)
}

// Validator lets a container handler recursively validate its nested
// task list during the validate phase, the same way Builder lets it
// recurse during build.
type Validator interface {
	ValidateAll(nodes []document.Node) error
}

// ValidFunc checks a handler-specific payload (node[tag], not the whole
// document node) for structural validity, recursing into v for any
// nested task list.
type ValidFunc func(payload document.Node, v Validator) error

// BuildFunc constructs one or more Handler instances from a validated
// payload. Most handlers build exactly one; container handlers with
// nested tasks call back into b to build their children.
type BuildFunc func(payload document.Node, b Builder) ([]Handler, error)

// Factory bundles a handler tag's validate/build pair plus its JSON
// Schema source, as registered once at startup.
type Factory struct {
	Tag    string
	Valid  ValidFunc
	Build  BuildFunc
	Schema string // JSON Schema source describing node[Tag]'s shape
}
