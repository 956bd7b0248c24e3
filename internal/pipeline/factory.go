// Package pipeline implements the Node Factory (two-phase
// validate-then-build over the document tree), the Executor Decorator,
// and the Pipeline Driver. The Execution Context lives in
// internal/handler.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/registry"
)

var commonDecoratorKeys = map[string]bool{
	"name": true, "when": true, "with_items": true,
	"attempts": true, "tags": true, "register": true,
}

// Factory is the Node Factory: it validates and builds a document tree
// against a Registry, and implements handler.Validator/handler.Builder
// so container handlers (stage, matrix) can recurse into it for their
// own nested task lists.
type Factory struct {
	reg      *registry.Registry
	schemas  map[string]*jsonschema.Schema
	tagStack []string
}

// New returns a Factory bound to reg.
func New(reg *registry.Registry) *Factory {
	return &Factory{reg: reg, schemas: make(map[string]*jsonschema.Schema)}
}

// ValidateAll implements handler.Validator.
func (f *Factory) ValidateAll(nodes []document.Node) error {
	for _, n := range nodes {
		if err := f.validateOne(n); err != nil {
			return err
		}
	}
	return nil
}

// BuildAll implements handler.Builder.
func (f *Factory) BuildAll(nodes []document.Node) ([]handler.Handler, error) {
	out := make([]handler.Handler, 0, len(nodes))
	for _, n := range nodes {
		built, err := f.buildOne(n)
		if err != nil {
			return nil, err
		}
		out = append(out, built...)
	}
	return out, nil
}

func (f *Factory) findHandlerKey(n document.Node) (key, tag string, fac handler.Factory, ok bool) {
	if n.Kind != document.Mapping {
		return "", "", handler.Factory{}, false
	}
	for _, k := range n.Keys {
		if commonDecoratorKeys[k] {
			continue
		}
		if t, f2, found := f.reg.Lookup(k); found {
			return k, t, f2, true
		}
	}
	return "", "", handler.Factory{}, false
}

func (f *Factory) validateOne(n document.Node) error {
	if n.Kind != document.Mapping {
		return &InvalidNodeError{Reason: "task node must be a mapping", Line: n.Line}
	}
	key, tag, fac, ok := f.findHandlerKey(n)
	if !ok {
		return &UnknownNodeError{Line: n.Line, Keys: n.Keys}
	}
	payload := n.Map[key]

	if fac.Valid != nil {
		if err := fac.Valid(payload, f); err != nil {
			return &InvalidNodeError{Tag: tag, Line: n.Line, Reason: err.Error()}
		}
	}
	if fac.Schema != "" {
		if err := f.validateSchema(tag, fac.Schema, document.ToValue(payload)); err != nil {
			return &InvalidNodeError{Tag: tag, Line: n.Line, Reason: err.Error()}
		}
	}
	if attemptsNode, ok := n.Get("attempts"); ok {
		f64, isNum := document.ToValue(attemptsNode).(float64)
		if !isNum || f64 < 1 {
			return &InvalidNodeError{Tag: tag, Line: n.Line, Reason: "attempts must be >= 1"}
		}
	}
	if tagsNode, ok := n.Get("tags"); ok {
		if _, isList := document.ToValue(tagsNode).([]any); !isList {
			return &InvalidNodeError{Tag: tag, Line: n.Line, Reason: "tags must be a list of strings"}
		}
	}
	return nil
}

func (f *Factory) validateSchema(tag, schemaSrc string, payload any) error {
	sch, err := f.compiledSchema(tag, schemaSrc)
	if err != nil {
		return err
	}
	return sch.Validate(payload)
}

func (f *Factory) compiledSchema(tag, src string) (*jsonschema.Schema, error) {
	if s, ok := f.schemas[tag]; ok {
		return s, nil
	}
	compiler := jsonschema.NewCompiler()
	resourceName := tag + ".json"
	if err := compiler.AddResource(resourceName, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("pipeline: schema for %q: %w", tag, err)
	}
	sch, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("pipeline: schema for %q: %w", tag, err)
	}
	f.schemas[tag] = sch
	return sch, nil
}

func (f *Factory) buildOne(n document.Node) ([]handler.Handler, error) {
	key, tag, fac, ok := f.findHandlerKey(n)
	if !ok {
		return nil, &UnknownNodeError{Line: n.Line, Keys: n.Keys}
	}
	payload := n.Map[key]

	name := tag
	if v, ok := n.Get("name"); ok {
		name = v.String()
	}

	var when any
	if v, ok := n.Get("when"); ok {
		when = document.ToValue(v)
	}

	var withItems any
	if v, ok := n.Get("with_items"); ok {
		withItems = document.ToValue(v)
	}

	attempts := 1
	if v, ok := n.Get("attempts"); ok {
		if f64, ok := document.ToValue(v).(float64); ok {
			attempts = int(f64)
		}
	}

	register := ""
	if v, ok := n.Get("register"); ok {
		register = v.String()
	}

	var tags []string
	if v, ok := n.Get("tags"); ok {
		if list, ok := document.ToValue(v).([]any); ok {
			for _, t := range list {
				tags = append(tags, fmt.Sprint(t))
			}
		}
	}
	tags = append(tags, f.tagStack...)

	f.tagStack = append(f.tagStack, tags...)
	built, err := fac.Build(payload, f)
	f.tagStack = f.tagStack[:len(f.tagStack)-len(tags)]
	if err != nil {
		return nil, fmt.Errorf("pipeline: building %q at line %d: %w", tag, n.Line, err)
	}

	out := make([]handler.Handler, 0, len(built))
	for _, inner := range built {
		out = append(out, &DecoratedNode{
			Name:      name,
			When:      when,
			WithItems: withItems,
			Attempts:  attempts,
			Register:  register,
			Tags:      tags,
			Inner:     inner,
		})
	}
	return out, nil
}
