package pipeline

import (
	"errors"
	"testing"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/registry"
	"github.com/jbenden/deployer/internal/result"
)

type stubHandler struct {
	label    string
	children []handler.Handler
}

func (h stubHandler) Execute(ctx *handler.Context) result.Result {
	for _, c := range h.children {
		if res := c.Execute(ctx); res.Failed() {
			return res
		}
	}
	return result.Success()
}

func echoFactory() handler.Factory {
	return handler.Factory{
		Tag: "echo",
		Valid: func(payload document.Node, v handler.Validator) error {
			if payload.Kind != document.Scalar {
				return errors.New("echo payload must be a scalar")
			}
			return nil
		},
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			return []handler.Handler{stubHandler{label: payload.String()}}, nil
		},
	}
}

func stageFactory() handler.Factory {
	return handler.Factory{
		Tag: "stage",
		Valid: func(payload document.Node, v handler.Validator) error {
			tasksNode, ok := payload.Get("tasks")
			if !ok {
				return errors.New("stage requires tasks")
			}
			return v.ValidateAll(tasksNode.Items)
		},
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			tasksNode, _ := payload.Get("tasks")
			children, err := b.BuildAll(tasksNode.Items)
			if err != nil {
				return nil, err
			}
			return []handler.Handler{stubHandler{label: "stage", children: children}}, nil
		},
	}
}

func newTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register(echoFactory())
	reg.Register(stageFactory())
	return reg
}

func TestValidateUnknownNode(t *testing.T) {
	reg := newTestRegistry()
	f := New(reg)
	nodes := []document.Node{
		{Kind: document.Mapping, Keys: []string{"bogus"}, Map: map[string]document.Node{
			"bogus": {Kind: document.Scalar, Value: "x"},
		}},
	}
	err := f.ValidateAll(nodes)
	if err == nil {
		t.Fatal("expected UnknownNodeError")
	}
	if _, ok := err.(*UnknownNodeError); !ok {
		t.Fatalf("got %T, want *UnknownNodeError", err)
	}
}

func TestValidateAndBuildEcho(t *testing.T) {
	reg := newTestRegistry()
	f := New(reg)
	nodes := []document.Node{
		{Kind: document.Mapping, Keys: []string{"echo"}, Map: map[string]document.Node{
			"echo": {Kind: document.Scalar, Value: "Hello"},
		}},
	}
	if err := f.ValidateAll(nodes); err != nil {
		t.Fatalf("ValidateAll error: %v", err)
	}
	built, err := f.BuildAll(nodes)
	if err != nil {
		t.Fatalf("BuildAll error: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("built %d nodes, want 1", len(built))
	}
}

func TestValidateRecursesIntoContainers(t *testing.T) {
	reg := newTestRegistry()
	f := New(reg)
	nodes := []document.Node{
		{Kind: document.Mapping, Keys: []string{"stage"}, Map: map[string]document.Node{
			"stage": {Kind: document.Mapping, Keys: []string{"tasks"}, Map: map[string]document.Node{
				"tasks": {Kind: document.Sequence, Items: []document.Node{
					{Kind: document.Mapping, Keys: []string{"bogus"}, Map: map[string]document.Node{
						"bogus": {Kind: document.Scalar, Value: "x"},
					}},
				}},
			}},
		}},
	}
	err := f.ValidateAll(nodes)
	if err == nil {
		t.Fatal("expected validation error from nested unknown node")
	}
}

func TestTagsInheritIntoNestedBuild(t *testing.T) {
	reg := newTestRegistry()
	f := New(reg)
	nodes := []document.Node{
		{Kind: document.Mapping, Keys: []string{"stage", "tags"}, Map: map[string]document.Node{
			"tags": {Kind: document.Sequence, Items: []document.Node{{Kind: document.Scalar, Value: "outer"}}},
			"stage": {Kind: document.Mapping, Keys: []string{"tasks"}, Map: map[string]document.Node{
				"tasks": {Kind: document.Sequence, Items: []document.Node{
					{Kind: document.Mapping, Keys: []string{"echo"}, Map: map[string]document.Node{
						"echo": {Kind: document.Scalar, Value: "inner"},
					}},
				}},
			}},
		}},
	}
	built, err := f.BuildAll(nodes)
	if err != nil {
		t.Fatalf("BuildAll error: %v", err)
	}
	outer, ok := built[0].(*DecoratedNode)
	if !ok {
		t.Fatalf("built[0] = %T", built[0])
	}
	if len(outer.Tags) != 1 || outer.Tags[0] != "outer" {
		t.Fatalf("outer.Tags = %v", outer.Tags)
	}
	stage, ok := outer.Inner.(stubHandler)
	if !ok || len(stage.children) != 1 {
		t.Fatalf("outer.Inner = %#v, want a stage stub with one child", outer.Inner)
	}
	inner, ok := stage.children[0].(*DecoratedNode)
	if !ok {
		t.Fatalf("stage child = %T", stage.children[0])
	}
	if len(inner.Tags) != 1 || inner.Tags[0] != "outer" {
		t.Fatalf("inner.Tags = %v, want [outer] inherited from the enclosing stage", inner.Tags)
	}
}
