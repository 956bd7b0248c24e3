package handlers

import (
	"errors"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/rendering"
	"github.com/jbenden/deployer/internal/result"
)

// matrixEntry is one tag of a matrix's iteration; Env is non-nil only
// when `tags` used the mapping form, holding each env-var's unrendered
// value template.
type matrixEntry struct {
	Tag string
	Env map[string]string
}

// Matrix runs its nested tasks once per entry in an ordered set of
// tags, exposing the current tag (and the accumulated ancestor tag
// list, for nested matrices) to the variable store on each iteration.
type Matrix struct {
	Entries  []matrixEntry
	Children []handler.Handler
}

// Execute implements handler.Handler.
func (m *Matrix) Execute(ctx *handler.Context) result.Result {
	res := result.Success()
	for _, entry := range m.Entries {
		ctx.Logger.Debugf("beginning matrix entry: %s", entry.Tag)
		res = m.executeEntry(ctx, entry)
		ctx.Logger.Debugf("completed matrix entry: %s", entry.Tag)
		if res.Failed() {
			break
		}
	}
	if res.IsSkipped() || res.Outcome == result.OutcomeContinue {
		res = result.Success()
	}
	return res
}

func (m *Matrix) executeEntry(ctx *handler.Context, entry matrixEntry) result.Result {
	ctx.Variables.PushCopy()
	defer ctx.Variables.Pop()

	ctx.Variables.Set("matrix_tag", entry.Tag)
	prior, _ := ctx.Variables.Top()["matrix_list"].([]any)
	list := make([]any, 0, len(prior)+1)
	list = append(list, prior...)
	list = append(list, entry.Tag)
	ctx.Variables.Set("matrix_list", list)
	depth := len(list) - 1

	if len(entry.Env) > 0 {
		setKeys := make([]string, 0, len(entry.Env))
		defer func() {
			for _, key := range setKeys {
				os.Unsetenv(key)
			}
			ctx.Variables.RefreshEnv()
		}()
		for key, tmpl := range entry.Env {
			rendered, err := rendering.Render(tmpl, ctx.Variables.Bindings())
			if err != nil {
				ctx.Logger.Errorf("matrix: %v", err)
				return result.Failure()
			}
			os.Setenv(key, rendered)
			setKeys = append(setKeys, key)
		}
		ctx.Variables.RefreshEnv()
	}

	if depth < len(ctx.MatrixTagPatterns) {
		pattern := ctx.MatrixTagPatterns[depth]
		matched, err := doublestar.Match(pattern, entry.Tag)
		if err != nil {
			ctx.Logger.Errorf("matrix: bad tag pattern %q: %v", pattern, err)
			return result.Failure()
		}
		if !matched {
			return result.Skipped()
		}
	}

	res := result.Success()
	for _, c := range m.Children {
		res = c.Execute(ctx)
		if res.Failed() || res.Outcome == result.OutcomeContinue {
			break
		}
	}
	return res
}

// MatrixFactory returns the registrable handler.Factory for matrix.
func MatrixFactory() handler.Factory {
	return handler.Factory{
		Tag: "matrix",
		Valid: func(payload document.Node, v handler.Validator) error {
			tagsNode, ok := payload.Get("tags")
			if !ok {
				return errors.New("matrix requires tags")
			}
			if tagsNode.Kind != document.Sequence && tagsNode.Kind != document.Mapping {
				return errors.New("matrix tags must be a sequence of strings or a mapping of tag to env")
			}
			tasksNode, ok := payload.Get("tasks")
			if !ok || tasksNode.Kind != document.Sequence {
				return errNoTasks
			}
			return v.ValidateAll(tasksNode.Items)
		},
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			tagsNode, _ := payload.Get("tags")
			entries, err := buildMatrixEntries(tagsNode)
			if err != nil {
				return nil, err
			}

			tasksNode, _ := payload.Get("tasks")
			children, err := b.BuildAll(tasksNode.Items)
			if err != nil {
				return nil, err
			}
			return []handler.Handler{&Matrix{Entries: entries, Children: children}}, nil
		},
	}
}

func buildMatrixEntries(tagsNode document.Node) ([]matrixEntry, error) {
	var entries []matrixEntry
	switch tagsNode.Kind {
	case document.Sequence:
		for _, item := range tagsNode.Items {
			entries = append(entries, matrixEntry{Tag: item.String()})
		}
	case document.Mapping:
		for _, tag := range tagsNode.Keys {
			envNode := tagsNode.Map[tag]
			env := map[string]string{}
			if envNode.Kind == document.Mapping {
				for _, k := range envNode.Keys {
					env[k] = envNode.Map[k].String()
				}
			}
			entries = append(entries, matrixEntry{Tag: tag, Env: env})
		}
	default:
		return nil, errors.New("matrix tags must be a sequence of strings or a mapping of tag to env")
	}
	return entries, nil
}
