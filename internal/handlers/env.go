package handlers

import (
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/result"
)

// Env manages the host process environment: removing keys matching one
// or more glob patterns, then setting a fixed mapping of keys to raw
// (unrendered by this handler) values.
type Env struct {
	Unset []string
	Set   []setEntry
}

// Execute implements handler.Handler.
func (e *Env) Execute(ctx *handler.Context) result.Result {
	for _, name := range os.Environ() {
		key := name
		if i := strings.IndexByte(name, '='); i >= 0 {
			key = name[:i]
		}
		for _, pattern := range e.Unset {
			matched, err := doublestar.Match(pattern, key)
			if err != nil {
				ctx.Logger.Errorf("env: bad unset pattern %q: %v", pattern, err)
				return result.Failure()
			}
			if matched {
				ctx.Logger.Debugf("removing %q from the system environment", key)
				os.Unsetenv(key)
				break
			}
		}
	}

	for _, entry := range e.Set {
		value := toEnvString(entry.Value)
		ctx.Logger.Debugf("setting %q to %q in the system environment", entry.Key, value)
		os.Setenv(entry.Key, value)
	}

	ctx.Variables.RefreshEnv()
	return result.Success()
}

func toEnvString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return document.Node{Kind: document.Scalar, Value: v}.String()
}

// EnvFactory returns the registrable handler.Factory for env.
func EnvFactory() handler.Factory {
	return handler.Factory{
		Tag: "env",
		Schema: `{
			"type": "object",
			"properties": {
				"set": {"type": "object", "additionalProperties": {"type": "string"}},
				"unset": {
					"oneOf": [
						{"type": "string", "minLength": 1},
						{"type": "array", "items": {"type": "string", "minLength": 1}}
					]
				}
			},
			"additionalProperties": false
		}`,
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			e := &Env{}
			if unsetNode, ok := payload.Get("unset"); ok {
				switch unsetNode.Kind {
				case document.Scalar:
					e.Unset = []string{unsetNode.String()}
				case document.Sequence:
					for _, item := range unsetNode.Items {
						e.Unset = append(e.Unset, item.String())
					}
				}
			}
			if setNode, ok := payload.Get("set"); ok && setNode.Kind == document.Mapping {
				for _, k := range setNode.Keys {
					e.Set = append(e.Set, setEntry{Key: k, Value: document.ToValue(setNode.Map[k])})
				}
			}
			return []handler.Handler{e}, nil
		},
	}
}
