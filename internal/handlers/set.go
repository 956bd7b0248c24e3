package handlers

import (
	"errors"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/result"
)

// setEntry is one key/value pair written into the top variable frame.
type setEntry struct {
	Key   string
	Value any
}

// Set writes each key/value pair into the top variable frame. Values
// are written exactly as they appear in the document — not passed
// through the templating engine first, matching the original's direct
// `context.variables.last()[key] = value` assignment.
type Set struct {
	Entries []setEntry
}

// Execute implements handler.Handler.
func (s *Set) Execute(ctx *handler.Context) result.Result {
	for _, e := range s.Entries {
		ctx.Variables.Set(e.Key, e.Value)
	}
	return result.Success()
}

// SetFactory returns the registrable handler.Factory for set.
func SetFactory() handler.Factory {
	return handler.Factory{
		Tag:    "set",
		Schema: `{"type": "object", "minProperties": 1}`,
		Valid: func(payload document.Node, v handler.Validator) error {
			if payload.Kind != document.Mapping {
				return errors.New("set requires a mapping of key: value pairs")
			}
			return nil
		},
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			s := &Set{}
			for _, k := range payload.Keys {
				s.Entries = append(s.Entries, setEntry{Key: k, Value: document.ToValue(payload.Map[k])})
			}
			return []handler.Handler{s}, nil
		},
	}
}
