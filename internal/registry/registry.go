// Package registry implements the plugin registry: a process-wide
// mapping from task tag to handler factory, constructed once at
// startup and threaded through explicitly rather than held in a
// package-level global.
package registry

import "github.com/jbenden/deployer/internal/handler"

// Registry is an explicit, constructed name-to-handler-factory mapping.
// It is safe to share a single instance across an entire pipeline run,
// but it is never mutated after startup's registration step completes.
type Registry struct {
	tags      []string
	factories map[string]handler.Factory
}

// New returns an empty Registry ready for Register calls.
func New() *Registry {
	return &Registry{factories: make(map[string]handler.Factory)}
}

// Register adds a handler factory under its own tag. Registration
// order is preserved and governs the substring-containment match order
// used by Lookup, matching the original's first-match semantics.
func (r *Registry) Register(f handler.Factory) {
	if _, exists := r.factories[f.Tag]; !exists {
		r.tags = append(r.tags, f.Tag)
	}
	r.factories[f.Tag] = f
}

// Tags returns the registered tags in registration order.
func (r *Registry) Tags() []string {
	out := make([]string, len(r.tags))
	copy(out, r.tags)
	return out
}

// Factory returns the exact factory registered under tag, if any.
func (r *Registry) Factory(tag string) (handler.Factory, bool) {
	f, ok := r.factories[tag]
	return f, ok
}

// Lookup finds the first registered tag that appears as a substring of
// nodeKey — preserving backward-compatible aliasing, where a node keyed
// e.g. "shell_script" still matches the "shell" handler — and returns
// its tag and factory.
func (r *Registry) Lookup(nodeKey string) (tag string, factory handler.Factory, ok bool) {
	for _, t := range r.tags {
		if containsTag(nodeKey, t) {
			return t, r.factories[t], true
		}
	}
	return "", handler.Factory{}, false
}

func containsTag(nodeKey, tag string) bool {
	if len(tag) == 0 || len(nodeKey) < len(tag) {
		return false
	}
	for i := 0; i+len(tag) <= len(nodeKey); i++ {
		if nodeKey[i:i+len(tag)] == tag {
			return true
		}
	}
	return false
}
