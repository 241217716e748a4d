package module

import "github.com/rash-sh/rash-go/internal/rerr"

// Registry is a name-to-module lookup table. The zero value is not
// usable; use NewRegistry.
type Registry struct {
	modules map[string]Module
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds m under its own Name(). Registering two modules under
// the same name is a programmer error and panics: a name collision is
// only possible at build time, never at runtime.
func (r *Registry) Register(m Module) {
	name := m.Name()
	if _, exists := r.modules[name]; exists {
		panic("module: duplicate registration for " + name)
	}
	r.modules[name] = m
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return nil, rerr.NotFoundf("no module registered under %q", name)
	}
	return m, nil
}

// Names reports every registered module name, for task-attribute
// validation (internal/task.RawTask.ValidateAttrs needs the closed set
// of known module names to distinguish a module key from a typo).
func (r *Registry) Names() map[string]bool {
	out := make(map[string]bool, len(r.modules))
	for name := range r.modules {
		out[name] = true
	}
	return out
}
