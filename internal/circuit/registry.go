package circuit

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BuiltinPrefix marks a module path that names an in-process circuit.
const BuiltinPrefix = "builtin:"

// ErrBuiltinNotFound is returned when a builtin: path names no registered circuit.
type ErrBuiltinNotFound struct {
	Name      string
	Available []string
}

func (e ErrBuiltinNotFound) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("builtin circuit '%s' not found\nHint: no builtin circuits are registered", e.Name)
	}
	return fmt.Sprintf("builtin circuit '%s' not found\nHint: available builtins are %s", e.Name, strings.Join(e.Available, ", "))
}

// Registry holds circuits compiled into the host binary. Each entry is a
// constructor so every Load gets its own capability table.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]func() Capabilities
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builtins: make(map[string]func() Capabilities)}
}

// Register adds a builtin circuit under name.
func (r *Registry) Register(name string, factory func() Capabilities) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("builtin circuit requires a non-empty name")
	}
	if factory == nil {
		return fmt.Errorf("builtin circuit '%s' has no factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builtins[name]; exists {
		return fmt.Errorf("builtin circuit '%s' already registered", name)
	}
	r.builtins[name] = factory
	return nil
}

// Lookup returns a fresh capability table for the named builtin.
func (r *Registry) Lookup(name string) (Capabilities, error) {
	if r == nil {
		return Capabilities{}, ErrBuiltinNotFound{Name: name}
	}

	r.mu.RLock()
	factory, ok := r.builtins[name]
	r.mu.RUnlock()

	if !ok {
		return Capabilities{}, ErrBuiltinNotFound{Name: name, Available: r.Names()}
	}
	return factory(), nil
}

// Names lists registered builtins in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
