package tools

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRegistryFrozen is returned by Register once dispatch has started.
var ErrRegistryFrozen = errors.New("tool registry is frozen")

// Registry maps tool names to implementations. Tools are registered at
// startup; after Freeze the registry is read-only and safe to share between
// concurrent conversations.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	frozen bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under spec.Name.
func (r *Registry) Register(spec Spec, fn Func) error {
	if fn == nil {
		return fmt.Errorf("tool %s: callable is nil", spec.Name)
	}
	if err := spec.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register %s: %w", spec.Name, ErrRegistryFrozen)
	}
	if _, exists := r.tools[spec.Name]; exists {
		return &DuplicateToolError{Name: spec.Name}
	}
	r.tools[spec.Name] = Tool{Spec: spec, Execute: fn}
	r.order = append(r.order, spec.Name)
	return nil
}

// MustRegister is Register for static setup code; it panics on error.
func (r *Registry) MustRegister(spec Spec, fn Func) {
	if err := r.Register(spec, fn); err != nil {
		panic(err)
	}
}

// Resolve looks a tool up by name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return Tool{}, &UnknownToolError{Name: name}
	}
	return t, nil
}

// Specs lists registered specs in registration order.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec)
	}
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Freeze makes the registry read-only. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}
