package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/cohort/pkg/domain"
)

// ErrActionNotFound is returned when resolving an unregistered action name.
var ErrActionNotFound = errors.New("action not found")

// Registry maps action names, as written in experiment definition files,
// to the functions that run when a variant starts.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]domain.Action
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]domain.Action),
	}
}

// Register adds an action to the registry.
// If an action with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn domain.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// Resolve looks up an action by name.
func (r *Registry) Resolve(name string) (domain.Action, error) {
	r.mu.RLock()
	fn, ok := r.actions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, name)
	}
	return fn, nil
}

// Names returns the registered action names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
