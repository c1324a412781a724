package engine

import (
	"sync"

	"github.com/openhire/hire/internal/engine/model"
)

// DefinitionRegistry holds the registered workflow definitions, keyed by
// workflow id. Registration validates structural invariants and stores a
// clone, so callers cannot mutate a definition after handing it over.
// The registry is read-mostly and guarded by a single RWMutex.
type DefinitionRegistry struct {
	mu          sync.RWMutex
	definitions map[string]*model.WorkflowDefinition
}

// NewDefinitionRegistry creates an empty registry.
func NewDefinitionRegistry() *DefinitionRegistry {
	return &DefinitionRegistry{
		definitions: make(map[string]*model.WorkflowDefinition),
	}
}

// Register stores or overwrites a definition by id. A definition violating
// the structural invariants is rejected with a ValidationError.
func (r *DefinitionRegistry) Register(def *model.WorkflowDefinition) error {
	if def == nil {
		return &ValidationError{Message: "definition cannot be nil"}
	}
	if err := def.Validate(); err != nil {
		return &ValidationError{Message: "invalid workflow definition", Cause: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.ID] = def.Clone()
	return nil
}

// Unregister removes a definition. Running instances are unaffected: they
// operate against the snapshot embedded at creation time.
func (r *DefinitionRegistry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.definitions[id]; !ok {
		return &NotFoundError{Kind: "workflow", ID: id}
	}
	delete(r.definitions, id)
	return nil
}

// Get returns a copy of the definition with the given id.
func (r *DefinitionRegistry) Get(id string) (*model.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[id]
	if !ok {
		return nil, &NotFoundError{Kind: "workflow", ID: id}
	}
	return def.Clone(), nil
}

// List returns copies of all registered definitions in no guaranteed order.
func (r *DefinitionRegistry) List() []*model.WorkflowDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.WorkflowDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		out = append(out, def.Clone())
	}
	return out
}
