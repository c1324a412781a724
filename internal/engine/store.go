package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openhire/hire/internal/engine/model"
)

// systemActor is the performer recorded on synthetic history entries.
const systemActor = "system"

// initialTransitionName labels the synthetic seed entry of every instance.
const initialTransitionName = "Initial State"

// InstanceStore owns the workflow instances. Reads across different
// instances proceed concurrently; all mutations for one instance are
// serialized through that instance's own lock, so two concurrent transition
// attempts on the same instance can never interleave.
type InstanceStore struct {
	mu      sync.RWMutex
	entries map[string]*instanceEntry
}

type instanceEntry struct {
	mu       sync.Mutex
	instance *model.WorkflowInstance
}

// NewInstanceStore creates an empty store.
func NewInstanceStore() *InstanceStore {
	return &InstanceStore{
		entries: make(map[string]*instanceEntry),
	}
}

// Create builds a new instance from a definition snapshot, seeds its history
// with the synthetic initial entry, computes the SLA deadline, and stores it.
// The generated id carries the entity reference for traceability; the uuid
// suffix guarantees uniqueness under concurrent creation. A non-nil committed
// hook runs while the new instance's lock is still held, before any other
// mutation of it can be observed.
func (s *InstanceStore) Create(def *model.WorkflowDefinition, entityType, entityID, assignedTo, assignedToName string, metadata map[string]any, now time.Time, committed func(*model.WorkflowInstance)) (*model.WorkflowInstance, error) {
	if entityType == "" || entityID == "" {
		return nil, &ValidationError{Message: "entityType and entityId are required"}
	}

	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	instance := &model.WorkflowInstance{
		ID:             fmt.Sprintf("%s-%s-%s", entityType, entityID, uuid.New()),
		WorkflowID:     def.ID,
		EntityType:     entityType,
		EntityID:       entityID,
		CurrentState:   def.InitialState,
		StartedAt:      now,
		AssignedTo:     assignedTo,
		AssignedToName: assignedToName,
		Metadata:       meta,
		Definition:     def.Clone(),
		History: []model.WorkflowHistoryEntry{
			{
				ID:             uuid.NewString(),
				Timestamp:      now,
				ToState:        def.InitialState,
				TransitionName: initialTransitionName,
				PerformedBy:    systemActor,
				Automated:      true,
			},
		},
	}

	if def.Settings.SLADays != nil {
		deadline := now.AddDate(0, 0, *def.Settings.SLADays)
		instance.SLADeadline = &deadline
	}

	entry := &instanceEntry{instance: instance}
	entry.mu.Lock()
	s.mu.Lock()
	s.entries[instance.ID] = entry
	s.mu.Unlock()

	out := instance.Clone()
	if committed != nil {
		committed(out)
	}
	entry.mu.Unlock()

	return out, nil
}

// Put inserts an instance loaded from durable storage, replacing any
// in-memory copy with the same id.
func (s *InstanceStore) Put(instance *model.WorkflowInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[instance.ID] = &instanceEntry{instance: instance}
}

// Get returns a copy of the instance with the given id.
func (s *InstanceStore) Get(id string) (*model.WorkflowInstance, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.instance.Clone(), nil
}

// ByEntity returns copies of all instances attached to the given business
// entity, in no guaranteed order.
func (s *InstanceStore) ByEntity(entityType, entityID string) []*model.WorkflowInstance {
	s.mu.RLock()
	entries := make([]*instanceEntry, 0)
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*model.WorkflowInstance, 0)
	for _, e := range entries {
		e.mu.Lock()
		if e.instance.EntityType == entityType && e.instance.EntityID == entityID {
			out = append(out, e.instance.Clone())
		}
		e.mu.Unlock()
	}
	return out
}

// ByWorkflow returns copies of all instances for a workflow id.
func (s *InstanceStore) ByWorkflow(workflowID string) []*model.WorkflowInstance {
	s.mu.RLock()
	entries := make([]*instanceEntry, 0)
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*model.WorkflowInstance, 0)
	for _, e := range entries {
		e.mu.Lock()
		if e.instance.WorkflowID == workflowID {
			out = append(out, e.instance.Clone())
		}
		e.mu.Unlock()
	}
	return out
}

// Update runs fn against the authoritative instance while holding its lock,
// serializing concurrent mutations per instance. If fn returns an error the
// instance is left untouched (fn operates on a working copy that is only
// installed on success). A non-nil committed hook runs after the install but
// before the lock is released, so per-instance hooks of serialized updates
// can never observe or record their commits out of order. Returns a copy of
// the updated instance.
func (s *InstanceStore) Update(id string, fn func(instance *model.WorkflowInstance) error, committed func(*model.WorkflowInstance)) (*model.WorkflowInstance, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.instance.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	entry.instance = working

	out := working.Clone()
	if committed != nil {
		committed(out)
	}
	return out, nil
}

func (s *InstanceStore) entry(id string) (*instanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, &NotFoundError{Kind: "instance", ID: id}
	}
	return entry, nil
}
