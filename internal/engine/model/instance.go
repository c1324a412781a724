package model

import "time"

// WorkflowHistoryEntry is an immutable audit record of one completed
// transition on an instance. The first entry of every instance is a synthetic
// seed recording entry into the initial state.
type WorkflowHistoryEntry struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	FromState       string    `json:"fromState,omitempty"`
	ToState         string    `json:"toState"`
	TransitionName  string    `json:"transitionName"`
	PerformedBy     string    `json:"performedBy"`
	PerformedByName string    `json:"performedByName,omitempty"`
	Comments        string    `json:"comments,omitempty"`
	Automated       bool      `json:"automated"`
	// DurationMillis is the time spent in FromState before this transition,
	// computed from the previous entry's timestamp. Absent on the seed entry.
	DurationMillis *int64 `json:"durationMillis,omitempty"`
}

// WorkflowInstance is one running execution of a workflow definition, bound
// to exactly one business entity. It is mutated only by the transition
// executor, which serializes all writes per instance.
type WorkflowInstance struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`

	CurrentState  string `json:"currentState"`
	PreviousState string `json:"previousState,omitempty"`

	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	AssignedTo     string `json:"assignedTo,omitempty"`
	AssignedToName string `json:"assignedToName,omitempty"`

	SLADeadline *time.Time `json:"slaDeadline,omitempty"`
	IsOverdue   bool       `json:"isOverdue"`

	History  []WorkflowHistoryEntry `json:"history"`
	Metadata map[string]any         `json:"metadata"`

	// Definition is the snapshot embedded at creation time. Unregistering the
	// workflow from the registry does not invalidate running instances; they
	// keep operating against this copy.
	Definition *WorkflowDefinition `json:"definition"`
}

// LastHistoryEntry returns the most recent history entry, or nil for an
// instance that has not been seeded yet.
func (i *WorkflowInstance) LastHistoryEntry() *WorkflowHistoryEntry {
	if len(i.History) == 0 {
		return nil
	}
	return &i.History[len(i.History)-1]
}

// MetadataValue reads a metadata field, reporting whether the key is present.
func (i *WorkflowInstance) MetadataValue(key string) (any, bool) {
	if i.Metadata == nil {
		return nil, false
	}
	v, ok := i.Metadata[key]
	return v, ok
}

// Completed reports whether the instance has reached a final state.
func (i *WorkflowInstance) Completed() bool {
	return i.CompletedAt != nil
}

// Clone returns a deep copy of the instance. The store hands out clones so
// callers can never mutate the authoritative copy outside the executor.
func (i *WorkflowInstance) Clone() *WorkflowInstance {
	if i == nil {
		return nil
	}
	out := *i

	if i.CompletedAt != nil {
		t := *i.CompletedAt
		out.CompletedAt = &t
	}
	if i.SLADeadline != nil {
		t := *i.SLADeadline
		out.SLADeadline = &t
	}

	out.History = make([]WorkflowHistoryEntry, len(i.History))
	for j, h := range i.History {
		ch := h
		if h.DurationMillis != nil {
			d := *h.DurationMillis
			ch.DurationMillis = &d
		}
		out.History[j] = ch
	}

	if i.Metadata != nil {
		out.Metadata = make(map[string]any, len(i.Metadata))
		for k, v := range i.Metadata {
			out.Metadata[k] = v
		}
	}

	out.Definition = i.Definition.Clone()
	return &out
}
