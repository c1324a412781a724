// Package engine implements the workflow orchestration core: a generic,
// pluggable state-machine runtime that drives business processes through
// declarative definitions of states, guarded transitions, and side-effecting
// actions, with a durable audit trail and SLA tracking.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openhire/hire/internal/engine/model"
	"github.com/openhire/hire/internal/engine/persistence"
)

// DefaultEffectTimeout bounds each external side-effect call dispatched
// after a transition commits.
const DefaultEffectTimeout = 10 * time.Second

// Engine is the passive library facade invoked by request-handling code.
// It wires together the definition registry, the instance store, the
// condition evaluator, and the action dispatcher, and owns the persistence
// write-behind. Construct one at process start and thread it through.
type Engine struct {
	registry   *DefinitionRegistry
	store      *InstanceStore
	dispatcher *ActionDispatcher
	persist    persistence.Provider

	effectTimeout time.Duration
	now           func() time.Time

	// effects tracks in-flight detached side-effect dispatches so Close can
	// drain them on shutdown.
	effects sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithPersistence installs a durable storage provider. Without one the
// engine is purely in-memory, which is legal and used in tests.
func WithPersistence(p persistence.Provider) Option {
	return func(e *Engine) { e.persist = p }
}

// WithEffectTimeout overrides the per-action timeout for external side
// effects.
func WithEffectTimeout(d time.Duration) Option {
	return func(e *Engine) { e.effectTimeout = d }
}

// WithClock overrides the engine's time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. Call Start to load previously persisted state and
// Close on shutdown.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry:      NewDefinitionRegistry(),
		store:         NewInstanceStore(),
		dispatcher:    NewActionDispatcher(),
		effectTimeout: DefaultEffectTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatcher exposes the action dispatcher so the process can register
// side-effect handlers at startup.
func (e *Engine) Dispatcher() *ActionDispatcher {
	return e.dispatcher
}

// Start loads persisted definitions and instances into memory.
func (e *Engine) Start(ctx context.Context) error {
	if e.persist == nil {
		return nil
	}

	defs, err := e.persist.LoadDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflow definitions: %w", err)
	}
	for _, def := range defs {
		if err := e.registry.Register(def); err != nil {
			return fmt.Errorf("failed to restore definition %s: %w", def.ID, err)
		}
	}

	instances, err := e.persist.LoadInstances(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflow instances: %w", err)
	}
	for _, instance := range instances {
		e.store.Put(instance)
	}

	slog.Info("workflow engine state restored",
		"definitions", len(defs),
		"instances", len(instances),
	)
	return nil
}

// Close waits for in-flight side-effect dispatches to drain.
func (e *Engine) Close() {
	e.effects.Wait()
}

// RegisterWorkflow validates and stores a definition, overwriting any
// definition with the same id.
func (e *Engine) RegisterWorkflow(ctx context.Context, def *model.WorkflowDefinition) error {
	if err := e.registry.Register(def); err != nil {
		return err
	}
	if e.persist != nil {
		if err := e.persist.SaveDefinition(ctx, def); err != nil {
			return fmt.Errorf("definition %s registered but not persisted: %w", def.ID, err)
		}
	}
	slog.Info("workflow registered", "workflow_id", def.ID, "version", def.Version, "entity_type", def.EntityType)
	return nil
}

// UnregisterWorkflow removes a definition. Existing instances keep operating
// against the snapshot embedded at their creation.
func (e *Engine) UnregisterWorkflow(ctx context.Context, id string) error {
	if err := e.registry.Unregister(id); err != nil {
		return err
	}
	if e.persist != nil {
		if err := e.persist.DeleteDefinition(ctx, id); err != nil {
			return fmt.Errorf("definition %s unregistered but not removed from storage: %w", id, err)
		}
	}
	slog.Info("workflow unregistered", "workflow_id", id)
	return nil
}

// GetWorkflow returns the registered definition with the given id.
func (e *Engine) GetWorkflow(id string) (*model.WorkflowDefinition, error) {
	return e.registry.Get(id)
}

// ListWorkflows returns all registered definitions in no guaranteed order.
func (e *Engine) ListWorkflows() []*model.WorkflowDefinition {
	return e.registry.List()
}

// CreateInstanceInput carries the parameters for starting a process.
type CreateInstanceInput struct {
	WorkflowID     string
	EntityType     string
	EntityID       string
	AssignedTo     string
	AssignedToName string
	Metadata       map[string]any
}

// CreateInstance starts a new process for a business entity. The instance
// begins in the definition's initial state with a seeded history entry, and
// its SLA deadline is computed from the definition settings.
func (e *Engine) CreateInstance(ctx context.Context, in CreateInstanceInput) (*model.WorkflowInstance, error) {
	def, err := e.registry.Get(in.WorkflowID)
	if err != nil {
		return nil, err
	}

	instance, err := e.store.Create(def, in.EntityType, in.EntityID, in.AssignedTo, in.AssignedToName, in.Metadata, e.now(), func(committed *model.WorkflowInstance) {
		e.saveInstance(ctx, committed)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("workflow instance created",
		"instance_id", instance.ID,
		"workflow_id", instance.WorkflowID,
		"entity_type", instance.EntityType,
		"entity_id", instance.EntityID,
	)
	return instance, nil
}

// GetInstance returns a copy of the instance with the given id.
func (e *Engine) GetInstance(id string) (*model.WorkflowInstance, error) {
	return e.store.Get(id)
}

// GetInstancesByEntity returns all instances attached to a business entity.
func (e *Engine) GetInstancesByEntity(entityType, entityID string) []*model.WorkflowInstance {
	return e.store.ByEntity(entityType, entityID)
}

// GetAvailableTransitions returns the transitions that are currently legal
// for the instance: declared from the current state with all guard
// conditions holding. Completed instances have no available transitions.
func (e *Engine) GetAvailableTransitions(instanceID, actorRole string) ([]model.WorkflowTransition, error) {
	instance, err := e.store.Get(instanceID)
	if err != nil {
		return nil, err
	}
	return e.availableTransitions(instance, actorRole), nil
}

func (e *Engine) availableTransitions(instance *model.WorkflowInstance, actorRole string) []model.WorkflowTransition {
	def := instance.Definition
	if def.IsFinalState(instance.CurrentState) {
		return []model.WorkflowTransition{}
	}

	now := e.now()
	available := make([]model.WorkflowTransition, 0)
	for _, t := range def.Transitions {
		if t.FromState != instance.CurrentState {
			continue
		}
		if !EvaluateConditions(t.Conditions, instance, actorRole, now) {
			continue
		}
		available = append(available, t)
	}
	return available
}

// ExecuteTransitionInput carries the parameters for executing a transition.
// Actor identity is trusted as given; role enforcement beyond guard
// conditions is the caller's responsibility.
type ExecuteTransitionInput struct {
	InstanceID   string
	TransitionID string
	ActorID      string
	ActorName    string
	ActorRole    string
	Comments     string
}

// ExecuteTransition moves an instance along one declared edge: it re-derives
// transition legality, appends the audit entry, applies the state change and
// any built-in actions, persists the result while still holding the
// instance's lock, and then dispatches external side effects as a detached
// best-effort task. The whole mutation, durable save included, is serialized
// per instance, so the persisted document can never regress to an older
// state; a structural failure leaves the instance untouched. Success means
// the state transition was recorded, not that all side effects succeeded.
func (e *Engine) ExecuteTransition(ctx context.Context, in ExecuteTransitionInput) (*model.WorkflowInstance, error) {
	var external []model.WorkflowAction

	updated, err := e.store.Update(in.InstanceID, func(instance *model.WorkflowInstance) error {
		def := instance.Definition
		transition := def.TransitionByID(in.TransitionID)
		if transition == nil {
			return &NotFoundError{Kind: "transition", ID: in.TransitionID}
		}

		if def.IsFinalState(instance.CurrentState) {
			return &InvalidTransitionError{
				InstanceID:   instance.ID,
				TransitionID: in.TransitionID,
				Reason:       fmt.Sprintf("instance is already in final state %s", instance.CurrentState),
			}
		}

		// Re-derive legality from scratch on every attempt; the per-instance
		// lock makes this check race-free against concurrent executions.
		legal := false
		for _, t := range e.availableTransitions(instance, in.ActorRole) {
			if t.ID == transition.ID {
				legal = true
				break
			}
		}
		if !legal {
			return &InvalidTransitionError{
				InstanceID:   instance.ID,
				TransitionID: in.TransitionID,
				Reason:       fmt.Sprintf("not available from state %s", instance.CurrentState),
			}
		}

		if def.Settings.RequireComments && in.Comments == "" {
			return &ValidationError{Message: fmt.Sprintf("workflow %s requires a comment on every transition", def.ID)}
		}

		now := e.now()
		var duration *int64
		if last := instance.LastHistoryEntry(); last != nil {
			ms := now.Sub(last.Timestamp).Milliseconds()
			duration = &ms
		}

		instance.History = append(instance.History, model.WorkflowHistoryEntry{
			ID:              uuid.NewString(),
			Timestamp:       now,
			FromState:       instance.CurrentState,
			ToState:         transition.ToState,
			TransitionName:  transition.Name,
			PerformedBy:     in.ActorID,
			PerformedByName: in.ActorName,
			Comments:        in.Comments,
			Automated:       false,
			DurationMillis:  duration,
		})

		instance.PreviousState = instance.CurrentState
		instance.CurrentState = transition.ToState

		if def.IsFinalState(instance.CurrentState) {
			completed := now
			instance.CompletedAt = &completed
		}
		if instance.SLADeadline != nil {
			instance.IsOverdue = now.After(*instance.SLADeadline)
		}

		// Built-in actions mutate instance state and are part of the
		// committed transition. External ones run after the lock is
		// released so a slow collaborator cannot stall this instance.
		external = external[:0]
		for _, action := range transition.Actions {
			switch action.Type {
			case model.ActionTypeUpdateField, model.ActionTypeAssignUser:
				applyBuiltinAction(instance, action)
			default:
				external = append(external, action)
			}
		}

		return nil
	}, func(committed *model.WorkflowInstance) {
		e.saveInstance(ctx, committed)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("workflow transition executed",
		"instance_id", updated.ID,
		"transition_id", in.TransitionID,
		"from_state", updated.PreviousState,
		"to_state", updated.CurrentState,
		"actor_id", in.ActorID,
		"completed", updated.Completed(),
	)

	if len(external) > 0 {
		e.dispatchDetached(updated, external)
	}

	return updated, nil
}

// applyBuiltinAction handles the two action types that only mutate instance
// state: update_field and assign_user.
func applyBuiltinAction(instance *model.WorkflowInstance, action model.WorkflowAction) {
	switch action.Type {
	case model.ActionTypeUpdateField:
		field, _ := action.Config["field"].(string)
		if field == "" {
			slog.Warn("update_field action missing field name", "action_id", action.ID, "instance_id", instance.ID)
			return
		}
		if instance.Metadata == nil {
			instance.Metadata = make(map[string]any)
		}
		instance.Metadata[field] = action.Config["value"]
	case model.ActionTypeAssignUser:
		userID, _ := action.Config["userId"].(string)
		userName, _ := action.Config["userName"].(string)
		if userID == "" {
			slog.Warn("assign_user action missing userId", "action_id", action.ID, "instance_id", instance.ID)
			return
		}
		instance.AssignedTo = userID
		instance.AssignedToName = userName
	}
}

// dispatchDetached runs the external actions of a committed transition in
// declared order on a background goroutine. Each action gets its own timeout
// and failure isolation; the transition caller is never blocked on
// collaborator I/O.
func (e *Engine) dispatchDetached(instance *model.WorkflowInstance, actions []model.WorkflowAction) {
	snapshot := instance.Clone()
	queued := make([]model.WorkflowAction, len(actions))
	copy(queued, actions)

	e.effects.Add(1)
	go func() {
		defer e.effects.Done()
		view := &instanceView{instance: snapshot}
		for _, action := range queued {
			ctx, cancel := context.WithTimeout(context.Background(), e.effectTimeout)
			e.dispatcher.Dispatch(ctx, action, view)
			cancel()
		}
	}()
}

// Metrics are per-workflow operational statistics derived from the instance
// population.
type Metrics struct {
	WorkflowID           string  `json:"workflowId"`
	ActiveInstances      int     `json:"activeInstances"`
	CompletedInstances   int     `json:"completedInstances"`
	AverageDurationHours float64 `json:"averageDurationHours"`
}

// GetMetrics partitions the workflow's instances into active and completed
// and reports the mean completion time in hours. The average is zero, not
// NaN, when nothing has completed yet.
func (e *Engine) GetMetrics(workflowID string) Metrics {
	metrics := Metrics{WorkflowID: workflowID}

	var totalHours float64
	for _, instance := range e.store.ByWorkflow(workflowID) {
		if instance.CompletedAt != nil {
			metrics.CompletedInstances++
			totalHours += instance.CompletedAt.Sub(instance.StartedAt).Hours()
		} else {
			metrics.ActiveInstances++
		}
	}
	if metrics.CompletedInstances > 0 {
		metrics.AverageDurationHours = totalHours / float64(metrics.CompletedInstances)
	}
	return metrics
}

// instanceView adapts an instance snapshot to the read-only view handed to
// side-effect handlers.
type instanceView struct {
	instance *model.WorkflowInstance
}

func (v *instanceView) InstanceID() string    { return v.instance.ID }
func (v *instanceView) WorkflowID() string    { return v.instance.WorkflowID }
func (v *instanceView) EntityType() string    { return v.instance.EntityType }
func (v *instanceView) EntityID() string      { return v.instance.EntityID }
func (v *instanceView) CurrentState() string  { return v.instance.CurrentState }
func (v *instanceView) PreviousState() string { return v.instance.PreviousState }
func (v *instanceView) AssignedTo() string    { return v.instance.AssignedTo }

func (v *instanceView) MetadataValue(key string) (any, bool) {
	return v.instance.MetadataValue(key)
}

func (v *instanceView) MetadataCopy() map[string]any {
	out := make(map[string]any, len(v.instance.Metadata))
	for k, val := range v.instance.Metadata {
		out[k] = val
	}
	return out
}

// saveInstance writes the committed instance through the persistence
// provider. Save failures are logged, not returned: the in-memory copy is
// authoritative for the process lifetime and the transition has already
// been recorded.
func (e *Engine) saveInstance(ctx context.Context, instance *model.WorkflowInstance) {
	if e.persist == nil {
		return
	}
	if err := e.persist.SaveInstance(ctx, instance); err != nil {
		slog.Error("failed to persist workflow instance",
			"instance_id", instance.ID,
			"error", err,
		)
	}
}
