package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openhire/hire/internal/engine/model"
)

// InstanceView is the read-only view of an instance handed to side-effect
// handlers. Handlers run after the state change is committed and must not
// assume they can mutate the instance; state mutation is reserved for the
// built-in actions applied inline by the executor.
type InstanceView interface {
	InstanceID() string
	WorkflowID() string
	EntityType() string
	EntityID() string
	CurrentState() string
	PreviousState() string
	AssignedTo() string
	MetadataValue(key string) (any, bool)
	MetadataCopy() map[string]any
}

// ActionHandler executes one external side effect for an action type.
// Implementations must honor ctx cancellation: a hung external call must not
// hang the engine.
type ActionHandler interface {
	Execute(ctx context.Context, action model.WorkflowAction, instance InstanceView) error
}

// ActionHandlerFunc adapts a function to the ActionHandler interface.
type ActionHandlerFunc func(ctx context.Context, action model.WorkflowAction, instance InstanceView) error

func (f ActionHandlerFunc) Execute(ctx context.Context, action model.WorkflowAction, instance InstanceView) error {
	return f(ctx, action, instance)
}

// DispatchErrorHook observes per-action failures. Dispatch errors never
// propagate to the transition caller; this hook is the error-reporting
// channel for callers that need to observe them.
type DispatchErrorHook func(instanceID string, action model.WorkflowAction, err error)

// ActionDispatcher maps action-type tags to side-effect handlers.
// Re-registering a tag replaces the handler. Dispatching an unknown tag is a
// warning-level no-op, never fatal.
type ActionDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]ActionHandler
	onError  DispatchErrorHook
}

// NewActionDispatcher creates a dispatcher with no handlers registered.
func NewActionDispatcher() *ActionDispatcher {
	return &ActionDispatcher{
		handlers: make(map[string]ActionHandler),
	}
}

// Register associates an action type tag with a handler, replacing any
// previous registration for the tag.
func (d *ActionDispatcher) Register(actionType string, handler ActionHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, replaced := d.handlers[actionType]; replaced {
		slog.Info("replacing action handler", "action_type", actionType)
	}
	d.handlers[actionType] = handler
}

// SetErrorHook installs the failure observer. Passing nil restores the
// default logging-only behavior.
func (d *ActionDispatcher) SetErrorHook(hook DispatchErrorHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = hook
}

// Dispatch runs the handler registered for the action's type. A missing
// handler is a no-op with a warning. A failing handler is reported through
// the error hook and the log; the error never aborts subsequent actions or
// unwinds the already-committed state transition.
func (d *ActionDispatcher) Dispatch(ctx context.Context, action model.WorkflowAction, instance InstanceView) {
	d.mu.RLock()
	handler, ok := d.handlers[action.Type]
	hook := d.onError
	d.mu.RUnlock()

	if !ok {
		slog.Warn("no handler registered for action type, skipping",
			"action_type", action.Type,
			"action_id", action.ID,
			"instance_id", instance.InstanceID(),
		)
		return
	}

	if err := handler.Execute(ctx, action, instance); err != nil {
		slog.Error("action handler failed",
			"action_type", action.Type,
			"action_id", action.ID,
			"instance_id", instance.InstanceID(),
			"error", err,
		)
		if hook != nil {
			hook(instance.InstanceID(), action, err)
		}
	}
}
