package engine

import "fmt"

// NotFoundError reports an unknown workflow, instance, or transition id.
type NotFoundError struct {
	Kind string // "workflow", "instance", or "transition"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ValidationError reports a malformed definition or a request missing a
// required value (e.g. a comment when the definition requires one).
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// InvalidTransitionError reports a transition that is not legal from the
// instance's current state, including guard-condition failure.
type InvalidTransitionError struct {
	InstanceID   string
	TransitionID string
	Reason       string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s is not valid for instance %s: %s", e.TransitionID, e.InstanceID, e.Reason)
}
