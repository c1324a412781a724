package model

import "fmt"

// ConditionType identifies what a transition guard inspects.
type ConditionType string

const (
	ConditionTypeField ConditionType = "field" // Compares an instance metadata field against a value
	ConditionTypeRole  ConditionType = "role"  // Role allow-list; enforcement is delegated to the caller (see evaluator)
	ConditionTypeTime  ConditionType = "time"  // Compares elapsed time in the current state against a millisecond value
)

// ConditionOperator is the comparison applied by a guard condition.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
	OperatorIn          ConditionOperator = "in"
	OperatorExists      ConditionOperator = "exists"
)

// Built-in action types. update_field and assign_user mutate the instance
// directly inside the executor; every other type is delegated to a registered
// side-effect handler.
const (
	ActionTypeUpdateField  = "update_field"
	ActionTypeAssignUser   = "assign_user"
	ActionTypeEmail        = "email"
	ActionTypeNotification = "notification"
	ActionTypeWebhook      = "webhook"
	ActionTypeCreateTask   = "create_task"
)

// WorkflowState is one node in a workflow definition's state graph.
type WorkflowState struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Color    string `json:"color,omitempty"`
	IsActive bool   `json:"isActive"`
}

// WorkflowCondition is a guard predicate on a transition. All conditions on a
// transition must hold (logical AND) for the transition to be legal.
type WorkflowCondition struct {
	Type     ConditionType     `json:"type"`
	Field    string            `json:"field,omitempty"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value,omitempty"`
}

// WorkflowAction is a side effect declared on a transition. Config is a
// free-form parameter bag consumed by the handler for the action type.
type WorkflowAction struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// WorkflowTransition is a directed, optionally guarded, optionally
// side-effecting edge between two declared states.
type WorkflowTransition struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	FromState         string               `json:"fromState"`
	ToState           string               `json:"toState"`
	Label             string               `json:"label,omitempty"`
	Description       string               `json:"description,omitempty"`
	Conditions        []WorkflowCondition  `json:"conditions,omitempty"`
	Actions           []WorkflowAction     `json:"actions,omitempty"`
	RequiresApproval  bool                 `json:"requiresApproval"`
	ApprovalRoles     []string             `json:"approvalRoles,omitempty"`
	Automated         bool                 `json:"automated"`
	AutomationTrigger string               `json:"automationTrigger,omitempty"`
}

// WorkflowSettings holds per-definition behavior toggles.
type WorkflowSettings struct {
	// AllowSkipStates is carried for definition authors but not consulted by
	// the executor: motion always follows declared edges from the current
	// state. Honoring it is an undecided relaxation.
	AllowSkipStates    bool `json:"allowSkipStates"`
	RequireComments    bool `json:"requireComments"`
	TrackHistory       bool `json:"trackHistory"`
	NotifyOnTransition bool `json:"notifyOnTransition"`
	SLADays            *int `json:"slaDays,omitempty"`
}

// WorkflowDefinition is the immutable template of a business process: states,
// guarded transitions, and settings. Registered once; changes require a new
// version or a new id.
type WorkflowDefinition struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Version      string               `json:"version"`
	EntityType   string               `json:"entityType"`
	States       []WorkflowState      `json:"states"`
	Transitions  []WorkflowTransition `json:"transitions"`
	InitialState string               `json:"initialState"`
	FinalStates  []string             `json:"finalStates,omitempty"`
	Settings     WorkflowSettings     `json:"settings"`
}

// StateByID returns the declared state with the given id, or nil.
func (d *WorkflowDefinition) StateByID(id string) *WorkflowState {
	for i := range d.States {
		if d.States[i].ID == id {
			return &d.States[i]
		}
	}
	return nil
}

// TransitionByID returns the declared transition with the given id, or nil.
func (d *WorkflowDefinition) TransitionByID(id string) *WorkflowTransition {
	for i := range d.Transitions {
		if d.Transitions[i].ID == id {
			return &d.Transitions[i]
		}
	}
	return nil
}

// IsFinalState reports whether the given state id is one of the definition's
// final states.
func (d *WorkflowDefinition) IsFinalState(id string) bool {
	for _, fs := range d.FinalStates {
		if fs == id {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of a definition: every transition
// endpoint references a declared state, transition ids are unique, the
// initial state is declared and is not a final state.
func (d *WorkflowDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("definition id is required")
	}
	if d.Name == "" {
		return fmt.Errorf("definition name is required")
	}
	if len(d.States) == 0 {
		return fmt.Errorf("definition %s declares no states", d.ID)
	}

	stateIDs := make(map[string]struct{}, len(d.States))
	for _, s := range d.States {
		if s.ID == "" {
			return fmt.Errorf("definition %s has a state with an empty id", d.ID)
		}
		if _, dup := stateIDs[s.ID]; dup {
			return fmt.Errorf("definition %s declares state %s more than once", d.ID, s.ID)
		}
		stateIDs[s.ID] = struct{}{}
	}

	if d.InitialState == "" {
		return fmt.Errorf("definition %s has no initial state", d.ID)
	}
	if _, ok := stateIDs[d.InitialState]; !ok {
		return fmt.Errorf("definition %s initial state %s is not a declared state", d.ID, d.InitialState)
	}

	for _, fs := range d.FinalStates {
		if _, ok := stateIDs[fs]; !ok {
			return fmt.Errorf("definition %s final state %s is not a declared state", d.ID, fs)
		}
		if fs == d.InitialState {
			return fmt.Errorf("definition %s initial state %s cannot be a final state", d.ID, fs)
		}
	}

	transitionIDs := make(map[string]struct{}, len(d.Transitions))
	for _, t := range d.Transitions {
		if t.ID == "" {
			return fmt.Errorf("definition %s has a transition with an empty id", d.ID)
		}
		if _, dup := transitionIDs[t.ID]; dup {
			return fmt.Errorf("definition %s declares transition %s more than once", d.ID, t.ID)
		}
		transitionIDs[t.ID] = struct{}{}

		if _, ok := stateIDs[t.FromState]; !ok {
			return fmt.Errorf("transition %s references unknown fromState %s", t.ID, t.FromState)
		}
		if _, ok := stateIDs[t.ToState]; !ok {
			return fmt.Errorf("transition %s references unknown toState %s", t.ID, t.ToState)
		}

		for _, c := range t.Conditions {
			if err := validateCondition(t.ID, c); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateCondition checks that the operator is semantically valid for the
// condition type.
func validateCondition(transitionID string, c WorkflowCondition) error {
	switch c.Type {
	case ConditionTypeField:
		switch c.Operator {
		case OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan,
			OperatorContains, OperatorIn, OperatorExists:
			// valid
		default:
			return fmt.Errorf("transition %s: operator %q is not valid for field conditions", transitionID, c.Operator)
		}
		if c.Field == "" {
			return fmt.Errorf("transition %s: field condition requires a field name", transitionID)
		}
	case ConditionTypeRole:
		// Role conditions carry an allow-list; any operator shape is accepted
		// because evaluation is delegated to the caller.
	case ConditionTypeTime:
		if c.Operator != OperatorGreaterThan && c.Operator != OperatorLessThan {
			return fmt.Errorf("transition %s: time conditions only support greater_than/less_than, got %q", transitionID, c.Operator)
		}
	default:
		return fmt.Errorf("transition %s: unknown condition type %q", transitionID, c.Type)
	}
	return nil
}

// Clone returns a deep copy of the definition. Instances embed a clone at
// creation so later registry changes never alter a running process.
func (d *WorkflowDefinition) Clone() *WorkflowDefinition {
	if d == nil {
		return nil
	}
	out := *d

	out.States = make([]WorkflowState, len(d.States))
	copy(out.States, d.States)

	out.FinalStates = make([]string, len(d.FinalStates))
	copy(out.FinalStates, d.FinalStates)

	if d.Settings.SLADays != nil {
		days := *d.Settings.SLADays
		out.Settings.SLADays = &days
	}

	out.Transitions = make([]WorkflowTransition, len(d.Transitions))
	for i, t := range d.Transitions {
		ct := t
		ct.Conditions = make([]WorkflowCondition, len(t.Conditions))
		copy(ct.Conditions, t.Conditions)
		ct.ApprovalRoles = make([]string, len(t.ApprovalRoles))
		copy(ct.ApprovalRoles, t.ApprovalRoles)
		ct.Actions = make([]WorkflowAction, len(t.Actions))
		for j, a := range t.Actions {
			ca := a
			if a.Config != nil {
				ca.Config = make(map[string]any, len(a.Config))
				for k, v := range a.Config {
					ca.Config[k] = v
				}
			}
			ct.Actions[j] = ca
		}
		out.Transitions[i] = ct
	}

	return &out
}
