package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openhire/hire/internal/engine/model"
)

func twoStateDefinition() *model.WorkflowDefinition {
	return &model.WorkflowDefinition{
		ID:         "offer-approval",
		Name:       "Offer Approval",
		Version:    "1.0.0",
		EntityType: "offer",
		States: []model.WorkflowState{
			{ID: "draft", Label: "Draft"},
			{ID: "approved", Label: "Approved"},
		},
		Transitions: []model.WorkflowTransition{
			{ID: "approve", Name: "Approve", FromState: "draft", ToState: "approved"},
		},
		InitialState: "draft",
		FinalStates:  []string{"approved"},
	}
}

func TestRegistryRegister(t *testing.T) {
	t.Run("valid definition", func(t *testing.T) {
		r := NewDefinitionRegistry()
		assert.NoError(t, r.Register(twoStateDefinition()))

		got, err := r.Get("offer-approval")
		assert.NoError(t, err)
		assert.Equal(t, "Offer Approval", got.Name)
	})

	t.Run("nil definition", func(t *testing.T) {
		r := NewDefinitionRegistry()
		err := r.Register(nil)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("invalid definition is rejected", func(t *testing.T) {
		def := twoStateDefinition()
		def.Transitions[0].ToState = "nonexistent"

		r := NewDefinitionRegistry()
		err := r.Register(def)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Contains(t, err.Error(), "nonexistent")
	})

	t.Run("re-register overwrites", func(t *testing.T) {
		r := NewDefinitionRegistry()
		assert.NoError(t, r.Register(twoStateDefinition()))

		updated := twoStateDefinition()
		updated.Version = "2.0.0"
		assert.NoError(t, r.Register(updated))

		got, err := r.Get("offer-approval")
		assert.NoError(t, err)
		assert.Equal(t, "2.0.0", got.Version)
		assert.Len(t, r.List(), 1)
	})

	t.Run("caller mutation does not leak into registry", func(t *testing.T) {
		def := twoStateDefinition()
		r := NewDefinitionRegistry()
		assert.NoError(t, r.Register(def))

		def.Name = "mutated after registration"
		def.Transitions[0].ToState = "draft"

		got, err := r.Get("offer-approval")
		assert.NoError(t, err)
		assert.Equal(t, "Offer Approval", got.Name)
		assert.Equal(t, "approved", got.Transitions[0].ToState)
	})
}

func TestRegistryUnregister(t *testing.T) {
	r := NewDefinitionRegistry()
	assert.NoError(t, r.Register(twoStateDefinition()))
	assert.NoError(t, r.Unregister("offer-approval"))

	_, err := r.Get("offer-approval")
	var nferr *NotFoundError
	assert.ErrorAs(t, err, &nferr)
	assert.Equal(t, "workflow", nferr.Kind)

	err = r.Unregister("offer-approval")
	assert.True(t, errors.As(err, &nferr))
}

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *model.WorkflowDefinition)
		wantErr string
	}{
		{
			name:    "empty id",
			mutate:  func(d *model.WorkflowDefinition) { d.ID = "" },
			wantErr: "id is required",
		},
		{
			name:    "no states",
			mutate:  func(d *model.WorkflowDefinition) { d.States = nil },
			wantErr: "declares no states",
		},
		{
			name:    "duplicate state ids",
			mutate:  func(d *model.WorkflowDefinition) { d.States = append(d.States, model.WorkflowState{ID: "draft"}) },
			wantErr: "more than once",
		},
		{
			name:    "initial state not declared",
			mutate:  func(d *model.WorkflowDefinition) { d.InitialState = "ghost" },
			wantErr: "not a declared state",
		},
		{
			name:    "initial state cannot be final",
			mutate:  func(d *model.WorkflowDefinition) { d.FinalStates = []string{"draft"} },
			wantErr: "cannot be a final state",
		},
		{
			name: "duplicate transition ids",
			mutate: func(d *model.WorkflowDefinition) {
				d.Transitions = append(d.Transitions, d.Transitions[0])
			},
			wantErr: "more than once",
		},
		{
			name: "transition references unknown state",
			mutate: func(d *model.WorkflowDefinition) {
				d.Transitions[0].FromState = "ghost"
			},
			wantErr: "unknown fromState",
		},
		{
			name: "field condition without field name",
			mutate: func(d *model.WorkflowDefinition) {
				d.Transitions[0].Conditions = []model.WorkflowCondition{
					{Type: model.ConditionTypeField, Operator: model.OperatorEquals, Value: "x"},
				}
			},
			wantErr: "requires a field name",
		},
		{
			name: "time condition with equals operator",
			mutate: func(d *model.WorkflowDefinition) {
				d.Transitions[0].Conditions = []model.WorkflowCondition{
					{Type: model.ConditionTypeTime, Operator: model.OperatorEquals, Value: 100},
				}
			},
			wantErr: "only support greater_than/less_than",
		},
		{
			name: "unknown condition type",
			mutate: func(d *model.WorkflowDefinition) {
				d.Transitions[0].Conditions = []model.WorkflowCondition{
					{Type: "geo", Operator: model.OperatorEquals},
				}
			},
			wantErr: "unknown condition type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := twoStateDefinition()
			tt.mutate(def)
			err := def.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid definition passes", func(t *testing.T) {
		assert.NoError(t, twoStateDefinition().Validate())
	})
}
