package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openhire/hire/internal/engine"
	"github.com/openhire/hire/internal/engine/model"
)

func TestBuiltInDefinitionsAreValid(t *testing.T) {
	for _, def := range Definitions() {
		t.Run(def.ID, func(t *testing.T) {
			assert.NoError(t, def.Validate())
			assert.NotEmpty(t, def.EntityType)
			assert.NotEmpty(t, def.FinalStates)
		})
	}
}

func TestRegisterAll(t *testing.T) {
	eng := engine.New()
	defer eng.Close()

	assert.NoError(t, RegisterAll(context.Background(), eng))
	assert.Len(t, eng.ListWorkflows(), len(Definitions()))

	for _, def := range Definitions() {
		got, err := eng.GetWorkflow(def.ID)
		assert.NoError(t, err)
		assert.Equal(t, def.Name, got.Name)
	}
}

func TestCandidatePipelineScreeningRequiresResume(t *testing.T) {
	eng := engine.New()
	defer eng.Close()
	ctx := context.Background()
	assert.NoError(t, RegisterAll(ctx, eng))

	instance, err := eng.CreateInstance(ctx, engine.CreateInstanceInput{
		WorkflowID: "candidate-pipeline",
		EntityType: "candidate",
		EntityID:   "c-77",
	})
	assert.NoError(t, err)

	available, err := eng.GetAvailableTransitions(instance.ID, "recruiter")
	assert.NoError(t, err)
	for _, tr := range available {
		assert.NotEqual(t, "start-screening", tr.ID)
	}

	withResume, err := eng.CreateInstance(ctx, engine.CreateInstanceInput{
		WorkflowID: "candidate-pipeline",
		EntityType: "candidate",
		EntityID:   "c-78",
		Metadata:   map[string]any{"resumeUrl": "https://cdn.example.com/r.pdf"},
	})
	assert.NoError(t, err)

	available, err = eng.GetAvailableTransitions(withResume.ID, "recruiter")
	assert.NoError(t, err)
	ids := make([]string, 0, len(available))
	for _, tr := range available {
		ids = append(ids, tr.ID)
	}
	assert.Contains(t, ids, "start-screening")
}

func TestTimesheetApprovalRequiresComments(t *testing.T) {
	def := TimesheetApproval()
	assert.True(t, def.Settings.RequireComments)

	eng := engine.New()
	defer eng.Close()
	ctx := context.Background()
	assert.NoError(t, eng.RegisterWorkflow(ctx, def))

	instance, err := eng.CreateInstance(ctx, engine.CreateInstanceInput{
		WorkflowID: def.ID,
		EntityType: "timesheet",
		EntityID:   "ts-1",
	})
	assert.NoError(t, err)

	available, err := eng.GetAvailableTransitions(instance.ID, "")
	assert.NoError(t, err)
	assert.NotEmpty(t, available)

	_, err = eng.ExecuteTransition(ctx, engine.ExecuteTransitionInput{
		InstanceID:   instance.ID,
		TransitionID: available[0].ID,
		ActorID:      "u1",
	})
	var verr *engine.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestInvoiceProcessingEscalationIsTimeGated(t *testing.T) {
	def := InvoiceProcessing()

	var escalate *model.WorkflowTransition
	for i := range def.Transitions {
		if def.Transitions[i].Automated {
			escalate = &def.Transitions[i]
			break
		}
	}
	assert.NotNil(t, escalate)
	assert.NotEmpty(t, escalate.AutomationTrigger)

	hasTimeCondition := false
	for _, c := range escalate.Conditions {
		if c.Type == model.ConditionTypeTime {
			hasTimeCondition = true
		}
	}
	assert.True(t, hasTimeCondition)
}
