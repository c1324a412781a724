// Package catalog declares the built-in workflow definitions for the four
// standard back-office processes: candidate lifecycle, job requisition
// approval, timesheet approval, and invoice processing. They are registered
// at startup; tenants can overwrite them through the registration endpoint.
package catalog

import (
	"context"
	"fmt"

	"github.com/openhire/hire/internal/engine"
	"github.com/openhire/hire/internal/engine/model"
)

// Definitions returns the built-in workflow definitions.
func Definitions() []*model.WorkflowDefinition {
	return []*model.WorkflowDefinition{
		CandidatePipeline(),
		JobRequisitionApproval(),
		TimesheetApproval(),
		InvoiceProcessing(),
	}
}

// RegisterAll registers every built-in definition with the engine.
func RegisterAll(ctx context.Context, e *engine.Engine) error {
	for _, def := range Definitions() {
		if err := e.RegisterWorkflow(ctx, def); err != nil {
			return fmt.Errorf("failed to register built-in workflow %s: %w", def.ID, err)
		}
	}
	return nil
}

// CandidatePipeline drives a candidate from application to hire. Screening
// cannot start until a resume has been attached to the instance metadata.
func CandidatePipeline() *model.WorkflowDefinition {
	slaDays := 30
	return &model.WorkflowDefinition{
		ID:           "candidate-pipeline",
		Name:         "Candidate Pipeline",
		Version:      "1.0",
		EntityType:   "candidate",
		InitialState: "applied",
		FinalStates:  []string{"hired", "rejected"},
		States: []model.WorkflowState{
			{ID: "applied", Label: "Applied", Color: "#9e9e9e", IsActive: true},
			{ID: "screening", Label: "Screening", Color: "#2196f3", IsActive: true},
			{ID: "interview", Label: "Interview", Color: "#3f51b5", IsActive: true},
			{ID: "offer", Label: "Offer Extended", Color: "#ff9800", IsActive: true},
			{ID: "hired", Label: "Hired", Color: "#4caf50", IsActive: true},
			{ID: "rejected", Label: "Rejected", Color: "#f44336", IsActive: true},
		},
		Transitions: []model.WorkflowTransition{
			{
				ID:        "start-screening",
				Name:      "Start Screening",
				FromState: "applied",
				ToState:   "screening",
				Conditions: []model.WorkflowCondition{
					{Type: model.ConditionTypeField, Field: "resumeUrl", Operator: model.OperatorExists},
				},
				Actions: []model.WorkflowAction{
					{ID: "notify-recruiter", Type: model.ActionTypeNotification, Config: map[string]any{
						"title":   "Screening started",
						"message": "Candidate {{candidateName}} moved to screening",
					}},
				},
			},
			{
				ID:        "schedule-interview",
				Name:      "Schedule Interview",
				FromState: "screening",
				ToState:   "interview",
				Actions: []model.WorkflowAction{
					{ID: "invite-email", Type: model.ActionTypeEmail, Config: map[string]any{
						"toField": "candidateEmail",
						"subject": "Interview invitation",
						"body":    "Hi {{candidateName}}, we would like to invite you to an interview.",
					}},
				},
			},
			{
				ID:        "extend-offer",
				Name:      "Extend Offer",
				FromState: "interview",
				ToState:   "offer",
				RequiresApproval: true,
				ApprovalRoles:    []string{"hiring_manager"},
				Actions: []model.WorkflowAction{
					{ID: "mark-offer-pending", Type: model.ActionTypeUpdateField, Config: map[string]any{
						"field": "offerStatus",
						"value": "pending",
					}},
					{ID: "offer-task", Type: model.ActionTypeCreateTask, Config: map[string]any{
						"title":     "Prepare offer letter for {{candidateName}}",
						"assignee":  "hr-ops",
						"dueInDays": 3,
					}},
				},
			},
			{
				ID:        "accept-offer",
				Name:      "Accept Offer",
				FromState: "offer",
				ToState:   "hired",
				Actions: []model.WorkflowAction{
					{ID: "hired-webhook", Type: model.ActionTypeWebhook, Config: map[string]any{
						"url":   "https://hooks.hire.local/onboarding",
						"event": "candidate.hired",
					}},
				},
			},
			{ID: "reject-applied", Name: "Reject", FromState: "applied", ToState: "rejected"},
			{ID: "reject-screening", Name: "Reject", FromState: "screening", ToState: "rejected"},
			{ID: "reject-interview", Name: "Reject", FromState: "interview", ToState: "rejected"},
			{ID: "decline-offer", Name: "Offer Declined", FromState: "offer", ToState: "rejected"},
		},
		Settings: model.WorkflowSettings{
			TrackHistory:       true,
			NotifyOnTransition: true,
			SLADays:            &slaDays,
		},
	}
}

// JobRequisitionApproval drives a job opening through budget approval before
// it is published.
func JobRequisitionApproval() *model.WorkflowDefinition {
	slaDays := 14
	return &model.WorkflowDefinition{
		ID:           "job-requisition-approval",
		Name:         "Job Requisition Approval",
		Version:      "1.0",
		EntityType:   "job",
		InitialState: "draft",
		FinalStates:  []string{"published", "withdrawn"},
		States: []model.WorkflowState{
			{ID: "draft", Label: "Draft", IsActive: true},
			{ID: "pending_approval", Label: "Pending Approval", IsActive: true},
			{ID: "approved", Label: "Approved", IsActive: true},
			{ID: "published", Label: "Published", IsActive: true},
			{ID: "withdrawn", Label: "Withdrawn", IsActive: true},
		},
		Transitions: []model.WorkflowTransition{
			{
				ID:        "submit-for-approval",
				Name:      "Submit for Approval",
				FromState: "draft",
				ToState:   "pending_approval",
				Conditions: []model.WorkflowCondition{
					{Type: model.ConditionTypeField, Field: "headcount", Operator: model.OperatorGreaterThan, Value: 0},
				},
				Actions: []model.WorkflowAction{
					{ID: "approval-task", Type: model.ActionTypeCreateTask, Config: map[string]any{
						"title":     "Review requisition {{entityId}}",
						"assignee":  "finance",
						"dueInDays": 5,
					}},
				},
			},
			{
				ID:               "approve",
				Name:             "Approve",
				FromState:        "pending_approval",
				ToState:          "approved",
				RequiresApproval: true,
				ApprovalRoles:    []string{"finance", "department_head"},
				Conditions: []model.WorkflowCondition{
					{Type: model.ConditionTypeRole, Operator: model.OperatorIn, Value: []string{"finance", "department_head"}},
				},
			},
			{ID: "reject-to-draft", Name: "Request Changes", FromState: "pending_approval", ToState: "draft"},
			{
				ID:        "publish",
				Name:      "Publish",
				FromState: "approved",
				ToState:   "published",
				Actions: []model.WorkflowAction{
					{ID: "publish-webhook", Type: model.ActionTypeWebhook, Config: map[string]any{
						"url":   "https://hooks.hire.local/careers",
						"event": "job.published",
					}},
				},
			},
			{ID: "withdraw-draft", Name: "Withdraw", FromState: "draft", ToState: "withdrawn"},
			{ID: "withdraw-pending", Name: "Withdraw", FromState: "pending_approval", ToState: "withdrawn"},
			{ID: "withdraw-approved", Name: "Withdraw", FromState: "approved", ToState: "withdrawn"},
		},
		Settings: model.WorkflowSettings{
			TrackHistory: true,
			SLADays:      &slaDays,
		},
	}
}

// TimesheetApproval drives weekly timesheets through manager review. Every
// transition requires a comment so the audit trail explains each decision.
func TimesheetApproval() *model.WorkflowDefinition {
	return &model.WorkflowDefinition{
		ID:           "timesheet-approval",
		Name:         "Timesheet Approval",
		Version:      "1.0",
		EntityType:   "timesheet",
		InitialState: "submitted",
		FinalStates:  []string{"approved"},
		States: []model.WorkflowState{
			{ID: "submitted", Label: "Submitted", IsActive: true},
			{ID: "in_review", Label: "In Review", IsActive: true},
			{ID: "changes_requested", Label: "Changes Requested", IsActive: true},
			{ID: "approved", Label: "Approved", IsActive: true},
		},
		Transitions: []model.WorkflowTransition{
			{ID: "start-review", Name: "Start Review", FromState: "submitted", ToState: "in_review"},
			{
				ID:               "approve",
				Name:             "Approve",
				FromState:        "in_review",
				ToState:          "approved",
				RequiresApproval: true,
				ApprovalRoles:    []string{"manager"},
				Actions: []model.WorkflowAction{
					{ID: "approved-note", Type: model.ActionTypeNotification, Config: map[string]any{
						"title":   "Timesheet approved",
						"message": "Timesheet {{entityId}} was approved",
					}},
				},
			},
			{ID: "request-changes", Name: "Request Changes", FromState: "in_review", ToState: "changes_requested"},
			{ID: "resubmit", Name: "Resubmit", FromState: "changes_requested", ToState: "submitted"},
		},
		Settings: model.WorkflowSettings{
			RequireComments: true,
			TrackHistory:    true,
		},
	}
}

// InvoiceProcessing drives supplier invoices from intake to payment. Large
// invoices become eligible for escalation once they have sat unapproved for
// three days.
func InvoiceProcessing() *model.WorkflowDefinition {
	slaDays := 7
	threeDaysMillis := 3 * 24 * 60 * 60 * 1000
	return &model.WorkflowDefinition{
		ID:           "invoice-processing",
		Name:         "Invoice Processing",
		Version:      "1.0",
		EntityType:   "invoice",
		InitialState: "received",
		FinalStates:  []string{"paid", "disputed"},
		States: []model.WorkflowState{
			{ID: "received", Label: "Received", IsActive: true},
			{ID: "validated", Label: "Validated", IsActive: true},
			{ID: "pending_approval", Label: "Pending Approval", IsActive: true},
			{ID: "escalated", Label: "Escalated", IsActive: true},
			{ID: "paid", Label: "Paid", IsActive: true},
			{ID: "disputed", Label: "Disputed", IsActive: true},
		},
		Transitions: []model.WorkflowTransition{
			{
				ID:        "validate",
				Name:      "Validate",
				FromState: "received",
				ToState:   "validated",
				Conditions: []model.WorkflowCondition{
					{Type: model.ConditionTypeField, Field: "amount", Operator: model.OperatorGreaterThan, Value: 0},
					{Type: model.ConditionTypeField, Field: "supplierId", Operator: model.OperatorExists},
				},
			},
			{
				ID:        "submit-approval",
				Name:      "Submit for Approval",
				FromState: "validated",
				ToState:   "pending_approval",
				Actions: []model.WorkflowAction{
					{ID: "assign-approver", Type: model.ActionTypeAssignUser, Config: map[string]any{
						"userId":   "ap-team",
						"userName": "Accounts Payable",
					}},
				},
			},
			{
				ID:                "escalate",
				Name:              "Escalate",
				FromState:         "pending_approval",
				ToState:           "escalated",
				Automated:         true,
				AutomationTrigger: "sla_breach",
				Conditions: []model.WorkflowCondition{
					{Type: model.ConditionTypeTime, Operator: model.OperatorGreaterThan, Value: threeDaysMillis},
				},
				Actions: []model.WorkflowAction{
					{ID: "escalation-email", Type: model.ActionTypeEmail, Config: map[string]any{
						"to":      "finance-leads@hire.local",
						"subject": "Invoice {{entityId}} escalated",
						"body":    "Invoice {{entityId}} has waited more than three days for approval.",
					}},
				},
			},
			{ID: "pay", Name: "Mark Paid", FromState: "pending_approval", ToState: "paid"},
			{ID: "pay-escalated", Name: "Mark Paid", FromState: "escalated", ToState: "paid"},
			{ID: "dispute", Name: "Dispute", FromState: "pending_approval", ToState: "disputed"},
			{ID: "dispute-escalated", Name: "Dispute", FromState: "escalated", ToState: "disputed"},
		},
		Settings: model.WorkflowSettings{
			TrackHistory: true,
			SLADays:      &slaDays,
		},
	}
}
