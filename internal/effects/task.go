package effects

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/openhire/hire/internal/engine"
	"github.com/openhire/hire/internal/engine/model"
)

// TrackerTaskStatus is the lifecycle status of a tracker task.
type TrackerTaskStatus string

const (
	TrackerTaskStatusOpen TrackerTaskStatus = "OPEN"
	TrackerTaskStatusDone TrackerTaskStatus = "DONE"
)

// TrackerTask is a to-do item created by "create_task" actions, surfaced in
// the task tracker of the portal.
type TrackerTask struct {
	BaseModel
	Title       string            `gorm:"type:varchar(255);column:title;not null" json:"title"`
	Description string            `gorm:"type:text;column:description" json:"description"`
	Assignee    string            `gorm:"type:varchar(100);column:assignee;not null;index" json:"assignee"`
	EntityType  string            `gorm:"type:varchar(50);column:entity_type;not null" json:"entityType"`
	EntityID    string            `gorm:"type:varchar(100);column:entity_id;not null" json:"entityId"`
	Status      TrackerTaskStatus `gorm:"type:varchar(20);column:status;not null" json:"status"`
	DueAt       *time.Time        `gorm:"type:timestamptz;column:due_at" json:"dueAt,omitempty"`
}

func (t *TrackerTask) TableName() string {
	return "tracker_tasks"
}

// CreateTaskHandler persists tracker tasks. Action config: "title",
// "description" ({{key}} placeholders supported), "assignee" (falls back to
// the instance assignee), and optional "dueInDays".
type CreateTaskHandler struct {
	db *gorm.DB
}

// NewCreateTaskHandler creates a handler backed by the given database.
func NewCreateTaskHandler(db *gorm.DB) *CreateTaskHandler {
	return &CreateTaskHandler{db: db}
}

// Execute implements engine.ActionHandler.
func (h *CreateTaskHandler) Execute(ctx context.Context, action model.WorkflowAction, instance engine.InstanceView) error {
	title := renderTemplate(configString(action.Config, "title"), instance)
	if title == "" {
		return fmt.Errorf("create_task action %s has no title", action.ID)
	}

	assignee := configString(action.Config, "assignee")
	if assignee == "" {
		assignee = instance.AssignedTo()
	}
	if assignee == "" {
		return fmt.Errorf("create_task action %s has no assignee and instance %s is unassigned", action.ID, instance.InstanceID())
	}

	task := TrackerTask{
		Title:       title,
		Description: renderTemplate(configString(action.Config, "description"), instance),
		Assignee:    assignee,
		EntityType:  instance.EntityType(),
		EntityID:    instance.EntityID(),
		Status:      TrackerTaskStatusOpen,
	}

	if days, ok := action.Config["dueInDays"]; ok {
		if d, numeric := coerceDays(days); numeric {
			due := time.Now().UTC().AddDate(0, 0, d)
			task.DueAt = &due
		}
	}

	if result := h.db.WithContext(ctx).Create(&task); result.Error != nil {
		return fmt.Errorf("failed to create tracker task: %w", result.Error)
	}

	slog.Info("tracker task created",
		"title", title,
		"assignee", assignee,
		"instance_id", instance.InstanceID(),
	)
	return nil
}

func coerceDays(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
