package effects

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/openhire/hire/internal/engine"
	"github.com/openhire/hire/internal/engine/model"
)

// Notification is an in-app notification row created by "notification"
// actions and read by the portal UI.
type Notification struct {
	BaseModel
	Recipient  string `gorm:"type:varchar(100);column:recipient;not null;index" json:"recipient"`
	Title      string `gorm:"type:varchar(255);column:title;not null" json:"title"`
	Message    string `gorm:"type:text;column:message" json:"message"`
	EntityType string `gorm:"type:varchar(50);column:entity_type;not null" json:"entityType"`
	EntityID   string `gorm:"type:varchar(100);column:entity_id;not null" json:"entityId"`
	Read       bool   `gorm:"type:boolean;column:read;not null;default:false" json:"read"`
}

func (n *Notification) TableName() string {
	return "notifications"
}

// NotificationHandler persists in-app notifications. Action config:
// "recipient" (falls back to the instance assignee), "title", "message",
// the latter two supporting {{key}} placeholders.
type NotificationHandler struct {
	db *gorm.DB
}

// NewNotificationHandler creates a handler backed by the given database.
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// Execute implements engine.ActionHandler.
func (h *NotificationHandler) Execute(ctx context.Context, action model.WorkflowAction, instance engine.InstanceView) error {
	recipient := configString(action.Config, "recipient")
	if recipient == "" {
		recipient = instance.AssignedTo()
	}
	if recipient == "" {
		return fmt.Errorf("notification action %s has no recipient and instance %s is unassigned", action.ID, instance.InstanceID())
	}

	notification := Notification{
		Recipient:  recipient,
		Title:      renderTemplate(configString(action.Config, "title"), instance),
		Message:    renderTemplate(configString(action.Config, "message"), instance),
		EntityType: instance.EntityType(),
		EntityID:   instance.EntityID(),
	}

	if result := h.db.WithContext(ctx).Create(&notification); result.Error != nil {
		return fmt.Errorf("failed to create notification: %w", result.Error)
	}

	slog.Info("notification created",
		"recipient", recipient,
		"instance_id", instance.InstanceID(),
	)
	return nil
}
