// Package effects implements the external side-effect handlers consumed by
// the workflow engine's action dispatcher: outbound email, in-app
// notifications, signed webhook delivery, and tracker task creation.
// Handlers are best-effort and at-least-once; the engine commits the state
// transition before any of these run.
package effects

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openhire/hire/internal/engine"
)

// BaseModel defines the common columns for effect records.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"type:timestamptz;column:created_at;not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;column:updated_at;not null" json:"updatedAt"`
}

// BeforeCreate is a GORM hook that is triggered before a new record is created.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID, err = uuid.NewRandom()
		if err != nil {
			return
		}
	}
	base.CreatedAt = time.Now().UTC()
	base.UpdatedAt = time.Now().UTC()
	return
}

// BeforeUpdate is a GORM hook that is triggered before an existing record is updated.
func (base *BaseModel) BeforeUpdate(tx *gorm.DB) (err error) {
	base.UpdatedAt = time.Now().UTC()
	return
}

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// renderTemplate substitutes {{key}} placeholders with instance metadata
// values, plus the reserved keys entityType, entityId, and state. Unknown
// keys are left as-is so a misconfigured template is visible in the output.
func renderTemplate(template string, instance engine.InstanceView) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		switch key {
		case "entityType":
			return instance.EntityType()
		case "entityId":
			return instance.EntityID()
		case "state":
			return instance.CurrentState()
		}
		if v, ok := instance.MetadataValue(key); ok && v != nil {
			if s, isString := v.(string); isString {
				return s
			}
		}
		return match
	})
}

// configString reads a string parameter from an action config.
func configString(config map[string]any, key string) string {
	if config == nil {
		return ""
	}
	s, _ := config[key].(string)
	return s
}
