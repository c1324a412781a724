package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openhire/hire/internal/engine/model"
)

// DefinitionRecord is the durable form of a workflow definition: the full
// document as jsonb plus the columns worth querying on.
type DefinitionRecord struct {
	ID         string          `gorm:"type:varchar(100);column:id;primaryKey;not null"`
	Name       string          `gorm:"type:varchar(255);column:name;not null"`
	Version    string          `gorm:"type:varchar(50);column:version;not null"`
	EntityType string          `gorm:"type:varchar(50);column:entity_type;not null"`
	Document   json.RawMessage `gorm:"type:jsonb;column:document;not null"`
	UpdatedAt  time.Time       `gorm:"type:timestamptz;column:updated_at;not null"`
}

func (r *DefinitionRecord) TableName() string {
	return "workflow_definitions"
}

// InstanceRecord is the durable form of a workflow instance. The document
// includes the embedded definition snapshot, so a reload restores instances
// even for workflows that were unregistered in the meantime.
type InstanceRecord struct {
	ID           string          `gorm:"type:varchar(255);column:id;primaryKey;not null"`
	WorkflowID   string          `gorm:"type:varchar(100);column:workflow_id;not null;index"`
	EntityType   string          `gorm:"type:varchar(50);column:entity_type;not null;index:idx_workflow_instances_entity"`
	EntityID     string          `gorm:"type:varchar(100);column:entity_id;not null;index:idx_workflow_instances_entity"`
	CurrentState string          `gorm:"type:varchar(100);column:current_state;not null"`
	Completed    bool            `gorm:"type:boolean;column:completed;not null"`
	Document     json.RawMessage `gorm:"type:jsonb;column:document;not null"`
	UpdatedAt    time.Time       `gorm:"type:timestamptz;column:updated_at;not null"`
}

func (r *InstanceRecord) TableName() string {
	return "workflow_instances"
}

// GormProvider implements Provider on top of a gorm database connection.
type GormProvider struct {
	db *gorm.DB
}

// NewGormProvider creates a provider bound to the given database.
func NewGormProvider(db *gorm.DB) *GormProvider {
	return &GormProvider{db: db}
}

// Migrate creates or updates the backing tables.
func (p *GormProvider) Migrate() error {
	if err := p.db.AutoMigrate(&DefinitionRecord{}, &InstanceRecord{}); err != nil {
		return fmt.Errorf("failed to migrate workflow tables: %w", err)
	}
	return nil
}

// SaveDefinition upserts a definition document by id.
func (p *GormProvider) SaveDefinition(ctx context.Context, def *model.WorkflowDefinition) error {
	doc, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition %s: %w", def.ID, err)
	}

	record := DefinitionRecord{
		ID:         def.ID,
		Name:       def.Name,
		Version:    def.Version,
		EntityType: def.EntityType,
		Document:   doc,
		UpdatedAt:  time.Now().UTC(),
	}

	result := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to save definition %s: %w", def.ID, result.Error)
	}
	return nil
}

// DeleteDefinition removes a definition document. Deleting an unknown id is
// not an error; the registry already reported NotFound to the caller.
func (p *GormProvider) DeleteDefinition(ctx context.Context, id string) error {
	result := p.db.WithContext(ctx).Delete(&DefinitionRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete definition %s: %w", id, result.Error)
	}
	return nil
}

// LoadDefinitions returns all stored definitions.
func (p *GormProvider) LoadDefinitions(ctx context.Context) ([]*model.WorkflowDefinition, error) {
	var records []DefinitionRecord
	result := p.db.WithContext(ctx).Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load definitions: %w", result.Error)
	}

	defs := make([]*model.WorkflowDefinition, 0, len(records))
	for _, record := range records {
		var def model.WorkflowDefinition
		if err := json.Unmarshal(record.Document, &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal definition %s: %w", record.ID, err)
		}
		defs = append(defs, &def)
	}
	return defs, nil
}

// SaveInstance upserts an instance document by id.
func (p *GormProvider) SaveInstance(ctx context.Context, instance *model.WorkflowInstance) error {
	doc, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to marshal instance %s: %w", instance.ID, err)
	}

	record := InstanceRecord{
		ID:           instance.ID,
		WorkflowID:   instance.WorkflowID,
		EntityType:   instance.EntityType,
		EntityID:     instance.EntityID,
		CurrentState: instance.CurrentState,
		Completed:    instance.Completed(),
		Document:     doc,
		UpdatedAt:    time.Now().UTC(),
	}

	result := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to save instance %s: %w", instance.ID, result.Error)
	}
	return nil
}

// LoadInstances returns all stored instances.
func (p *GormProvider) LoadInstances(ctx context.Context) ([]*model.WorkflowInstance, error) {
	var records []InstanceRecord
	result := p.db.WithContext(ctx).Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load instances: %w", result.Error)
	}

	instances := make([]*model.WorkflowInstance, 0, len(records))
	for _, record := range records {
		var instance model.WorkflowInstance
		if err := json.Unmarshal(record.Document, &instance); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instance %s: %w", record.ID, err)
		}
		instances = append(instances, &instance)
	}
	return instances, nil
}
