// Package persistence durably saves and loads workflow definitions and
// instances so the engine survives process restarts. The engine treats the
// in-memory copies as authoritative for the process lifetime; this layer is
// the write-behind record.
package persistence

import (
	"context"

	"github.com/openhire/hire/internal/engine/model"
)

// Provider is the storage contract consumed by the engine.
type Provider interface {
	SaveDefinition(ctx context.Context, def *model.WorkflowDefinition) error
	DeleteDefinition(ctx context.Context, id string) error
	LoadDefinitions(ctx context.Context) ([]*model.WorkflowDefinition, error)

	SaveInstance(ctx context.Context, instance *model.WorkflowInstance) error
	LoadInstances(ctx context.Context) ([]*model.WorkflowInstance, error)
}
