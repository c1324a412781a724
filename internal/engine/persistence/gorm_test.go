package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openhire/hire/internal/engine/model"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	assert.NoError(t, err)
	return db, sqlMock
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	return db
}

func testDefinition() *model.WorkflowDefinition {
	return &model.WorkflowDefinition{
		ID:         "timesheet-approval",
		Name:       "Timesheet Approval",
		Version:    "1.0.0",
		EntityType: "timesheet",
		States: []model.WorkflowState{
			{ID: "submitted", Label: "Submitted"},
			{ID: "approved", Label: "Approved"},
		},
		Transitions: []model.WorkflowTransition{
			{ID: "approve", Name: "Approve", FromState: "submitted", ToState: "approved"},
		},
		InitialState: "submitted",
		FinalStates:  []string{"approved"},
		Settings:     model.WorkflowSettings{RequireComments: true},
	}
}

func testInstance(def *model.WorkflowDefinition) *model.WorkflowInstance {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &model.WorkflowInstance{
		ID:           "timesheet-ts1-abc",
		WorkflowID:   def.ID,
		EntityType:   "timesheet",
		EntityID:     "ts1",
		CurrentState: "submitted",
		StartedAt:    started,
		Metadata:     map[string]any{"hours": float64(38)},
		Definition:   def.Clone(),
		History: []model.WorkflowHistoryEntry{
			{ID: "h1", Timestamp: started, ToState: "submitted", TransitionName: "Initial State", PerformedBy: "system", Automated: true},
		},
	}
}

func TestGormProviderSaveDefinition(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	provider := NewGormProvider(db)
	ctx := context.Background()

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(`INSERT INTO "workflow_definitions" .* ON CONFLICT \("id"\) DO UPDATE`).
		WithArgs("timesheet-approval", "Timesheet Approval", "1.0.0", "timesheet", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectCommit()

	assert.NoError(t, provider.SaveDefinition(ctx, testDefinition()))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestGormProviderDeleteDefinition(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	provider := NewGormProvider(db)

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(`DELETE FROM "workflow_definitions" WHERE id = \$1`).
		WithArgs("timesheet-approval").
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	assert.NoError(t, provider.DeleteDefinition(context.Background(), "timesheet-approval"))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestGormProviderRoundTrip(t *testing.T) {
	db := setupSQLiteDB(t)
	provider := NewGormProvider(db)
	ctx := context.Background()

	assert.NoError(t, provider.Migrate())

	def := testDefinition()
	assert.NoError(t, provider.SaveDefinition(ctx, def))

	t.Run("definitions survive reload", func(t *testing.T) {
		defs, err := provider.LoadDefinitions(ctx)
		assert.NoError(t, err)
		assert.Len(t, defs, 1)
		assert.Equal(t, def.ID, defs[0].ID)
		assert.Equal(t, def.InitialState, defs[0].InitialState)
		assert.True(t, defs[0].Settings.RequireComments)
		assert.Len(t, defs[0].Transitions, 1)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		updated := testDefinition()
		updated.Version = "2.0.0"
		assert.NoError(t, provider.SaveDefinition(ctx, updated))

		defs, err := provider.LoadDefinitions(ctx)
		assert.NoError(t, err)
		assert.Len(t, defs, 1)
		assert.Equal(t, "2.0.0", defs[0].Version)
	})

	t.Run("instances keep their definition snapshot", func(t *testing.T) {
		instance := testInstance(def)
		assert.NoError(t, provider.SaveInstance(ctx, instance))

		// A second save after a state change must overwrite, not duplicate.
		completed := instance.StartedAt.Add(time.Hour)
		instance.CurrentState = "approved"
		instance.PreviousState = "submitted"
		instance.CompletedAt = &completed
		assert.NoError(t, provider.SaveInstance(ctx, instance))

		instances, err := provider.LoadInstances(ctx)
		assert.NoError(t, err)
		assert.Len(t, instances, 1)

		got := instances[0]
		assert.Equal(t, "approved", got.CurrentState)
		assert.NotNil(t, got.CompletedAt)
		assert.NotNil(t, got.Definition)
		assert.Equal(t, def.ID, got.Definition.ID)
		assert.Len(t, got.History, 1)

		hours, ok := got.MetadataValue("hours")
		assert.True(t, ok)
		assert.Equal(t, float64(38), hours)
	})

	t.Run("delete removes the definition", func(t *testing.T) {
		assert.NoError(t, provider.DeleteDefinition(ctx, def.ID))
		defs, err := provider.LoadDefinitions(ctx)
		assert.NoError(t, err)
		assert.Empty(t, defs)
	})
}
