package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/relaycrm/relaycrm/pkg/model"
)

// DefinitionStore is the automation persistence the handlers need.
// Implemented by postgres.DefinitionRepository.
type DefinitionStore interface {
	Create(ctx context.Context, def *model.AutomationDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AutomationDefinition, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]model.AutomationDefinition, int64, error)
	Publish(ctx context.Context, id uuid.UUID) (*model.AutomationVersion, error)
	Archive(ctx context.Context, id uuid.UUID) error
}

// ExecutionStore is the read side of the execution ledger. Implemented by
// postgres.ExecutionRepository.
type ExecutionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Execution, error)
	ListByDefinition(ctx context.Context, definitionID uuid.UUID, status *model.ExecutionStatus, limit, offset int) ([]model.Execution, int64, error)
}

// SettingsStore is tenant settings persistence. Implemented by
// postgres.TenantRepository.
type SettingsStore interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*model.TenantSettings, error)
	Upsert(ctx context.Context, settings *model.TenantSettings) error
}
