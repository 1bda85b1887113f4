package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relaycrm/relaycrm/pkg/model"
)

// ExecutionStore is the durable home of executions. Claim must give
// single-writer semantics per execution id: at most one activation holds an
// execution between Claim and the Save/Finish that releases it.
type ExecutionStore interface {
	// Create persists a new execution together with its outbox event.
	Create(ctx context.Context, exec *model.Execution, event *model.ExecutionEvent) error

	// Claim loads the execution and takes the activation lease. Terminal
	// executions are returned without a lease. Returns
	// ErrConcurrentActivation when another activation holds the lease and
	// ErrExecutionNotFound for unknown ids.
	Claim(ctx context.Context, id uuid.UUID) (*model.Execution, error)

	// Save persists mid-walk progress (pointer advance, timers) while
	// keeping the lease when keepLease is true, releasing it otherwise.
	Save(ctx context.Context, id uuid.UUID, updates map[string]interface{}, keepLease bool) error

	// Finish moves the execution to a terminal status, releases the lease
	// and appends the outbox event.
	Finish(ctx context.Context, id uuid.UUID, status model.ExecutionStatus, errorMsg string, event *model.ExecutionEvent) error

	// ListDue returns running executions whose delay or retry timer has
	// elapsed and that are not currently claimed.
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.Execution, error)
}

// DefinitionStore resolves which published automations react to an event.
type DefinitionStore interface {
	// ListPublished returns the definitions for a tenant that are published
	// with the given trigger type, each with its active version snapshot.
	ListPublished(ctx context.Context, tenantID uuid.UUID, trigger model.TriggerType) ([]model.AutomationDefinition, error)

	// ActiveVersion returns the published version snapshot for a definition.
	ActiveVersion(ctx context.Context, definitionID uuid.UUID) (*model.AutomationVersion, error)
}

// SettingsStore exposes the tenant's channel configuration and legacy
// automation toggles, read once per activation as a snapshot.
type SettingsStore interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*model.TenantSettings, error)
}
