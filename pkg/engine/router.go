package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/metrics"
	"github.com/relaycrm/relaycrm/pkg/model"
)

// Router fans a domain event out to every published automation whose trigger
// type matches, for the event's tenant. Each match becomes an independent
// execution with the event payload frozen as its trigger data.
type Router struct {
	definitions DefinitionStore
	executions  ExecutionStore
	settings    SettingsStore
	executor    *Executor
	logger      *zap.Logger
}

func NewRouter(definitions DefinitionStore, executions ExecutionStore, settings SettingsStore, executor *Executor, logger *zap.Logger) *Router {
	return &Router{
		definitions: definitions,
		executions:  executions,
		settings:    settings,
		executor:    executor,
		logger:      logger,
	}
}

// Route starts executions for all matching automations and returns the ones
// it started. No matches is a normal no-op. Failures are isolated per match
// and never propagate to the caller; outcomes surface through the ledger.
func (r *Router) Route(ctx context.Context, tenantID uuid.UUID, eventType model.TriggerType, payload map[string]interface{}) []uuid.UUID {
	started := make([]uuid.UUID, 0)

	definitions, err := r.definitions.ListPublished(ctx, tenantID, eventType)
	if err != nil {
		r.logger.Error("failed to list published automations",
			zap.String("tenant_id", tenantID.String()),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
		definitions = nil
	}

	for i := range definitions {
		def := &definitions[i]
		execID, err := r.startExecution(ctx, def, tenantID, eventType, payload)
		if err != nil {
			r.logger.Error("failed to start execution",
				zap.String("definition_id", def.ID.String()), zap.Error(err))
			continue
		}
		started = append(started, execID)
	}

	if legacyID, ok := r.routeLegacy(ctx, tenantID, eventType, payload); ok {
		started = append(started, legacyID)
	}

	for _, execID := range started {
		if err := r.executor.Activate(ctx, execID); err != nil {
			r.logger.Error("activation failed",
				zap.String("execution_id", execID.String()), zap.Error(err))
		}
	}

	return started
}

func (r *Router) startExecution(ctx context.Context, def *model.AutomationDefinition, tenantID uuid.UUID, eventType model.TriggerType, payload map[string]interface{}) (uuid.UUID, error) {
	version, err := r.definitions.ActiveVersion(ctx, def.ID)
	if err != nil {
		return uuid.Nil, err
	}

	trigger := version.Graph.TriggerNode()
	if trigger == nil {
		return uuid.Nil, fmt.Errorf("published version %d of %s has no trigger node", version.Version, def.ID)
	}

	exec := &model.Execution{
		ID:            uuid.New(),
		TenantID:      tenantID,
		DefinitionID:  &def.ID,
		VersionID:     &version.ID,
		Version:       version.Version,
		TriggerType:   eventType,
		TriggerData:   model.JSONB(payload),
		Graph:         version.Graph,
		Status:        model.ExecutionRunning,
		CurrentNodeID: trigger.ID,
		StartedAt:     time.Now().UTC(),
	}

	event := NewExecutionEvent("execution_started", exec, "")
	if err := r.executions.Create(ctx, exec, event); err != nil {
		return uuid.Nil, err
	}

	metrics.ExecutionsStarted.WithLabelValues(tenantID.String(), string(eventType)).Inc()
	r.logger.Info("execution started",
		zap.String("execution_id", exec.ID.String()),
		zap.String("definition_id", def.ID.String()),
		zap.Int("version", version.Version))
	return exec.ID, nil
}

// routeLegacy handles the pre-graph single-action automations configured in
// tenant settings, treated as a synthetic trigger -> action workflow.
func (r *Router) routeLegacy(ctx context.Context, tenantID uuid.UUID, eventType model.TriggerType, payload map[string]interface{}) (uuid.UUID, bool) {
	settings, err := r.settings.Get(ctx, tenantID)
	if err != nil {
		r.logger.Warn("failed to load tenant settings for legacy automations",
			zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return uuid.Nil, false
	}

	legacy := settings.LegacyAutomationFor(eventType)
	if legacy == nil || !legacy.Enabled {
		return uuid.Nil, false
	}

	exec := &model.Execution{
		ID:            uuid.New(),
		TenantID:      tenantID,
		TriggerType:   eventType,
		TriggerData:   model.JSONB(payload),
		Graph:         legacyGraph(legacy),
		Status:        model.ExecutionRunning,
		CurrentNodeID: "trigger",
		StartedAt:     time.Now().UTC(),
	}

	event := NewExecutionEvent("execution_started", exec, "")
	if err := r.executions.Create(ctx, exec, event); err != nil {
		r.logger.Error("failed to start legacy execution",
			zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return uuid.Nil, false
	}

	metrics.ExecutionsStarted.WithLabelValues(tenantID.String(), string(eventType)).Inc()
	return exec.ID, true
}

func legacyGraph(legacy *model.LegacyAutomation) model.Graph {
	return model.Graph{
		Nodes: []model.Node{
			{ID: "trigger", Kind: model.NodeTrigger},
			{ID: "action", Kind: model.NodeAction, Action: &model.ActionConfig{
				Type:     legacy.ActionType,
				Template: legacy.Template,
				ToPath:   legacy.ToPath,
			}},
		},
		Edges: []model.Edge{{From: "trigger", To: "action"}},
	}
}
