package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/action"
	"github.com/relaycrm/relaycrm/pkg/condition"
	"github.com/relaycrm/relaycrm/pkg/graph"
	"github.com/relaycrm/relaycrm/pkg/metrics"
	"github.com/relaycrm/relaycrm/pkg/model"
)

// ActionDispatcher runs one action node. Implemented by action.Dispatcher.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, exec *model.Execution, node *model.Node, settings *model.TenantSettings) error
}

// Executor walks an execution's frozen graph snapshot. Activate is the only
// entry point: it is called at execution creation and again by the timer
// scheduler whenever a delay or retry timer elapses. Progress is persisted
// after every step so a crash resumes at the correct node.
type Executor struct {
	executions ExecutionStore
	settings   SettingsStore
	dispatcher ActionDispatcher
	logger     *zap.Logger

	retryLimit  int
	backoffSecs int
	now         func() time.Time
}

func NewExecutor(executions ExecutionStore, settings SettingsStore, dispatcher ActionDispatcher, logger *zap.Logger, retryLimit, backoffSecs int) *Executor {
	if retryLimit <= 0 {
		retryLimit = 3
	}
	if backoffSecs <= 0 {
		backoffSecs = 10
	}
	return &Executor{
		executions:  executions,
		settings:    settings,
		dispatcher:  dispatcher,
		logger:      logger,
		retryLimit:  retryLimit,
		backoffSecs: backoffSecs,
		now:         time.Now,
	}
}

// Activate claims the execution and walks its graph until it suspends on a
// delay, schedules a retry, or reaches a terminal state. Re-activating a
// terminal execution is a no-op.
func (e *Executor) Activate(ctx context.Context, id uuid.UUID) error {
	exec, err := e.executions.Claim(ctx, id)
	if err != nil {
		return err
	}
	if exec.Terminal() {
		return nil
	}

	settings, err := e.settings.Get(ctx, exec.TenantID)
	if err != nil {
		e.logger.Warn("failed to load tenant settings",
			zap.String("tenant_id", exec.TenantID.String()), zap.Error(err))
		settings = nil
	}

	for {
		node := exec.Graph.Node(exec.CurrentNodeID)
		if node == nil {
			return e.complete(ctx, exec)
		}

		stepStart := e.now()
		next, halt, err := e.step(ctx, exec, node, settings)
		metrics.StepDuration.WithLabelValues(string(node.Kind)).Observe(e.now().Sub(stepStart).Seconds())
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
		if next == "" {
			return e.complete(ctx, exec)
		}

		if err := e.advance(ctx, exec, next); err != nil {
			return err
		}
	}
}

// step runs the node at the pointer. It returns the id of the successor to
// advance to ("" meaning the walk completed) or halt=true when the
// activation is over without completing: the step suspended, scheduled a
// retry, or failed the execution terminally.
func (e *Executor) step(ctx context.Context, exec *model.Execution, node *model.Node, settings *model.TenantSettings) (next string, halt bool, err error) {
	switch node.Kind {
	case model.NodeTrigger:
		return exec.Graph.Successor(node.ID, ""), false, nil

	case model.NodeDelay:
		return e.stepDelay(ctx, exec, node)

	case model.NodeCondition:
		cfg := node.Condition
		label := model.EdgeFailure
		if condition.Evaluate(cfg.Field, cfg.Operator, cfg.Value, map[string]interface{}(exec.TriggerData)) {
			label = model.EdgeSuccess
		}
		// A missing edge for the taken branch is an intentional dead-end.
		return exec.Graph.Successor(node.ID, label), false, nil

	case model.NodeAction:
		return e.stepAction(ctx, exec, node, settings)

	default:
		return "", true, e.fail(ctx, exec, fmt.Errorf("unknown node kind %q at node %s", node.Kind, node.ID))
	}
}

func (e *Executor) stepDelay(ctx context.Context, exec *model.Execution, node *model.Node) (string, bool, error) {
	now := e.now()

	if exec.WakeAt == nil {
		wake := now.Add(graph.DelayDuration(*node.Delay))
		updates := map[string]interface{}{"wake_at": &wake}
		if err := e.executions.Save(ctx, exec.ID, updates, false); err != nil {
			return "", false, err
		}
		metrics.SuspendedExecutions.Inc()
		e.logger.Info("execution suspended",
			zap.String("execution_id", exec.ID.String()),
			zap.String("node_id", node.ID),
			zap.Time("wake_at", wake))
		return "", true, nil
	}

	if now.Before(*exec.WakeAt) {
		// Activated early; keep the timer and yield.
		return "", true, e.executions.Save(ctx, exec.ID, nil, false)
	}

	metrics.SuspendedExecutions.Dec()
	return exec.Graph.Successor(node.ID, ""), false, nil
}

func (e *Executor) stepAction(ctx context.Context, exec *model.Execution, node *model.Node, settings *model.TenantSettings) (string, bool, error) {
	if exec.NextAttemptAt != nil && e.now().Before(*exec.NextAttemptAt) {
		// Activated early; keep the retry timer and yield.
		return "", true, e.executions.Save(ctx, exec.ID, nil, false)
	}

	err := e.dispatcher.Dispatch(ctx, exec, node, settings)
	if err == nil {
		metrics.ActionsDispatched.WithLabelValues(exec.TenantID.String(), string(node.Action.Type)).Inc()
		return exec.Graph.Successor(node.ID, ""), false, nil
	}

	if !action.IsRetryable(err) {
		return "", true, e.fail(ctx, exec, err)
	}

	attempt := exec.Attempt + 1
	if attempt > e.retryLimit {
		return "", true, e.fail(ctx, exec, fmt.Errorf("retry budget exhausted after %d attempts: %w", exec.Attempt, err))
	}

	nextAttempt := e.now().Add(e.retryDelay(attempt))
	updates := map[string]interface{}{
		"attempt":         attempt,
		"next_attempt_at": &nextAttempt,
	}
	if err := e.executions.Save(ctx, exec.ID, updates, false); err != nil {
		return "", true, err
	}
	metrics.ActionRetries.WithLabelValues(exec.TenantID.String(), string(node.Action.Type)).Inc()
	e.logger.Warn("action step scheduled for retry",
		zap.String("execution_id", exec.ID.String()),
		zap.String("node_id", node.ID),
		zap.Int("attempt", attempt),
		zap.Time("next_attempt_at", nextAttempt))
	return "", true, nil
}

func (e *Executor) retryDelay(attempt int) time.Duration {
	factor := math.Pow(2, float64(attempt-1))
	return time.Duration(float64(e.backoffSecs)*factor) * time.Second
}

// advance durably moves the pointer before the next step runs, clearing the
// delay and retry timers consumed by the step just finished.
func (e *Executor) advance(ctx context.Context, exec *model.Execution, next string) error {
	updates := map[string]interface{}{
		"current_node_id": next,
		"wake_at":         nil,
		"attempt":         0,
		"next_attempt_at": nil,
	}
	if err := e.executions.Save(ctx, exec.ID, updates, true); err != nil {
		return err
	}

	exec.CurrentNodeID = next
	exec.WakeAt = nil
	exec.Attempt = 0
	exec.NextAttemptAt = nil
	return nil
}

func (e *Executor) complete(ctx context.Context, exec *model.Execution) error {
	event := NewExecutionEvent("execution_completed", exec, "")
	if err := e.executions.Finish(ctx, exec.ID, model.ExecutionCompleted, "", event); err != nil {
		return err
	}
	metrics.ExecutionsFinished.WithLabelValues(exec.TenantID.String(), string(model.ExecutionCompleted)).Inc()
	e.logger.Info("execution completed", zap.String("execution_id", exec.ID.String()))
	return nil
}

func (e *Executor) fail(ctx context.Context, exec *model.Execution, cause error) error {
	msg := model.TruncateError(cause.Error())
	event := NewExecutionEvent("execution_failed", exec, msg)
	if err := e.executions.Finish(ctx, exec.ID, model.ExecutionFailed, msg, event); err != nil {
		return err
	}
	metrics.ExecutionsFinished.WithLabelValues(exec.TenantID.String(), string(model.ExecutionFailed)).Inc()
	e.logger.Warn("execution failed",
		zap.String("execution_id", exec.ID.String()),
		zap.String("node_id", exec.CurrentNodeID),
		zap.String("error", msg))
	return nil
}

// NewExecutionEvent builds the outbox row describing an execution lifecycle
// change.
func NewExecutionEvent(eventType string, exec *model.Execution, errorMsg string) *model.ExecutionEvent {
	payload := model.JSONB{
		"execution_id": exec.ID.String(),
		"tenant_id":    exec.TenantID.String(),
		"trigger_type": string(exec.TriggerType),
	}
	if exec.DefinitionID != nil {
		payload["definition_id"] = exec.DefinitionID.String()
		payload["version"] = exec.Version
	}
	if errorMsg != "" {
		payload["error_message"] = errorMsg
	}
	return &model.ExecutionEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
	}
}
