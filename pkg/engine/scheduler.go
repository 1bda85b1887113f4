package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Scheduler is the time-driven resumption component: a poller that claims
// executions whose delay or retry timer has elapsed and re-activates them.
// Suspended executions hold no in-memory resource; the timers are columns on
// the execution row.
type Scheduler struct {
	executions ExecutionStore
	executor   *Executor
	logger     *zap.Logger
	interval   time.Duration
	batchSize  int
}

func NewScheduler(executions ExecutionStore, executor *Executor, logger *zap.Logger, interval time.Duration, batchSize int) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Scheduler{
		executions: executions,
		executor:   executor,
		logger:     logger,
		interval:   interval,
		batchSize:  batchSize,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("timer scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.resumeDue(ctx)
		}
	}
}

func (s *Scheduler) resumeDue(ctx context.Context) {
	due, err := s.executions.ListDue(ctx, time.Now(), s.batchSize)
	if err != nil {
		s.logger.Error("failed to list due executions", zap.Error(err))
		return
	}

	for i := range due {
		execID := due[i].ID
		if err := s.executor.Activate(ctx, execID); err != nil {
			if errors.Is(err, ErrConcurrentActivation) {
				// Another worker got there first; the next tick re-checks.
				continue
			}
			s.logger.Error("failed to resume execution",
				zap.String("execution_id", execID.String()), zap.Error(err))
		}
	}
}
