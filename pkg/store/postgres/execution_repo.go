package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaycrm/relaycrm/pkg/engine"
	"github.com/relaycrm/relaycrm/pkg/model"
)

// ExecutionRepository is the durable execution store. Claim uses a
// conditional update on claimed_at so two activations of the same execution
// can never both hold the row.
type ExecutionRepository struct {
	db           *gorm.DB
	leaseTimeout time.Duration
}

func NewExecutionRepository(db *gorm.DB, leaseTimeout time.Duration) *ExecutionRepository {
	if leaseTimeout <= 0 {
		leaseTimeout = time.Minute
	}
	return &ExecutionRepository{db: db, leaseTimeout: leaseTimeout}
}

func (r *ExecutionRepository) Create(ctx context.Context, exec *model.Execution, event *model.ExecutionEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(exec).Error; err != nil {
			return err
		}
		if event != nil {
			return tx.Create(event).Error
		}
		return nil
	})
}

func (r *ExecutionRepository) Claim(ctx context.Context, id uuid.UUID) (*model.Execution, error) {
	now := time.Now()
	stale := now.Add(-r.leaseTimeout)

	result := r.db.WithContext(ctx).Model(&model.Execution{}).
		Where("id = ? AND status = ? AND (claimed_at IS NULL OR claimed_at < ?)",
			id, model.ExecutionRunning, stale).
		Updates(map[string]interface{}{"claimed_at": now, "updated_at": now})
	if result.Error != nil {
		return nil, result.Error
	}

	var exec model.Execution
	if err := r.db.WithContext(ctx).First(&exec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrExecutionNotFound
		}
		return nil, err
	}

	if result.RowsAffected == 0 {
		if exec.Terminal() {
			return &exec, nil
		}
		return nil, engine.ErrConcurrentActivation
	}
	return &exec, nil
}

func (r *ExecutionRepository) Save(ctx context.Context, id uuid.UUID, updates map[string]interface{}, keepLease bool) error {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["updated_at"] = time.Now()
	if !keepLease {
		updates["claimed_at"] = nil
	}

	return r.db.WithContext(ctx).Model(&model.Execution{}).Where("id = ?", id).Updates(updates).Error
}

func (r *ExecutionRepository) Finish(ctx context.Context, id uuid.UUID, status model.ExecutionStatus, errorMsg string, event *model.ExecutionEvent) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":          status,
		"error_message":   errorMsg,
		"finished_at":     &now,
		"claimed_at":      nil,
		"wake_at":         nil,
		"next_attempt_at": nil,
		"updated_at":      now,
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Execution{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if event != nil {
			return tx.Create(event).Error
		}
		return nil
	})
}

func (r *ExecutionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]model.Execution, error) {
	if limit <= 0 {
		limit = 100
	}
	stale := now.Add(-r.leaseTimeout)

	var executions []model.Execution
	err := r.db.WithContext(ctx).
		Where("status = ? AND (claimed_at IS NULL OR claimed_at < ?) AND (wake_at <= ? OR next_attempt_at <= ?)",
			model.ExecutionRunning, stale, now, now).
		Order("wake_at ASC").
		Limit(limit).
		Find(&executions).Error
	return executions, err
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Execution, error) {
	var exec model.Execution
	err := r.db.WithContext(ctx).First(&exec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrExecutionNotFound
		}
		return nil, err
	}
	return &exec, nil
}

// ListByDefinition returns the paginated execution history backing the
// audit UI.
func (r *ExecutionRepository) ListByDefinition(ctx context.Context, definitionID uuid.UUID, status *model.ExecutionStatus, limit, offset int) ([]model.Execution, int64, error) {
	var executions []model.Execution
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Execution{}).Where("definition_id = ?", definitionID)

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&executions).Error

	return executions, total, err
}
