package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relaycrm/relaycrm/pkg/model"
)

// RecordRepository persists action receipts. Inserts conflict-ignore on the
// dedup key, so a retried step writes at most one activity and one usage
// row.
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) WriteReceipts(ctx context.Context, activity *model.ActivityRecord, usage *model.UsageRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		onConflict := clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		}
		if err := tx.Clauses(onConflict).Create(activity).Error; err != nil {
			return err
		}
		return tx.Clauses(onConflict).Create(usage).Error
	})
}

func (r *RecordRepository) ListActivitiesByContact(ctx context.Context, tenantID, contactID uuid.UUID, limit, offset int) ([]model.ActivityRecord, error) {
	var records []model.ActivityRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, err
}

func (r *RecordRepository) ListUsageByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]model.UsageRecord, error) {
	var records []model.UsageRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, err
}
