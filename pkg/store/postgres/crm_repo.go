package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/relaycrm/relaycrm/pkg/model"
)

// CRMRepository backs the contact-side actions: tag union, partial
// opportunity updates and follow-up task creation.
type CRMRepository struct {
	db *gorm.DB
}

func NewCRMRepository(db *gorm.DB) *CRMRepository {
	return &CRMRepository{db: db}
}

// AddTags merges tags into the contact's tag list. The union happens in SQL
// so the operation is idempotent and safe under concurrent executions.
func (r *CRMRepository) AddTags(ctx context.Context, tenantID, contactID uuid.UUID, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE contacts
		SET tags = ARRAY(SELECT DISTINCT unnest(tags || ?::text[])), updated_at = NOW()
		WHERE id = ? AND tenant_id = ?
	`, pq.Array(tags), contactID, tenantID).Error
}

// UpdateOpportunityStage writes only the fields present in the action
// config.
func (r *CRMRepository) UpdateOpportunityStage(ctx context.Context, tenantID, opportunityID uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	updates := make(map[string]interface{}, len(fields)+1)
	for key, value := range fields {
		switch key {
		case "stage", "status", "value":
			updates[key] = value
		}
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()

	return r.db.WithContext(ctx).Model(&model.Opportunity{}).
		Where("id = ? AND tenant_id = ?", opportunityID, tenantID).
		Updates(updates).Error
}

func (r *CRMRepository) CreateTask(ctx context.Context, task *model.ContactTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(task).Error
}
