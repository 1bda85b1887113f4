package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relaycrm/relaycrm/pkg/model"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Get returns the tenant's settings snapshot, or an empty one when nothing
// has been configured yet.
func (r *TenantRepository) Get(ctx context.Context, tenantID uuid.UUID) (*model.TenantSettings, error) {
	var settings model.TenantSettings
	err := r.db.WithContext(ctx).First(&settings, "tenant_id = ?", tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.TenantSettings{TenantID: tenantID}, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *TenantRepository) Upsert(ctx context.Context, settings *model.TenantSettings) error {
	settings.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sms_from_number", "email_sending_domain", "email_from_address", "legacy_automations", "updated_at",
			}),
		}).
		Create(settings).Error
}
