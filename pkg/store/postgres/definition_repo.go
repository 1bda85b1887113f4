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

type DefinitionRepository struct {
	db *gorm.DB
}

func NewDefinitionRepository(db *gorm.DB) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

func (r *DefinitionRepository) Create(ctx context.Context, def *model.AutomationDefinition) error {
	return r.db.WithContext(ctx).Create(def).Error
}

func (r *DefinitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AutomationDefinition, error) {
	var def model.AutomationDefinition
	err := r.db.WithContext(ctx).First(&def, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrDefinitionNotFound
		}
		return nil, err
	}
	return &def, nil
}

func (r *DefinitionRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&model.AutomationDefinition{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return engine.ErrDefinitionNotFound
	}
	return nil
}

func (r *DefinitionRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]model.AutomationDefinition, int64, error) {
	var definitions []model.AutomationDefinition
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AutomationDefinition{}).Where("tenant_id = ?", tenantID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&definitions).Error

	return definitions, total, err
}

// Publish snapshots the current draft graph into a new immutable version and
// marks the definition published, in one transaction.
func (r *DefinitionRepository) Publish(ctx context.Context, id uuid.UUID) (*model.AutomationVersion, error) {
	var version *model.AutomationVersion

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var def model.AutomationDefinition
		if err := tx.First(&def, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return engine.ErrDefinitionNotFound
			}
			return err
		}

		version = &model.AutomationVersion{
			ID:           uuid.New(),
			DefinitionID: def.ID,
			Version:      def.Version + 1,
			Graph:        def.Graph,
		}
		if err := tx.Create(version).Error; err != nil {
			return err
		}

		return tx.Model(&model.AutomationDefinition{}).
			Where("id = ?", def.ID).
			Updates(map[string]interface{}{
				"status":     model.AutomationPublished,
				"version":    version.Version,
				"updated_at": time.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// Archive soft-deletes the definition. Executions keep their frozen graph
// copies, so archived definitions are never physically removed.
func (r *DefinitionRepository) Archive(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.AutomationDefinition{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return engine.ErrDefinitionNotFound
	}
	return nil
}

func (r *DefinitionRepository) ListPublished(ctx context.Context, tenantID uuid.UUID, trigger model.TriggerType) ([]model.AutomationDefinition, error) {
	var definitions []model.AutomationDefinition
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND trigger_type = ? AND status = ?", tenantID, trigger, model.AutomationPublished).
		Find(&definitions).Error
	return definitions, err
}

func (r *DefinitionRepository) ActiveVersion(ctx context.Context, definitionID uuid.UUID) (*model.AutomationVersion, error) {
	var version model.AutomationVersion
	err := r.db.WithContext(ctx).
		Where("definition_id = ?", definitionID).
		Order("version DESC").
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrDefinitionNotFound
		}
		return nil, err
	}
	return &version, nil
}
