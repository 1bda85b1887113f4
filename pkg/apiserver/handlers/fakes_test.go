package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relaycrm/relaycrm/pkg/engine"
	"github.com/relaycrm/relaycrm/pkg/model"
)

type memDefinitionStore struct {
	defs     map[uuid.UUID]*model.AutomationDefinition
	versions []model.AutomationVersion
}

func newMemDefinitionStore() *memDefinitionStore {
	return &memDefinitionStore{defs: make(map[uuid.UUID]*model.AutomationDefinition)}
}

func (s *memDefinitionStore) Create(ctx context.Context, def *model.AutomationDefinition) error {
	copied := *def
	copied.CreatedAt = time.Now().UTC()
	copied.UpdatedAt = copied.CreatedAt
	s.defs[def.ID] = &copied
	return nil
}

func (s *memDefinitionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.AutomationDefinition, error) {
	def, ok := s.defs[id]
	if !ok {
		return nil, engine.ErrDefinitionNotFound
	}
	copied := *def
	return &copied, nil
}

func (s *memDefinitionStore) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	def, ok := s.defs[id]
	if !ok {
		return engine.ErrDefinitionNotFound
	}
	if name, ok := updates["name"].(string); ok {
		def.Name = name
	}
	if g, ok := updates["graph"].(model.Graph); ok {
		def.Graph = g
	}
	return nil
}

func (s *memDefinitionStore) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]model.AutomationDefinition, int64, error) {
	matched := make([]model.AutomationDefinition, 0)
	for _, def := range s.defs {
		if def.TenantID == tenantID {
			matched = append(matched, *def)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *memDefinitionStore) Publish(ctx context.Context, id uuid.UUID) (*model.AutomationVersion, error) {
	def, ok := s.defs[id]
	if !ok {
		return nil, engine.ErrDefinitionNotFound
	}
	version := model.AutomationVersion{
		ID:           uuid.New(),
		DefinitionID: def.ID,
		Version:      def.Version + 1,
		Graph:        def.Graph,
		PublishedAt:  time.Now().UTC(),
	}
	def.Version = version.Version
	def.Status = model.AutomationPublished
	s.versions = append(s.versions, version)
	return &version, nil
}

func (s *memDefinitionStore) Archive(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.defs[id]; !ok {
		return engine.ErrDefinitionNotFound
	}
	delete(s.defs, id)
	return nil
}

type memExecutionStore struct {
	execs []model.Execution
}

func (s *memExecutionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Execution, error) {
	for i := range s.execs {
		if s.execs[i].ID == id {
			copied := s.execs[i]
			return &copied, nil
		}
	}
	return nil, engine.ErrExecutionNotFound
}

func (s *memExecutionStore) ListByDefinition(ctx context.Context, definitionID uuid.UUID, status *model.ExecutionStatus, limit, offset int) ([]model.Execution, int64, error) {
	matched := make([]model.Execution, 0)
	for _, exec := range s.execs {
		if exec.DefinitionID == nil || *exec.DefinitionID != definitionID {
			continue
		}
		if status != nil && exec.Status != *status {
			continue
		}
		matched = append(matched, exec)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

type memSettingsStore struct {
	settings map[uuid.UUID]*model.TenantSettings
}

func newMemSettingsStore() *memSettingsStore {
	return &memSettingsStore{settings: make(map[uuid.UUID]*model.TenantSettings)}
}

func (s *memSettingsStore) Get(ctx context.Context, tenantID uuid.UUID) (*model.TenantSettings, error) {
	if settings, ok := s.settings[tenantID]; ok {
		copied := *settings
		return &copied, nil
	}
	return &model.TenantSettings{TenantID: tenantID}, nil
}

func (s *memSettingsStore) Upsert(ctx context.Context, settings *model.TenantSettings) error {
	copied := *settings
	s.settings[settings.TenantID] = &copied
	return nil
}
