package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaycrm/relaycrm/pkg/model"
)

type memExecutionStore struct {
	mu      sync.Mutex
	execs   map[uuid.UUID]*model.Execution
	claimed map[uuid.UUID]bool
	events  []*model.ExecutionEvent
}

func newMemExecutionStore() *memExecutionStore {
	return &memExecutionStore{
		execs:   make(map[uuid.UUID]*model.Execution),
		claimed: make(map[uuid.UUID]bool),
	}
}

func (s *memExecutionStore) Create(ctx context.Context, exec *model.Execution, event *model.ExecutionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *exec
	s.execs[exec.ID] = &copied
	s.events = append(s.events, event)
	return nil
}

func (s *memExecutionStore) Claim(ctx context.Context, id uuid.UUID) (*model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	copied := *exec
	if exec.Terminal() {
		return &copied, nil
	}
	if s.claimed[id] {
		return nil, ErrConcurrentActivation
	}
	s.claimed[id] = true
	return &copied, nil
}

func (s *memExecutionStore) Save(ctx context.Context, id uuid.UUID, updates map[string]interface{}, keepLease bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[id]
	if !ok {
		return ErrExecutionNotFound
	}
	applyUpdates(exec, updates)
	if !keepLease {
		s.claimed[id] = false
	}
	return nil
}

func (s *memExecutionStore) Finish(ctx context.Context, id uuid.UUID, status model.ExecutionStatus, errorMsg string, event *model.ExecutionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[id]
	if !ok {
		return ErrExecutionNotFound
	}
	now := time.Now()
	exec.Status = status
	exec.ErrorMessage = errorMsg
	exec.FinishedAt = &now
	s.claimed[id] = false
	s.events = append(s.events, event)
	return nil
}

func (s *memExecutionStore) ListDue(ctx context.Context, now time.Time, limit int) ([]model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := make([]model.Execution, 0)
	for id, exec := range s.execs {
		if exec.Status != model.ExecutionRunning || s.claimed[id] {
			continue
		}
		wakeDue := exec.WakeAt != nil && !exec.WakeAt.After(now)
		retryDue := exec.NextAttemptAt != nil && !exec.NextAttemptAt.After(now)
		if wakeDue || retryDue {
			due = append(due, *exec)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (s *memExecutionStore) get(id uuid.UUID) *model.Execution {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec := s.execs[id]
	copied := *exec
	return &copied
}

func applyUpdates(exec *model.Execution, updates map[string]interface{}) {
	for key, value := range updates {
		switch key {
		case "current_node_id":
			exec.CurrentNodeID = value.(string)
		case "wake_at":
			if value == nil {
				exec.WakeAt = nil
			} else {
				exec.WakeAt = value.(*time.Time)
			}
		case "attempt":
			exec.Attempt = value.(int)
		case "next_attempt_at":
			if value == nil {
				exec.NextAttemptAt = nil
			} else {
				exec.NextAttemptAt = value.(*time.Time)
			}
		}
	}
}

type memDefinitionStore struct {
	definitions []model.AutomationDefinition
	versions    map[uuid.UUID]*model.AutomationVersion
	versionErr  map[uuid.UUID]error
}

func newMemDefinitionStore() *memDefinitionStore {
	return &memDefinitionStore{
		versions:   make(map[uuid.UUID]*model.AutomationVersion),
		versionErr: make(map[uuid.UUID]error),
	}
}

func (s *memDefinitionStore) add(def model.AutomationDefinition, version *model.AutomationVersion) {
	s.definitions = append(s.definitions, def)
	if version != nil {
		s.versions[def.ID] = version
	}
}

func (s *memDefinitionStore) ListPublished(ctx context.Context, tenantID uuid.UUID, trigger model.TriggerType) ([]model.AutomationDefinition, error) {
	matched := make([]model.AutomationDefinition, 0)
	for _, def := range s.definitions {
		if def.TenantID == tenantID && def.TriggerType == trigger && def.Status == model.AutomationPublished {
			matched = append(matched, def)
		}
	}
	return matched, nil
}

func (s *memDefinitionStore) ActiveVersion(ctx context.Context, definitionID uuid.UUID) (*model.AutomationVersion, error) {
	if err := s.versionErr[definitionID]; err != nil {
		return nil, err
	}
	version, ok := s.versions[definitionID]
	if !ok {
		return nil, ErrDefinitionNotFound
	}
	return version, nil
}

type memSettingsStore struct {
	settings map[uuid.UUID]*model.TenantSettings
}

func newMemSettingsStore() *memSettingsStore {
	return &memSettingsStore{settings: make(map[uuid.UUID]*model.TenantSettings)}
}

func (s *memSettingsStore) Get(ctx context.Context, tenantID uuid.UUID) (*model.TenantSettings, error) {
	if settings, ok := s.settings[tenantID]; ok {
		return settings, nil
	}
	return &model.TenantSettings{TenantID: tenantID}, nil
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []string
	errs       map[string][]error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{errs: make(map[string][]error)}
}

// failWith queues errors returned by successive dispatches of a node.
func (d *fakeDispatcher) failWith(nodeID string, errs ...error) {
	d.errs[nodeID] = append(d.errs[nodeID], errs...)
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, exec *model.Execution, node *model.Node, settings *model.TenantSettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if queue := d.errs[node.ID]; len(queue) > 0 {
		err := queue[0]
		d.errs[node.ID] = queue[1:]
		if err != nil {
			return err
		}
	}
	d.dispatched = append(d.dispatched, node.ID)
	return nil
}

func (d *fakeDispatcher) count(nodeID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, id := range d.dispatched {
		if id == nodeID {
			n++
		}
	}
	return n
}
