package engine

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/model"
)

func TestSchedulerResumesDueExecutions(t *testing.T) {
	store := newMemExecutionStore()
	dispatcher := newFakeDispatcher()
	executor := newTestExecutor(store, dispatcher)
	scheduler := NewScheduler(store, executor, zap.NewNop(), time.Second, 100)

	due := newRunningExecution(linearGraph(), map[string]interface{}{"from_number": "+15551234567"})
	due.CurrentNodeID = "d1"
	past := time.Now().Add(-time.Minute)
	due.WakeAt = &past
	_ = store.Create(context.Background(), due, nil)

	notDue := newRunningExecution(linearGraph(), map[string]interface{}{})
	notDue.CurrentNodeID = "d1"
	future := time.Now().Add(time.Hour)
	notDue.WakeAt = &future
	_ = store.Create(context.Background(), notDue, nil)

	scheduler.resumeDue(context.Background())

	if store.get(due.ID).Status != model.ExecutionCompleted {
		t.Fatalf("expected due execution to complete, got %s", store.get(due.ID).Status)
	}
	if store.get(notDue.ID).Status != model.ExecutionRunning {
		t.Fatal("future execution must stay suspended")
	}
	if dispatcher.count("a1") != 1 {
		t.Fatalf("expected one action dispatch, got %d", dispatcher.count("a1"))
	}
}

func TestSchedulerSkipsClaimedExecutions(t *testing.T) {
	store := newMemExecutionStore()
	executor := newTestExecutor(store, newFakeDispatcher())
	scheduler := NewScheduler(store, executor, zap.NewNop(), time.Second, 100)

	exec := newRunningExecution(linearGraph(), map[string]interface{}{})
	exec.CurrentNodeID = "d1"
	past := time.Now().Add(-time.Minute)
	exec.WakeAt = &past
	_ = store.Create(context.Background(), exec, nil)

	if _, err := store.Claim(context.Background(), exec.ID); err != nil {
		t.Fatalf("setup claim failed: %v", err)
	}

	scheduler.resumeDue(context.Background())

	if store.get(exec.ID).Status != model.ExecutionRunning {
		t.Fatal("claimed execution must not be touched")
	}
}
