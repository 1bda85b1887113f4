package action

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/model"
)

type fakeSms struct {
	sent []SmsMessage
	err  error
}

func (f *fakeSms) Send(ctx context.Context, msg SmsMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeEmail struct {
	sent []EmailMessage
	err  error
}

func (f *fakeEmail) Send(ctx context.Context, msg EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeCRM struct {
	tags  map[uuid.UUID][]string
	tasks []*model.ContactTask
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{tags: make(map[uuid.UUID][]string)}
}

func (f *fakeCRM) AddTags(ctx context.Context, tenantID, contactID uuid.UUID, tags []string) error {
	existing := f.tags[contactID]
	for _, tag := range tags {
		found := false
		for _, have := range existing {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, tag)
		}
	}
	f.tags[contactID] = existing
	return nil
}

func (f *fakeCRM) UpdateOpportunityStage(ctx context.Context, tenantID, opportunityID uuid.UUID, fields map[string]interface{}) error {
	return nil
}

func (f *fakeCRM) CreateTask(ctx context.Context, task *model.ContactTask) error {
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeRecords struct {
	activities []*model.ActivityRecord
	usages     []*model.UsageRecord
	seen       map[string]bool
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{seen: make(map[string]bool)}
}

func (f *fakeRecords) WriteReceipts(ctx context.Context, activity *model.ActivityRecord, usage *model.UsageRecord) error {
	if f.seen[activity.DedupKey] {
		return nil
	}
	f.seen[activity.DedupKey] = true
	f.activities = append(f.activities, activity)
	f.usages = append(f.usages, usage)
	return nil
}

func smsExecution(data map[string]interface{}) *model.Execution {
	return &model.Execution{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		TriggerData: model.JSONB(data),
	}
}

func smsNode(tmpl, toPath string) *model.Node {
	return &model.Node{
		ID:   "a1",
		Kind: model.NodeAction,
		Action: &model.ActionConfig{
			Type:     model.ActionSendSms,
			Template: tmpl,
			ToPath:   toPath,
		},
	}
}

func TestDispatchSendSms(t *testing.T) {
	sms := &fakeSms{}
	records := newFakeRecords()
	d := NewDispatcher(sms, &fakeEmail{}, newFakeCRM(), records, zap.NewNop())

	exec := smsExecution(map[string]interface{}{"from_number": "+15557778888"})
	node := smsNode("Sorry we missed you, {{from_number}}!", "from_number")
	settings := &model.TenantSettings{SmsFromNumber: "+15550000000"}

	if err := d.Dispatch(context.Background(), exec, node, settings); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if len(sms.sent) != 1 {
		t.Fatalf("expected 1 SMS, got %d", len(sms.sent))
	}
	if sms.sent[0].To != "+15557778888" {
		t.Fatalf("unexpected recipient %q", sms.sent[0].To)
	}
	if sms.sent[0].Body != "Sorry we missed you, +15557778888!" {
		t.Fatalf("unexpected body %q", sms.sent[0].Body)
	}
	if len(records.activities) != 1 || len(records.usages) != 1 {
		t.Fatalf("expected one activity and one usage record, got %d/%d", len(records.activities), len(records.usages))
	}
	if records.activities[0].DedupKey != model.DedupKey(exec.ID, "a1") {
		t.Fatalf("unexpected dedup key %q", records.activities[0].DedupKey)
	}
}

func TestDispatchMissingRecipient(t *testing.T) {
	sms := &fakeSms{}
	records := newFakeRecords()
	d := NewDispatcher(sms, &fakeEmail{}, newFakeCRM(), records, zap.NewNop())

	exec := smsExecution(map[string]interface{}{"contact": map[string]interface{}{"first_name": "Ada"}})
	node := smsNode("hi", "")
	settings := &model.TenantSettings{SmsFromNumber: "+15550000000"}

	err := d.Dispatch(context.Background(), exec, node, settings)
	if !errors.Is(err, ErrMissingRecipient) {
		t.Fatalf("expected ErrMissingRecipient, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatal("missing recipient must not be retryable")
	}
	if len(records.activities) != 0 {
		t.Fatal("no activity record should be written on failure")
	}
}

func TestDispatchChannelNotConfigured(t *testing.T) {
	d := NewDispatcher(&fakeSms{}, &fakeEmail{}, newFakeCRM(), newFakeRecords(), zap.NewNop())

	exec := smsExecution(map[string]interface{}{"contact": map[string]interface{}{"phone": "+15551112222"}})
	node := smsNode("hi", "")

	err := d.Dispatch(context.Background(), exec, node, &model.TenantSettings{})
	if !errors.Is(err, ErrChannelNotConfigured) {
		t.Fatalf("expected ErrChannelNotConfigured, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatal("missing channel must not be retryable")
	}
}

func TestDispatchProviderErrorClassification(t *testing.T) {
	sms := &fakeSms{err: Transient(errors.New("gateway timeout"))}
	d := NewDispatcher(sms, &fakeEmail{}, newFakeCRM(), newFakeRecords(), zap.NewNop())

	exec := smsExecution(map[string]interface{}{"contact": map[string]interface{}{"phone": "+15551112222"}})
	node := smsNode("hi", "")
	settings := &model.TenantSettings{SmsFromNumber: "+15550000000"}

	err := d.Dispatch(context.Background(), exec, node, settings)
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	sms.err = Permanent(errors.New("invalid number"))
	err = d.Dispatch(context.Background(), exec, node, settings)
	if err == nil || IsRetryable(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestDispatchAddTagUnion(t *testing.T) {
	crm := newFakeCRM()
	records := newFakeRecords()
	d := NewDispatcher(&fakeSms{}, &fakeEmail{}, crm, records, zap.NewNop())

	contactID := uuid.New()
	exec := smsExecution(map[string]interface{}{
		"contact": map[string]interface{}{"id": contactID.String()},
	})
	node := &model.Node{
		ID:     "a1",
		Kind:   model.NodeAction,
		Action: &model.ActionConfig{Type: model.ActionAddTag, Tags: []string{"vip", "follow-up"}},
	}

	for i := 0; i < 2; i++ {
		if err := d.Dispatch(context.Background(), exec, node, nil); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
	}

	if got := len(crm.tags[contactID]); got != 2 {
		t.Fatalf("expected tag union of 2, got %d: %v", got, crm.tags[contactID])
	}
	if len(records.activities) != 1 {
		t.Fatalf("retried dispatch must not double-log, got %d activities", len(records.activities))
	}
}

func TestDispatchSendEmail(t *testing.T) {
	email := &fakeEmail{}
	d := NewDispatcher(&fakeSms{}, email, newFakeCRM(), newFakeRecords(), zap.NewNop())

	exec := smsExecution(map[string]interface{}{
		"contact": map[string]interface{}{"email": "ada@example.com", "first_name": "Ada"},
	})
	node := &model.Node{
		ID:   "a1",
		Kind: model.NodeAction,
		Action: &model.ActionConfig{
			Type:     model.ActionSendEmail,
			Subject:  "Welcome {{contact.first_name}}",
			Template: "Hello {{contact.first_name}}!",
		},
	}
	settings := &model.TenantSettings{EmailSendingDomain: "mail.example.com"}

	if err := d.Dispatch(context.Background(), exec, node, settings); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if len(email.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(email.sent))
	}
	if email.sent[0].From != "no-reply@mail.example.com" {
		t.Fatalf("unexpected from %q", email.sent[0].From)
	}
	if email.sent[0].Subject != "Welcome Ada" {
		t.Fatalf("unexpected subject %q", email.sent[0].Subject)
	}
}
