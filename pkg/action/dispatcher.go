package action

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/model"
	"github.com/relaycrm/relaycrm/pkg/template"
)

// RecordStore persists the side-effect receipts of a dispatched action. The
// write must be idempotent on the records' dedup key so a retried step never
// double-logs.
type RecordStore interface {
	WriteReceipts(ctx context.Context, activity *model.ActivityRecord, usage *model.UsageRecord) error
}

// CRMService is the contact-side collaborator for non-messaging actions.
type CRMService interface {
	AddTags(ctx context.Context, tenantID, contactID uuid.UUID, tags []string) error
	UpdateOpportunityStage(ctx context.Context, tenantID, opportunityID uuid.UUID, fields map[string]interface{}) error
	CreateTask(ctx context.Context, task *model.ContactTask) error
}

type Dispatcher struct {
	sms     SmsProvider
	email   EmailProvider
	crm     CRMService
	records RecordStore
	logger  *zap.Logger
}

func NewDispatcher(sms SmsProvider, email EmailProvider, crm CRMService, records RecordStore, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sms: sms, email: email, crm: crm, records: records, logger: logger}
}

// Dispatch runs one action node against an execution's frozen trigger data.
// On success it writes exactly one activity and one usage record keyed by
// (execution id, node id).
func (d *Dispatcher) Dispatch(ctx context.Context, exec *model.Execution, node *model.Node, settings *model.TenantSettings) error {
	cfg := node.Action
	if cfg == nil {
		return fmt.Errorf("%w: node %s has no action config", ErrUnknownActionType, node.ID)
	}

	data := map[string]interface{}(exec.TriggerData)
	dedupKey := model.DedupKey(exec.ID, node.ID)

	var summary string
	var err error
	switch cfg.Type {
	case model.ActionSendSms:
		summary, err = d.sendSms(ctx, cfg, data, settings, dedupKey)
	case model.ActionSendEmail:
		summary, err = d.sendEmail(ctx, cfg, data, settings, dedupKey)
	case model.ActionAddTag:
		summary, err = d.addTags(ctx, exec.TenantID, cfg, data)
	case model.ActionUpdateOpportunityStage:
		summary, err = d.updateOpportunityStage(ctx, exec.TenantID, cfg, data)
	case model.ActionCreateTask:
		summary, err = d.createTask(ctx, exec.TenantID, cfg, data)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownActionType, cfg.Type)
	}
	if err != nil {
		return err
	}

	activity := &model.ActivityRecord{
		TenantID:    exec.TenantID,
		ContactID:   contactIDFrom(data),
		ExecutionID: exec.ID,
		NodeID:      node.ID,
		DedupKey:    dedupKey,
		ActionType:  cfg.Type,
		Summary:     summary,
	}
	usage := &model.UsageRecord{
		TenantID:    exec.TenantID,
		ExecutionID: exec.ID,
		NodeID:      node.ID,
		DedupKey:    dedupKey,
		Kind:        cfg.Type,
		Quantity:    1,
	}
	if err := d.records.WriteReceipts(ctx, activity, usage); err != nil {
		return fmt.Errorf("write receipts: %w", err)
	}

	d.logger.Info("action dispatched",
		zap.String("execution_id", exec.ID.String()),
		zap.String("node_id", node.ID),
		zap.String("action_type", string(cfg.Type)))
	return nil
}

func (d *Dispatcher) sendSms(ctx context.Context, cfg *model.ActionConfig, data map[string]interface{}, settings *model.TenantSettings, dedupKey string) (string, error) {
	to := resolveRecipient(data, cfg.ToPath, "contact.phone")
	if to == "" {
		return "", fmt.Errorf("%w: no phone number in trigger data", ErrMissingRecipient)
	}
	if settings == nil || settings.SmsFromNumber == "" {
		return "", fmt.Errorf("%w: tenant has no SMS number", ErrChannelNotConfigured)
	}

	body := template.Render(cfg.Template, data)
	msg := SmsMessage{To: to, From: settings.SmsFromNumber, Body: body, IdempotencyKey: dedupKey}
	if err := d.sms.Send(ctx, msg); err != nil {
		return "", err
	}
	return fmt.Sprintf("SMS sent to %s", to), nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, cfg *model.ActionConfig, data map[string]interface{}, settings *model.TenantSettings, dedupKey string) (string, error) {
	to := resolveRecipient(data, cfg.ToPath, "contact.email")
	if to == "" {
		return "", fmt.Errorf("%w: no email address in trigger data", ErrMissingRecipient)
	}
	if settings == nil || settings.EmailSendingDomain == "" {
		return "", fmt.Errorf("%w: tenant has no sending domain", ErrChannelNotConfigured)
	}

	from := settings.EmailFromAddress
	if from == "" {
		from = "no-reply@" + settings.EmailSendingDomain
	}
	msg := EmailMessage{
		To:             to,
		From:           from,
		Subject:        template.Render(cfg.Subject, data),
		Body:           template.Render(cfg.Template, data),
		IdempotencyKey: dedupKey,
	}
	if err := d.email.Send(ctx, msg); err != nil {
		return "", err
	}
	return fmt.Sprintf("email sent to %s", to), nil
}

func (d *Dispatcher) addTags(ctx context.Context, tenantID uuid.UUID, cfg *model.ActionConfig, data map[string]interface{}) (string, error) {
	contactID := contactIDFrom(data)
	if contactID == nil {
		return "", fmt.Errorf("%w: no contact id in trigger data", ErrMissingRecipient)
	}
	if err := d.crm.AddTags(ctx, tenantID, *contactID, cfg.Tags); err != nil {
		return "", err
	}
	return fmt.Sprintf("tagged contact with %v", cfg.Tags), nil
}

func (d *Dispatcher) updateOpportunityStage(ctx context.Context, tenantID uuid.UUID, cfg *model.ActionConfig, data map[string]interface{}) (string, error) {
	opportunityID := resolveUUID(data, "opportunity.id")
	if opportunityID == nil {
		return "", fmt.Errorf("%w: no opportunity id in trigger data", ErrMissingRecipient)
	}
	if err := d.crm.UpdateOpportunityStage(ctx, tenantID, *opportunityID, cfg.StageFields); err != nil {
		return "", err
	}
	return "opportunity stage updated", nil
}

func (d *Dispatcher) createTask(ctx context.Context, tenantID uuid.UUID, cfg *model.ActionConfig, data map[string]interface{}) (string, error) {
	contactID := contactIDFrom(data)
	if contactID == nil {
		return "", fmt.Errorf("%w: no contact id in trigger data", ErrMissingRecipient)
	}
	task := &model.ContactTask{
		TenantID:  tenantID,
		ContactID: *contactID,
		Title:     template.Render(cfg.TaskTitle, data),
		Body:      template.Render(cfg.TaskBody, data),
	}
	if err := d.crm.CreateTask(ctx, task); err != nil {
		return "", err
	}
	return fmt.Sprintf("task created: %s", task.Title), nil
}

func resolveRecipient(data map[string]interface{}, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	value, ok := template.Resolve(data, path)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func resolveUUID(data map[string]interface{}, path string) *uuid.UUID {
	value, ok := template.Resolve(data, path)
	if !ok {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return nil
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &parsed
}

func contactIDFrom(data map[string]interface{}) *uuid.UUID {
	return resolveUUID(data, "contact.id")
}
