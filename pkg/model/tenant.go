package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// LegacyAutomation is the pre-graph single-action automation shape kept for
// backward compatibility. The router treats an enabled entry as a synthetic
// trigger -> action workflow.
type LegacyAutomation struct {
	Enabled    bool       `json:"enabled"`
	ActionType ActionType `json:"action_type"`
	Template   string     `json:"template"`
	ToPath     string     `json:"to_path,omitempty"`
}

// TenantSettings carries the tenant's outbound channel configuration and
// legacy automation toggles. The engine reads it as a snapshot at activation
// start and never writes it.
type TenantSettings struct {
	TenantID           uuid.UUID `gorm:"type:uuid;primary_key"`
	SmsFromNumber      string
	EmailSendingDomain string
	EmailFromAddress   string
	LegacyAutomations  JSONB `gorm:"type:jsonb;default:'{}'"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// LegacyAutomationFor decodes the legacy automation configured for an event
// type, if any.
func (s *TenantSettings) LegacyAutomationFor(trigger TriggerType) *LegacyAutomation {
	if s == nil || s.LegacyAutomations == nil {
		return nil
	}
	raw, ok := s.LegacyAutomations[string(trigger)].(map[string]interface{})
	if !ok {
		return nil
	}
	legacy := &LegacyAutomation{}
	if enabled, ok := raw["enabled"].(bool); ok {
		legacy.Enabled = enabled
	}
	if actionType, ok := raw["action_type"].(string); ok {
		legacy.ActionType = ActionType(actionType)
	}
	if tmpl, ok := raw["template"].(string); ok {
		legacy.Template = tmpl
	}
	if toPath, ok := raw["to_path"].(string); ok {
		legacy.ToPath = toPath
	}
	return legacy
}
