package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AutomationStatus string

const (
	AutomationDraft     AutomationStatus = "DRAFT"
	AutomationPublished AutomationStatus = "PUBLISHED"
)

type TriggerType string

const (
	TriggerContactCreated      TriggerType = "contact.created"
	TriggerFormSubmitted       TriggerType = "form.submitted"
	TriggerCallMissed          TriggerType = "call.missed"
	TriggerOpportunityStage    TriggerType = "opportunity.stage_changed"
	TriggerAppointmentBooked   TriggerType = "appointment.booked"
)

// AutomationDefinition is a tenant-authored automation recipe. The Graph column
// holds the draft graph being edited; publishing snapshots it into an immutable
// AutomationVersion, which is what executions run against.
type AutomationDefinition struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"not null"`
	TriggerType TriggerType `gorm:"type:varchar(100);not null;index"`
	Status      AutomationStatus `gorm:"type:varchar(50);default:'DRAFT';index"`
	Version     int       `gorm:"default:0"`
	Graph       Graph     `gorm:"type:jsonb;not null"`
	Versions    []AutomationVersion `gorm:"foreignKey:DefinitionID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// AutomationVersion is a frozen graph snapshot created on publish. Rows are
// never updated; executions copy the graph out of the version at start.
type AutomationVersion struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DefinitionID uuid.UUID `gorm:"type:uuid;not null;index"`
	Version      int       `gorm:"not null"`
	Graph        Graph     `gorm:"type:jsonb;not null"`
	PublishedAt  time.Time `gorm:"autoCreateTime"`
}

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONB) GormDataType() string {
	return "jsonb"
}
