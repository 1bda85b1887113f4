package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Contact is the minimal slice of the CRM contact the engine touches: tag
// union for the add_tag action and recipient lookups for messaging receipts.
type Contact struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Tags      pq.StringArray `gorm:"type:text[];default:'{}'"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Opportunity is a pipeline deal; update_opportunity_stage writes only the
// fields present in the action config.
type Opportunity struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ContactID *uuid.UUID `gorm:"type:uuid;index"`
	Stage     string
	Value     float64
	Status    string `gorm:"type:varchar(50);default:'open'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContactTask is a follow-up task created by the create_task action.
type ContactTask struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ContactID uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"not null"`
	Body      string
	DueAt     *time.Time
	Completed bool `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
