package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivityRecord is an append-only receipt of one dispatched action, shown on
// the contact's interaction timeline. DedupKey (execution id + node id) makes
// a retried step write at most one row.
type ActivityRecord struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ContactID   *uuid.UUID `gorm:"type:uuid;index"`
	ExecutionID uuid.UUID  `gorm:"type:uuid;not null;index"`
	NodeID      string     `gorm:"not null"`
	DedupKey    string     `gorm:"uniqueIndex;not null"`
	ActionType  ActionType `gorm:"type:varchar(50);not null"`
	Summary     string
	CreatedAt   time.Time `gorm:"index"`
}

// UsageRecord is the billing-side receipt, same dedup discipline.
type UsageRecord struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ExecutionID uuid.UUID  `gorm:"type:uuid;not null"`
	NodeID      string     `gorm:"not null"`
	DedupKey    string     `gorm:"uniqueIndex;not null"`
	Kind        ActionType `gorm:"type:varchar(50);not null"`
	Quantity    int        `gorm:"default:1"`
	CreatedAt   time.Time
}

// DedupKey builds the idempotency key for one (execution, node) pair.
func DedupKey(executionID uuid.UUID, nodeID string) string {
	return executionID.String() + ":" + nodeID
}
