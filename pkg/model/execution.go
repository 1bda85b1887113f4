package model

import (
	"time"

	"github.com/google/uuid"
)

type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionFailed    ExecutionStatus = "FAILED"
)

// ErrorMessageLimit bounds the stored error message of a failed execution.
const ErrorMessageLimit = 500

// Execution is one run of an automation version against one triggering
// event. The graph and trigger data are frozen at start; later edits to the
// definition never reach a running execution.
//
// WakeAt is the durable delay timer, NextAttemptAt the retry timer for a
// transiently failed action step. ClaimedAt is the single-writer lease: an
// activation holds the row while walking the graph and releases it on
// suspend or terminal state.
type Execution struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	DefinitionID  *uuid.UUID `gorm:"type:uuid;index"`
	VersionID     *uuid.UUID `gorm:"type:uuid"`
	Version       int
	TriggerType   TriggerType     `gorm:"type:varchar(100);not null"`
	TriggerData   JSONB           `gorm:"type:jsonb;not null"`
	Graph         Graph           `gorm:"type:jsonb;not null"`
	Status        ExecutionStatus `gorm:"type:varchar(50);default:'RUNNING';index"`
	CurrentNodeID string          `gorm:"not null"`
	WakeAt        *time.Time      `gorm:"index"`
	Attempt       int             `gorm:"default:0"`
	NextAttemptAt *time.Time      `gorm:"index"`
	ClaimedAt     *time.Time
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (e *Execution) Terminal() bool {
	return e.Status == ExecutionCompleted || e.Status == ExecutionFailed
}

// TruncateError trims an error message to what the ledger stores.
func TruncateError(msg string) string {
	if len(msg) > ErrorMessageLimit {
		return msg[:ErrorMessageLimit]
	}
	return msg
}
