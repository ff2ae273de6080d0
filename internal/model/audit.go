package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names a concession write.
type AuditAction string

const (
	AuditConcessionCreated AuditAction = "created"
	AuditConcessionUpdated AuditAction = "updated"
	AuditConcessionDeleted AuditAction = "deleted"
)

// ConcessionAuditEvent is queued after every successful concession write
// and persisted to concession_audit_logs by the audit worker.
type ConcessionAuditEvent struct {
	Action       AuditAction        `json:"action"`
	BranchID     uuid.UUID          `json:"branch_id"`
	ConcessionID uuid.UUID          `json:"concession_id"`
	ActorID      string             `json:"actor_id"`
	Category     ConcessionCategory `json:"category"`
	OccurredAt   time.Time          `json:"occurred_at"`
}
