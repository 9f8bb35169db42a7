package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewAuditEntry records one lifecycle event or operator edit of a review session.
type ReviewAuditEntry struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	SessionID uuid.UUID   `db:"session_id" json:"session_id"`
	JobID     string      `db:"job_id" json:"job_id"`
	Operator  string      `db:"operator" json:"operator"`
	Action    AuditAction `db:"action" json:"action"`
	Path      string      `db:"path" json:"path"`
	OldValue  string      `db:"old_value" json:"old_value"`
	NewValue  string      `db:"new_value" json:"new_value"`
	Detail    string      `db:"detail" json:"detail"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
