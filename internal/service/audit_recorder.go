package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"formscan/internal/domain"
	"formscan/internal/port"
)

const auditWriteTimeout = 5 * time.Second

// auditRecorder writes review audit entries. Failures are logged only.
type auditRecorder struct {
	repo port.ReviewAuditRepository
}

// list returns a page of a session's audit trail, newest first.
func (a *auditRecorder) list(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]domain.ReviewAuditEntry, int, error) {
	if a == nil || a.repo == nil {
		return []domain.ReviewAuditEntry{}, 0, nil
	}
	entries, total, err := a.repo.ListBySession(ctx, sessionID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	if entries == nil {
		entries = []domain.ReviewAuditEntry{}
	}
	return entries, total, nil
}

func (a *auditRecorder) record(entry domain.ReviewAuditEntry) {
	if a == nil || a.repo == nil {
		return
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()
	if err := a.repo.Create(ctx, &entry); err != nil {
		log.Printf("reviewAudit.record: session %s action %s: %v", entry.SessionID, entry.Action, err)
	}
}
