package noop

import (
	"context"

	"github.com/google/uuid"

	"formscan/internal/domain"
	"formscan/internal/port"
)

type reviewAuditRepo struct{}

// NewReviewAuditRepo creates a ReviewAuditRepository that stores nothing.
// Used when the audit log is disabled.
func NewReviewAuditRepo() port.ReviewAuditRepository {
	return reviewAuditRepo{}
}

func (reviewAuditRepo) Create(context.Context, *domain.ReviewAuditEntry) error {
	return nil
}

func (reviewAuditRepo) ListBySession(context.Context, uuid.UUID, int, int) ([]domain.ReviewAuditEntry, int, error) {
	return nil, 0, nil
}
