package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"formscan/internal/domain"
	"formscan/internal/port"
)

type reviewAuditRepo struct {
	db *sqlx.DB
}

// NewReviewAuditRepo creates a new PostgreSQL-backed ReviewAuditRepository.
func NewReviewAuditRepo(db *sqlx.DB) port.ReviewAuditRepository {
	return &reviewAuditRepo{db: db}
}

func (r *reviewAuditRepo) Create(ctx context.Context, entry *domain.ReviewAuditEntry) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO review_audit_log (id, session_id, job_id, operator, action, path, old_value, new_value, detail, created_at)
		 VALUES (:id, :session_id, :job_id, :operator, :action, :path, :old_value, :new_value, :detail, :created_at)`,
		entry)
	if err != nil {
		return fmt.Errorf("reviewAuditRepo.Create: %w", err)
	}
	return nil
}

func (r *reviewAuditRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]domain.ReviewAuditEntry, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM review_audit_log WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, 0, fmt.Errorf("reviewAuditRepo.ListBySession count: %w", err)
	}

	var entries []domain.ReviewAuditEntry
	err = r.db.SelectContext(ctx, &entries,
		`SELECT * FROM review_audit_log
		 WHERE session_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		sessionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("reviewAuditRepo.ListBySession: %w", err)
	}
	return entries, total, nil
}
