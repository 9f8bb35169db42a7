package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"formscan/internal/document"
	"formscan/internal/domain"
	"formscan/internal/port"
)

// CellEditResult is returned after a cell edit.
type CellEditResult struct {
	Edit       document.Edit       `json:"edit"`
	Cell       document.Cell       `json:"cell"`
	Advisories []document.Advisory `json:"advisories"`
}

// ReviewService defines the review session contract.
type ReviewService interface {
	Open(ctx context.Context, jobID, operator string) (*SessionSnapshot, error)
	Get(ctx context.Context, id uuid.UUID) (*SessionSnapshot, error)
	Retry(ctx context.Context, id uuid.UUID) (*SessionSnapshot, error)
	EditCell(ctx context.Context, id uuid.UUID, path string, value document.Value) (*CellEditResult, error)
	Export(ctx context.Context, id uuid.UUID) (*port.Relay, error)
	Close(ctx context.Context, id uuid.UUID) error
	ListAudit(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.ReviewAuditEntry, int, error)
}

// SessionManagerConfig holds settings for the session manager.
type SessionManagerConfig struct {
	ExtractTimeout time.Duration
}

// SessionManager owns the live review sessions. Extractions of the same job
// share one in-flight backend request across all sessions.
type SessionManager struct {
	extractor *Extractor
	exports   ExportService
	audit     *auditRecorder
	cfg       SessionManagerConfig
	flights   singleflight.Group

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(
	extractor *Extractor,
	exports ExportService,
	auditRepo port.ReviewAuditRepository,
	cfg SessionManagerConfig,
) *SessionManager {
	return &SessionManager{
		extractor: extractor,
		exports:   exports,
		audit:     &auditRecorder{repo: auditRepo},
		cfg:       cfg,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

func (m *SessionManager) Open(_ context.Context, jobID, operator string) (*SessionSnapshot, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, domain.ErrMissingJobID
	}

	s := newSession(jobID, operator, m.extractor, &m.flights, m.audit, m.cfg.ExtractTimeout)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if err := s.Observe(); err != nil {
		return nil, fmt.Errorf("sessionManager.Open: %w", err)
	}
	log.Printf("sessionManager.Open: session %s opened for job %s", s.ID, jobID)
	return s.Snapshot(), nil
}

func (m *SessionManager) Get(_ context.Context, id uuid.UUID) (*SessionSnapshot, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

func (m *SessionManager) Retry(_ context.Context, id uuid.UUID) (*SessionSnapshot, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	if err := s.Retry(); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

func (m *SessionManager) EditCell(_ context.Context, id uuid.UUID, path string, value document.Value) (*CellEditResult, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	edit, err := s.Edit(path, value)
	if err != nil {
		return nil, err
	}

	snap := s.Snapshot()
	result := &CellEditResult{Edit: edit, Advisories: snap.Advisories}
	if snap.Document != nil {
		if c, err := snap.Document.Cell(path); err == nil {
			result.Cell = c
		}
	}
	return result, nil
}

// Export sends the session's reviewed document to the backend. Advisories
// never block an export.
func (m *SessionManager) Export(ctx context.Context, id uuid.UUID) (*port.Relay, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.DocumentForExport()
	if err != nil {
		return nil, err
	}
	reviewed, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("sessionManager.Export: marshaling document: %w", err)
	}

	if anomalies := doc.ExportAnomalies(); len(anomalies) > 0 {
		log.Printf("sessionManager.Export: job %s exported with %d cells flagged for review", s.JobID, len(anomalies))
	}

	relay, err := m.exports.Export(ctx, s.JobID, reviewed)
	if err != nil {
		return nil, err
	}
	if relay.OK() {
		m.audit.record(domain.ReviewAuditEntry{
			SessionID: s.ID,
			JobID:     s.JobID,
			Operator:  s.Operator,
			Action:    domain.AuditActionExport,
			Detail:    fmt.Sprintf("%d bytes", len(relay.Body)),
		})
	}
	return relay, nil
}

func (m *SessionManager) Close(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Close()
	log.Printf("sessionManager.Close: session %s closed", id)
	return nil
}

// ListAudit returns a page of the session's audit trail. The trail outlives
// the session, so closed and reaped sessions can still be listed.
func (m *SessionManager) ListAudit(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.ReviewAuditEntry, int, error) {
	entries, total, err := m.audit.list(ctx, id, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("sessionManager.ListAudit: %w", err)
	}
	return entries, total, nil
}

// Session returns the live session with the given id.
func (m *SessionManager) Session(id uuid.UUID) (*Session, error) {
	return m.session(id)
}

// ReapIdle closes every session inactive for longer than ttl and returns how
// many were closed.
func (m *SessionManager) ReapIdle(ttl time.Duration) int {
	cutoff := time.Now().UTC().Add(-ttl)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// CloseAll tears down every session. Used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	log.Printf("sessionManager.CloseAll: closed %d sessions", len(sessions))
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) session(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}
