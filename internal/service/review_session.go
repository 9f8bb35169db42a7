package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"formscan/internal/document"
	"formscan/internal/domain"
)

// Error kinds carried by SessionError.
const (
	ErrorKindTransport = "transport"
	ErrorKindBackend   = "backend"
	ErrorKindMalformed = "malformed"
)

// SessionError is the error value of a session in the error state. Body is
// the backend's response text, unmodified.
type SessionError struct {
	Kind    string `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Body    string `json:"body,omitempty"`
	Message string `json:"message"`
}

func newSessionError(err error) *SessionError {
	var (
		te *domain.TransportError
		be *domain.BackendError
		me *domain.MalformedResponseError
	)
	switch {
	case errors.As(err, &be):
		return &SessionError{Kind: ErrorKindBackend, Status: be.Status, Body: be.Body, Message: be.Body}
	case errors.As(err, &me):
		return &SessionError{
			Kind:    ErrorKindMalformed,
			Status:  me.Status,
			Body:    me.Preview,
			Message: fmt.Sprintf("backend returned an unreadable document: %v", me.Err),
		}
	case errors.As(err, &te):
		return &SessionError{Kind: ErrorKindTransport, Message: "backend unreachable: " + te.Err.Error()}
	default:
		return &SessionError{Kind: ErrorKindTransport, Message: err.Error()}
	}
}

// SessionSnapshot is a consistent copy of a session's observable state.
type SessionSnapshot struct {
	ID         uuid.UUID              `json:"id"`
	JobID      string                 `json:"jobId"`
	Operator   string                 `json:"operator,omitempty"`
	State      domain.JobState        `json:"state"`
	Error      *SessionError          `json:"error,omitempty"`
	Document   *document.CurvatureDoc `json:"document,omitempty"`
	Advisories []document.Advisory    `json:"advisories,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// Session drives one job through idle, running, done and error. Extraction
// results are applied only when they belong to the current generation and
// the session has not been closed.
type Session struct {
	ID        uuid.UUID
	JobID     string
	Operator  string
	CreatedAt time.Time

	extractor *Extractor
	flights   *singleflight.Group
	audit     *auditRecorder
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      domain.JobState
	failure    *SessionError
	doc        *document.CurvatureDoc
	generation uint64
	closed     bool
	updatedAt  time.Time
	lastActive time.Time
	settled    chan struct{}
}

func newSession(jobID, operator string, extractor *Extractor, flights *singleflight.Group, audit *auditRecorder, timeout time.Duration) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC()
	settled := make(chan struct{})
	close(settled)
	return &Session{
		ID:         uuid.New(),
		JobID:      jobID,
		Operator:   operator,
		CreatedAt:  now,
		extractor:  extractor,
		flights:    flights,
		audit:      audit,
		timeout:    timeout,
		ctx:        ctx,
		cancel:     cancel,
		state:      domain.JobStateIdle,
		updatedAt:  now,
		lastActive: now,
		settled:    settled,
	}
}

// Observe starts extraction the first time the session's job is seen. Later
// calls are no-ops.
func (s *Session) Observe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	s.lastActive = time.Now().UTC()
	if s.state != domain.JobStateIdle {
		return nil
	}
	s.startLocked()
	return nil
}

// Retry re-issues the full extraction. Only idle and error sessions can retry.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != domain.JobStateIdle && s.state != domain.JobStateError {
		return fmt.Errorf("%w: cannot retry from %s", domain.ErrInvalidTransition, s.state)
	}
	s.lastActive = time.Now().UTC()
	s.startLocked()
	return nil
}

func (s *Session) startLocked() {
	s.generation++
	s.state = domain.JobStateRunning
	s.failure = nil
	s.doc = nil
	s.updatedAt = time.Now().UTC()
	s.settled = make(chan struct{})

	// Joined synchronously so a second observer of the job always shares
	// this flight.
	ch := s.flights.DoChan(s.JobID, func() (interface{}, error) {
		// Detached from the session: other sessions may have joined this flight.
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		log.Printf("reviewSession.run: extracting job %s", s.JobID)
		return s.extractor.Extract(ctx, s.JobID)
	})
	go s.run(s.generation, ch, s.settled)
}

func (s *Session) run(gen uint64, ch <-chan singleflight.Result, settled chan struct{}) {
	defer close(settled)

	var res singleflight.Result
	select {
	case <-s.ctx.Done():
		log.Printf("reviewSession.run: session %s closed, discarding extraction of job %s", s.ID, s.JobID)
		return
	case res = <-ch:
	}

	entry, applied := s.apply(gen, res)
	if applied {
		s.audit.record(entry)
	}
}

func (s *Session) apply(gen uint64, res singleflight.Result) (domain.ReviewAuditEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		log.Printf("reviewSession.apply: discarding stale extraction of job %s (session %s)", s.JobID, s.ID)
		return domain.ReviewAuditEntry{}, false
	}

	entry := domain.ReviewAuditEntry{SessionID: s.ID, JobID: s.JobID, Operator: s.Operator}
	s.updatedAt = time.Now().UTC()

	if res.Err != nil {
		s.state = domain.JobStateError
		s.failure = newSessionError(res.Err)
		log.Printf("reviewSession.apply: job %s failed: %v", s.JobID, res.Err)
		entry.Action = domain.AuditActionExtractError
		entry.Detail = s.failure.Message
		return entry, true
	}

	doc, ok := res.Val.(*document.CurvatureDoc)
	if !ok || doc == nil {
		s.state = domain.JobStateError
		s.failure = &SessionError{Kind: ErrorKindMalformed, Message: "extraction produced no document"}
		entry.Action = domain.AuditActionExtractError
		entry.Detail = s.failure.Message
		return entry, true
	}

	// Sessions sharing a flight get the same pointer; each keeps its own copy.
	s.doc = doc.Clone()
	s.state = domain.JobStateDone
	entry.Action = domain.AuditActionExtractDone
	entry.Detail = fmt.Sprintf("%d rows", len(s.doc.Table.Rows))
	return entry, true
}

// Edit sets one cell of the extracted document.
func (s *Session) Edit(path string, v document.Value) (document.Edit, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return document.Edit{}, domain.ErrSessionClosed
	}
	if s.state != domain.JobStateDone || s.doc == nil {
		s.mu.Unlock()
		return document.Edit{}, domain.ErrNoDocument
	}
	edit, err := s.doc.UpdateCell(path, v)
	if err != nil {
		s.mu.Unlock()
		return document.Edit{}, err
	}
	now := time.Now().UTC()
	s.updatedAt = now
	s.lastActive = now
	s.mu.Unlock()

	s.audit.record(domain.ReviewAuditEntry{
		SessionID: s.ID,
		JobID:     s.JobID,
		Operator:  s.Operator,
		Action:    domain.AuditActionCellEdit,
		Path:      edit.Path,
		OldValue:  edit.Old.String(),
		NewValue:  edit.New.String(),
	})
	return edit, nil
}

// DocumentForExport returns the reviewed document as it should be sent to
// the backend.
func (s *Session) DocumentForExport() (*document.CurvatureDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	if s.state != domain.JobStateDone || s.doc == nil {
		return nil, domain.ErrNoDocument
	}
	s.lastActive = time.Now().UTC()
	return s.doc.ForExport(), nil
}

// Snapshot returns a copy of the session's state.
func (s *Session) Snapshot() *SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now().UTC()

	snap := &SessionSnapshot{
		ID:        s.ID,
		JobID:     s.JobID,
		Operator:  s.Operator,
		State:     s.state,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.updatedAt,
	}
	if s.failure != nil {
		f := *s.failure
		snap.Error = &f
	}
	if s.doc != nil {
		snap.Document = s.doc.Clone()
		snap.Advisories = s.doc.Advisories()
	}
	return snap
}

// State returns the current lifecycle state.
func (s *Session) State() domain.JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears the session down. A pending extraction is discarded when it
// completes.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.cancel()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Wait blocks until the current extraction has been applied or discarded.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	settled := s.settled
	s.mu.Unlock()

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
