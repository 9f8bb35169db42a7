package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formscan/internal/document"
	"formscan/internal/domain"
	"formscan/internal/port"
	"formscan/internal/service"
	"formscan/mocks"
)

func newManager(backend port.OCRBackend, exports service.ExportService, audit port.ReviewAuditRepository) *service.SessionManager {
	return service.NewSessionManager(newExtractor(backend), exports, audit, service.SessionManagerConfig{
		ExtractTimeout: 5 * time.Second,
	})
}

func waitSettled(t *testing.T, m *service.SessionManager, id uuid.UUID) *service.Session {
	t.Helper()
	s, err := m.Session(id)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	return s
}

func hasAdvisory(advisories []document.Advisory, code string) bool {
	for _, a := range advisories {
		if a.Code == code {
			return true
		}
	}
	return false
}

func TestSessionManager_Open_RunsToDone(t *testing.T) {
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").Return(okRelay(j1Payload), nil).Once()
	m := newManager(backend, nil, nil)

	snap, err := m.Open(context.Background(), "J1", "sato")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateRunning, snap.State)
	assert.Equal(t, "sato", snap.Operator)

	waitSettled(t, m, snap.ID)
	got, err := m.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateDone, got.State)
	assert.Nil(t, got.Error)
	require.NotNil(t, got.Document)
	assert.Len(t, got.Document.Table.Rows, 3)
	backend.AssertExpectations(t)
}

func TestSessionManager_Open_RequiresJobID(t *testing.T) {
	m := newManager(new(mocks.MockOCRBackend), nil, nil)

	_, err := m.Open(context.Background(), "  ", "")

	assert.ErrorIs(t, err, domain.ErrMissingJobID)
	assert.Zero(t, m.Len())
}

func TestSessionManager_SingleFlightPerJob(t *testing.T) {
	release := make(chan struct{})
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").
		Run(func(mock.Arguments) { <-release }).
		Return(okRelay(j1Payload), nil).Once()
	m := newManager(backend, nil, nil)

	first, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	second, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	close(release)

	s1 := waitSettled(t, m, first.ID)
	s2 := waitSettled(t, m, second.ID)

	assert.Equal(t, domain.JobStateDone, s1.State())
	assert.Equal(t, domain.JobStateDone, s2.State())
	backend.AssertNumberOfCalls(t, "Extract", 1)

	// Each session owns its own document.
	_, err = m.EditCell(context.Background(), first.ID, "table.title_raw", document.Text("R 3000"))
	require.NoError(t, err)
	other, err := m.Get(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, "", other.Document.Table.TitleRaw.Value.String())
}

func TestSessionManager_ObserveTwiceDoesNotRestart(t *testing.T) {
	release := make(chan struct{})
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").
		Run(func(mock.Arguments) { <-release }).
		Return(okRelay(j1Payload), nil).Once()
	m := newManager(backend, nil, nil)

	snap, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	s, err := m.Session(snap.ID)
	require.NoError(t, err)
	require.NoError(t, s.Observe())
	close(release)

	waitSettled(t, m, snap.ID)
	assert.Equal(t, domain.JobStateDone, s.State())
	require.NoError(t, s.Observe())
	assert.Equal(t, domain.JobStateDone, s.State())
	backend.AssertNumberOfCalls(t, "Extract", 1)
}

func TestSessionManager_CloseDiscardsPendingExtraction(t *testing.T) {
	release := make(chan struct{})
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").
		Run(func(mock.Arguments) { <-release }).
		Return(okRelay(j1Payload), nil).Once()
	audit := new(mocks.MockReviewAuditRepo)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.ReviewAuditEntry) bool {
		return e.Action == domain.AuditActionExtractDone
	})).Return(nil)
	m := newManager(backend, nil, audit)

	closing, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	stale, err := m.Session(closing.ID)
	require.NoError(t, err)
	// A second session joins the same flight and lets us observe when it resolves.
	witness, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)

	require.NoError(t, m.Close(context.Background(), closing.ID))
	close(release)
	waitSettled(t, m, witness.ID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stale.Wait(ctx))

	assert.True(t, stale.Closed())
	assert.Equal(t, domain.JobStateRunning, stale.State())
	assert.Nil(t, stale.Snapshot().Document)
	_, err = m.Get(context.Background(), closing.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	audit.AssertNumberOfCalls(t, "Create", 1)
	audit.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(e *domain.ReviewAuditEntry) bool {
		return e.SessionID == witness.ID
	}))
}

func TestSessionManager_BackendErrorThenRetry(t *testing.T) {
	failure := "red TITLE_RAW box doesn't cover only the title text"
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").
		Return(&port.Relay{Status: http.StatusInternalServerError, Body: []byte(failure)}, nil).Once()
	backend.On("Extract", mock.Anything, "J1").Return(okRelay(j1Payload), nil).Once()
	m := newManager(backend, nil, nil)

	snap, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	waitSettled(t, m, snap.ID)

	got, err := m.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateError, got.State)
	require.NotNil(t, got.Error)
	assert.Equal(t, service.ErrorKindBackend, got.Error.Kind)
	assert.Equal(t, http.StatusInternalServerError, got.Error.Status)
	assert.Equal(t, failure, got.Error.Body)
	assert.Equal(t, failure, got.Error.Message)
	assert.Nil(t, got.Document)

	retried, err := m.Retry(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateRunning, retried.State)
	assert.Nil(t, retried.Error)

	waitSettled(t, m, snap.ID)
	got, err = m.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateDone, got.State)
	backend.AssertNumberOfCalls(t, "Extract", 2)
}

func TestSessionManager_RetryRejectedUnlessIdleOrError(t *testing.T) {
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").Return(okRelay(j1Payload), nil).Once()
	m := newManager(backend, nil, nil)

	snap, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	waitSettled(t, m, snap.ID)

	_, err = m.Retry(context.Background(), snap.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	backend.AssertNumberOfCalls(t, "Extract", 1)
}

func TestSessionManager_TransportAndMalformedErrors(t *testing.T) {
	tests := []struct {
		name       string
		relay      *port.Relay
		err        error
		wantKind   string
		wantStatus int
		wantBody   string
	}{
		{
			name:     "transport",
			err:      &domain.TransportError{Op: "extract", Err: errors.New("dial tcp: connection refused")},
			wantKind: service.ErrorKindTransport,
		},
		{
			name:       "malformed",
			relay:      okRelay(`{"rows": []}`),
			wantKind:   service.ErrorKindMalformed,
			wantStatus: http.StatusOK,
			wantBody:   `{"rows": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(mocks.MockOCRBackend)
			if tt.err != nil {
				backend.On("Extract", mock.Anything, "J1").Return(nil, tt.err)
			} else {
				backend.On("Extract", mock.Anything, "J1").Return(tt.relay, nil)
			}
			m := newManager(backend, nil, nil)

			snap, err := m.Open(context.Background(), "J1", "")
			require.NoError(t, err)
			waitSettled(t, m, snap.ID)

			got, err := m.Get(context.Background(), snap.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.JobStateError, got.State)
			require.NotNil(t, got.Error)
			assert.Equal(t, tt.wantKind, got.Error.Kind)
			assert.Equal(t, tt.wantStatus, got.Error.Status)
			assert.Equal(t, tt.wantBody, got.Error.Body)
			assert.NotEmpty(t, got.Error.Message)
		})
	}
}

func TestSessionManager_TitleEmptyAdvisoryEndToEnd(t *testing.T) {
	backend := new(mocks.MockOCRBackend)
	backend.On("CreateJob", mock.Anything, mock.Anything).
		Return(&port.Relay{Status: http.StatusCreated, Body: []byte(`{"jobId":"J1"}`)}, nil)
	backend.On("Extract", mock.Anything, "J1").Return(okRelay(j1Payload), nil)
	m := newManager(backend, nil, nil)

	created, err := backend.CreateJob(context.Background(), port.UploadFile{Filename: "scan.pdf"})
	require.NoError(t, err)
	var job struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(created.Body, &job))
	assert.Equal(t, http.StatusCreated, created.Status)

	snap, err := m.Open(context.Background(), job.JobID, "")
	require.NoError(t, err)
	waitSettled(t, m, snap.ID)

	got, err := m.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobStateDone, got.State)
	assert.Len(t, got.Document.Table.Rows, 3)
	assert.True(t, hasAdvisory(got.Advisories, document.AdvisoryTitleEmpty))

	result, err := m.EditCell(context.Background(), snap.ID, "table.title_raw", document.Text("曲率R 3000"))
	require.NoError(t, err)
	assert.False(t, hasAdvisory(result.Advisories, document.AdvisoryTitleEmpty))
	assert.Equal(t, "曲率R 3000", result.Cell.Value.String())

	result, err = m.EditCell(context.Background(), snap.ID, "table.title_raw", document.Text(""))
	require.NoError(t, err)
	assert.True(t, hasAdvisory(result.Advisories, document.AdvisoryTitleEmpty))
}

func TestSessionManager_EditCell(t *testing.T) {
	release := make(chan struct{})
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").
		Run(func(mock.Arguments) { <-release }).
		Return(okRelay(j1Payload), nil)
	audit := new(mocks.MockReviewAuditRepo)
	audit.On("Create", mock.Anything, mock.Anything).Return(nil)
	m := newManager(backend, nil, audit)

	snap, err := m.Open(context.Background(), "J1", "sato")
	require.NoError(t, err)

	_, err = m.EditCell(context.Background(), snap.ID, "table.rows.0.lu.0", document.Text("+3"))
	assert.ErrorIs(t, err, domain.ErrNoDocument)

	close(release)
	waitSettled(t, m, snap.ID)

	result, err := m.EditCell(context.Background(), snap.ID, "table.rows.0.lu.0", document.Text("+3"))
	require.NoError(t, err)
	assert.Equal(t, "+1", result.Edit.Old.String())
	assert.Equal(t, "+3", result.Edit.New.String())

	_, err = m.EditCell(context.Background(), snap.ID, "table.rows.9.lu.0", document.Text("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidCellPath)

	_, err = m.EditCell(context.Background(), uuid.New(), "table.title_raw", document.Text("x"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	audit.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(e *domain.ReviewAuditEntry) bool {
		return e.Action == domain.AuditActionCellEdit && e.Path == "table.rows.0.lu.0" &&
			e.OldValue == "+1" && e.NewValue == "+3" && e.Operator == "sato"
	}))
}

func TestSessionManager_AuditFailureIsNotFatal(t *testing.T) {
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").Return(okRelay(j1Payload), nil)
	audit := new(mocks.MockReviewAuditRepo)
	audit.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	m := newManager(backend, nil, audit)

	snap, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	s := waitSettled(t, m, snap.ID)

	assert.Equal(t, domain.JobStateDone, s.State())
	_, err = m.EditCell(context.Background(), snap.ID, "header.orderer", document.Text("West Rail"))
	assert.NoError(t, err)
}

func TestSessionManager_ExportWithoutEditsSendsExtractedValues(t *testing.T) {
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").Return(okRelay(j1Payload), nil)
	exports := new(mocks.MockExportService)
	workbook := &port.Relay{Status: http.StatusOK, Body: []byte("PK"), ContentType: domain.SpreadsheetContentType}
	exports.On("Export", mock.Anything, "J1", mock.Anything).Return(workbook, nil)
	m := newManager(backend, exports, nil)

	snap, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	waitSettled(t, m, snap.ID)
	got, err := m.Get(context.Background(), snap.ID)
	require.NoError(t, err)

	relay, err := m.Export(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, workbook, relay)

	received, err := json.Marshal(got.Document)
	require.NoError(t, err)
	sent := exports.Calls[0].Arguments.Get(2).(json.RawMessage)
	assert.JSONEq(t, string(received), string(sent))
}

func TestSessionManager_ExportRequiresDocument(t *testing.T) {
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").
		Return(&port.Relay{Status: http.StatusBadGateway, Body: []byte("upstream")}, nil)
	exports := new(mocks.MockExportService)
	m := newManager(backend, exports, nil)

	snap, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	waitSettled(t, m, snap.ID)

	_, err = m.Export(context.Background(), snap.ID)
	assert.ErrorIs(t, err, domain.ErrNoDocument)
	exports.AssertNotCalled(t, "Export", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionManager_ReapIdleAndCloseAll(t *testing.T) {
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, mock.Anything).Return(okRelay(j1Payload), nil)
	m := newManager(backend, nil, nil)

	a, err := m.Open(context.Background(), "J1", "")
	require.NoError(t, err)
	waitSettled(t, m, a.ID)
	time.Sleep(150 * time.Millisecond)

	b, err := m.Open(context.Background(), "J2", "")
	require.NoError(t, err)
	waitSettled(t, m, b.ID)

	assert.Equal(t, 1, m.ReapIdle(100*time.Millisecond))
	_, err = m.Get(context.Background(), a.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 1, m.Len())

	m.CloseAll()
	assert.Zero(t, m.Len())
}

func TestSessionManager_ListAudit(t *testing.T) {
	audit := new(mocks.MockReviewAuditRepo)
	m := newManager(new(mocks.MockOCRBackend), nil, audit)
	id := uuid.New()
	entries := []domain.ReviewAuditEntry{
		{ID: uuid.New(), SessionID: id, JobID: "J1", Action: domain.AuditActionCellEdit, Path: "header.orderer"},
	}
	audit.On("ListBySession", mock.Anything, id, 0, 20).Return(entries, 1, nil)

	got, total, err := m.ListAudit(context.Background(), id, 0, 20)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, entries, got)
	audit.AssertExpectations(t)
}

func TestSessionManager_ListAudit_RepoError(t *testing.T) {
	audit := new(mocks.MockReviewAuditRepo)
	m := newManager(new(mocks.MockOCRBackend), nil, audit)
	audit.On("ListBySession", mock.Anything, mock.Anything, 0, 20).Return(nil, 0, errors.New("db down"))

	_, _, err := m.ListAudit(context.Background(), uuid.New(), 0, 20)

	assert.Error(t, err)
}

func TestSessionManager_ListAudit_WithoutRepository(t *testing.T) {
	m := newManager(new(mocks.MockOCRBackend), nil, nil)

	got, total, err := m.ListAudit(context.Background(), uuid.New(), 0, 20)

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
