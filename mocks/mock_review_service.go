package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"formscan/internal/document"
	"formscan/internal/domain"
	"formscan/internal/port"
	"formscan/internal/service"
)

// MockReviewService is a mock implementation of service.ReviewService.
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Open(ctx context.Context, jobID, operator string) (*service.SessionSnapshot, error) {
	args := m.Called(ctx, jobID, operator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionSnapshot), args.Error(1)
}

func (m *MockReviewService) Get(ctx context.Context, id uuid.UUID) (*service.SessionSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionSnapshot), args.Error(1)
}

func (m *MockReviewService) Retry(ctx context.Context, id uuid.UUID) (*service.SessionSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionSnapshot), args.Error(1)
}

func (m *MockReviewService) EditCell(ctx context.Context, id uuid.UUID, path string, value document.Value) (*service.CellEditResult, error) {
	args := m.Called(ctx, id, path, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CellEditResult), args.Error(1)
}

func (m *MockReviewService) Export(ctx context.Context, id uuid.UUID) (*port.Relay, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Relay), args.Error(1)
}

func (m *MockReviewService) Close(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewService) ListAudit(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.ReviewAuditEntry, int, error) {
	args := m.Called(ctx, id, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ReviewAuditEntry), args.Int(1), args.Error(2)
}
