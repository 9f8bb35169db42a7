package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"formscan/internal/port"
)

// MockOCRBackend is a mock implementation of port.OCRBackend.
type MockOCRBackend struct {
	mock.Mock
}

func (m *MockOCRBackend) CreateJob(ctx context.Context, file port.UploadFile) (*port.Relay, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Relay), args.Error(1)
}

func (m *MockOCRBackend) Extract(ctx context.Context, jobID string) (*port.Relay, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Relay), args.Error(1)
}

func (m *MockOCRBackend) FetchAsset(ctx context.Context, jobID, filename string) (*port.Relay, error) {
	args := m.Called(ctx, jobID, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Relay), args.Error(1)
}

func (m *MockOCRBackend) ExportDoc(ctx context.Context, jobID string, reviewed json.RawMessage) (*port.Relay, error) {
	args := m.Called(ctx, jobID, reviewed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Relay), args.Error(1)
}
