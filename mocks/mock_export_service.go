package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"formscan/internal/port"
)

// MockExportService is a mock implementation of service.ExportService.
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, jobID string, reviewed json.RawMessage) (*port.Relay, error) {
	args := m.Called(ctx, jobID, reviewed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Relay), args.Error(1)
}
