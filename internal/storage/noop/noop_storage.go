package noop

import (
	"context"
	"fmt"
	"io"
	"log"

	"formscan/internal/port"
)

type noopStorage struct{}

// NewNoopStorage creates an ObjectStorage that discards uploads and logs
// where they would have gone. Used when the export archive is disabled.
func NewNoopStorage() port.ObjectStorage {
	return noopStorage{}
}

func (noopStorage) Upload(_ context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	n, err := io.Copy(io.Discard, input.Body)
	if err != nil {
		return nil, fmt.Errorf("noop upload: %w", err)
	}
	log.Printf("[NOOP STORAGE] %d bytes for %s/%s discarded", n, input.Bucket, input.Key)
	return &port.UploadOutput{}, nil
}
