package port

import (
	"context"
	"encoding/json"
	"io"
)

// Relay is a backend response carried through the gateway unmodified.
type Relay struct {
	Status             int
	Body               []byte
	ContentType        string
	ContentDisposition string
}

// OK reports a 2xx status.
func (r *Relay) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// UploadFile is a file received from the browser.
type UploadFile struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// OCRBackend is the remote extraction service. Every method returns the
// backend's answer whatever its status; an error means the backend could not
// be reached (*domain.TransportError).
type OCRBackend interface {
	CreateJob(ctx context.Context, file UploadFile) (*Relay, error)
	Extract(ctx context.Context, jobID string) (*Relay, error)
	// FetchAsset reads a job asset. An empty jobID addresses the backend's
	// shared /assets directory.
	FetchAsset(ctx context.Context, jobID, filename string) (*Relay, error)
	ExportDoc(ctx context.Context, jobID string, reviewed json.RawMessage) (*Relay, error)
}
