package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"formscan/internal/domain"
	"formscan/internal/port"
)

// ExportService relays reviewed documents to the backend's workbook export
// and archives successful results.
type ExportService interface {
	Export(ctx context.Context, jobID string, reviewed json.RawMessage) (*port.Relay, error)
}

// ExportArchiveConfig addresses the export archive.
type ExportArchiveConfig struct {
	Bucket string
	Prefix string
}

type exportService struct {
	backend port.OCRBackend
	storage port.ObjectStorage
	cfg     ExportArchiveConfig
	now     func() time.Time
}

// NewExportService creates a new ExportService implementation.
func NewExportService(backend port.OCRBackend, storage port.ObjectStorage, cfg ExportArchiveConfig) ExportService {
	return &exportService{
		backend: backend,
		storage: storage,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *exportService) Export(ctx context.Context, jobID string, reviewed json.RawMessage) (*port.Relay, error) {
	relay, err := s.backend.ExportDoc(ctx, jobID, reviewed)
	if err != nil {
		return nil, err
	}
	if relay.OK() {
		s.archive(ctx, jobID, relay)
	}
	return relay, nil
}

func (s *exportService) archive(ctx context.Context, jobID string, relay *port.Relay) {
	if s.storage == nil {
		return
	}
	key := ArchiveKey(s.cfg.Prefix, jobID, s.now())
	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(relay.Body),
		ContentType: domain.SpreadsheetContentType,
		Size:        int64(len(relay.Body)),
	})
	if err != nil {
		log.Printf("exportService.archive: job %s: %v", jobID, err)
		return
	}
	if out != nil && out.Location != "" {
		log.Printf("exportService.archive: job %s archived to %s", jobID, out.Location)
	}
}

// ArchiveKey is <prefix>/<jobID>/<unix seconds>.xlsx. The job id is escaped
// into a single segment so the key always stays under prefix.
func ArchiveKey(prefix, jobID string, at time.Time) string {
	return path.Join(prefix, keySegment(jobID), fmt.Sprintf("%d.xlsx", at.Unix()))
}

func keySegment(s string) string {
	switch s {
	case "":
		return "_"
	case ".", "..":
		return strings.ReplaceAll(s, ".", "%2E")
	}
	return url.PathEscape(s)
}
