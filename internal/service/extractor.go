package service

import (
	"context"
	"errors"

	"formscan/internal/asset"
	"formscan/internal/document"
	"formscan/internal/domain"
	"formscan/internal/port"
)

// Extractor runs one extraction against the backend and turns the reply into
// a document with resolved asset URLs. Every failure comes back as one of
// *domain.TransportError, *domain.BackendError or *domain.MalformedResponseError.
type Extractor struct {
	backend  port.OCRBackend
	resolver *asset.Resolver
	opts     document.DecodeOptions
}

// NewExtractor creates a new Extractor.
func NewExtractor(backend port.OCRBackend, resolver *asset.Resolver, reviewThreshold float64) *Extractor {
	return &Extractor{
		backend:  backend,
		resolver: resolver,
		opts:     document.DecodeOptions{ReviewThreshold: reviewThreshold},
	}
}

func (e *Extractor) Extract(ctx context.Context, jobID string) (*document.CurvatureDoc, error) {
	relay, err := e.backend.Extract(ctx, jobID)
	if err != nil {
		var te *domain.TransportError
		if errors.As(err, &te) {
			return nil, te
		}
		return nil, &domain.TransportError{Op: "extract", Err: err}
	}
	if !relay.OK() {
		return nil, &domain.BackendError{Op: "extract", Status: relay.Status, Body: string(relay.Body)}
	}

	doc, err := document.Decode(jobID, relay.Body, e.opts)
	if err != nil {
		return nil, domain.NewMalformedResponseError("extract", relay.Status, relay.Body, err)
	}

	doc.Assets.Rewrite(func(ref string) string {
		resolved, _ := e.resolver.ResolveString(jobID, ref)
		return resolved
	})
	return doc, nil
}
