// Package httpbackend implements port.OCRBackend over the backend's HTTP API.
package httpbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"formscan/internal/config"
	"formscan/internal/document"
	"formscan/internal/domain"
	"formscan/internal/port"
)

// Client relays calls to the OCR backend. It keeps no state between calls.
type Client struct {
	baseURL  string
	template string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a backend client from config.
func NewClient(cfg *config.BackendConfig) *Client {
	c := NewClientWithHTTP(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})
	if cfg.RatePerSec > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return c
}

// NewClientWithHTTP creates a client with a caller-supplied http.Client (for testing).
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		template: document.InnerCurvatureV1,
		client:   hc,
	}
}

func (c *Client) CreateJob(ctx context.Context, file port.UploadFile) (*port.Relay, error) {
	body, contentType, err := multipartBody(file)
	if err != nil {
		return nil, &domain.TransportError{Op: "createJob", Err: err}
	}
	return c.do(ctx, "createJob", http.MethodPost, "/v1/jobs", body, contentType)
}

func (c *Client) Extract(ctx context.Context, jobID string) (*port.Relay, error) {
	path := "/v1/jobs/" + url.PathEscape(jobID) + "/extract?template=" + url.QueryEscape(c.template)
	return c.do(ctx, "extract", http.MethodPost, path, nil, "")
}

func (c *Client) FetchAsset(ctx context.Context, jobID, filename string) (*port.Relay, error) {
	path := "/assets/" + url.PathEscape(filename)
	if jobID != "" {
		path = "/v1/jobs/" + url.PathEscape(jobID) + "/asset/" + url.PathEscape(filename)
	}
	relay, err := c.do(ctx, "fetchAsset", http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if relay.ContentType == "" {
		relay.ContentType = domain.DefaultAssetContentType
	}
	return relay, nil
}

func (c *Client) ExportDoc(ctx context.Context, jobID string, reviewed json.RawMessage) (*port.Relay, error) {
	payload, err := json.Marshal(struct {
		JobID    string          `json:"jobId"`
		Reviewed json.RawMessage `json:"reviewed"`
	}{JobID: jobID, Reviewed: reviewed})
	if err != nil {
		return nil, &domain.TransportError{Op: "exportDoc", Err: fmt.Errorf("marshaling request: %w", err)}
	}

	relay, err := c.do(ctx, "exportDoc", http.MethodPost, "/v1/export_excel", bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}
	if !relay.OK() {
		return relay, nil
	}
	if relay.ContentType == "" {
		relay.ContentType = domain.SpreadsheetContentType
	}
	if relay.ContentDisposition == "" {
		tmpl, _ := document.LookupTemplate(c.template)
		relay.ContentDisposition = fmt.Sprintf("attachment; filename=%q", tmpl.ExportFilename(jobID))
	}
	return relay, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*port.Relay, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &domain.TransportError{Op: op, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	return &port.Relay{
		Status:             resp.StatusCode,
		Body:               respBody,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(file port.UploadFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Filename)))
	ct := file.ContentType
	if ct == "" {
		ct = domain.DefaultAssetContentType
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating form part: %w", err)
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return nil, "", fmt.Errorf("copying upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
