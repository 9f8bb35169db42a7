package domain

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSessionNotFound   = errors.New("review session not found")
	ErrSessionClosed     = errors.New("review session closed")
	ErrInvalidTransition = errors.New("invalid job state transition")
	ErrNoDocument        = errors.New("no extracted document available")
	ErrInvalidCellPath   = errors.New("invalid cell path")
	ErrUnknownTemplate   = errors.New("unknown template")
	ErrMissingFile       = errors.New("file field is required")
	ErrMissingJobID      = errors.New("jobId is required")
)

// PreviewLimit bounds the raw text carried by a MalformedResponseError.
const PreviewLimit = 500

// TransportError reports that the backend could not be reached at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError reports a non-success status. Body is the backend's response
// text, unmodified.
type BackendError struct {
	Op     string
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.Status, e.Body)
}

// MalformedResponseError reports a success status with a body that could not
// be interpreted as a document.
type MalformedResponseError struct {
	Op      string
	Status  int
	Preview string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed backend response (status %d): %v (raw: %s)", e.Op, e.Status, e.Err, e.Preview)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// NewMalformedResponseError truncates raw to at most PreviewLimit bytes.
func NewMalformedResponseError(op string, status int, raw []byte, err error) *MalformedResponseError {
	return &MalformedResponseError{Op: op, Status: status, Preview: Truncate(string(raw), PreviewLimit), Err: err}
}

// Truncate cuts s to at most n bytes and marks the cut with "...". The cut
// never splits a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
