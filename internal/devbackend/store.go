package devbackend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ExtractionFile is the prepared extraction payload a job directory may carry.
// When present it is returned by extract unchanged.
const ExtractionFile = "extraction.json"

const metaFile = "meta.txt"

var errNoInput = errors.New("no input file found")

// JobStore keeps uploaded jobs on disk, one directory per job id.
type JobStore struct {
	root string
}

// NewJobStore creates a JobStore rooted at dir.
func NewJobStore(dir string) *JobStore {
	return &JobStore{root: dir}
}

// SharedDir holds assets served from /assets.
func (s *JobStore) SharedDir() string {
	return filepath.Join(filepath.Dir(filepath.Clean(s.root)), "assets")
}

// Create stores an upload under a fresh job id.
func (s *JobStore) Create(filename string, data []byte) (string, error) {
	jobID := uuid.New().String()
	dir := filepath.Join(s.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating job dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	if err := os.WriteFile(filepath.Join(dir, "input"+ext), data, 0o644); err != nil {
		return "", fmt.Errorf("writing input: %w", err)
	}
	meta := fmt.Sprintf("filename=%s\n", filename)
	if err := os.WriteFile(filepath.Join(dir, metaFile), []byte(meta), 0o644); err != nil {
		return "", fmt.Errorf("writing meta: %w", err)
	}
	return jobID, nil
}

// JobDir returns the directory of an existing job.
func (s *JobStore) JobDir(jobID string) (string, bool) {
	if _, err := uuid.Parse(jobID); err != nil {
		return "", false
	}
	dir := filepath.Join(s.root, jobID)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

// AssetPath returns the path of a file inside dir, refusing anything that
// would leave it.
func AssetPath(dir, filename string) (string, bool) {
	if filename == "" || filename != filepath.Base(filename) || filename == ".." || filename == "." {
		return "", false
	}
	p := filepath.Join(dir, filename)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", false
	}
	return p, true
}

// InputFile returns the name of the job's uploaded file.
func InputFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "input") {
			return e.Name(), nil
		}
	}
	return "", errNoInput
}
