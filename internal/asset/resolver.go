package asset

import (
	"net/url"
	"strings"
)

// Resolver builds canonical asset URLs against a backend base address.
type Resolver struct {
	base string
}

// NewResolver trims any trailing slash from base.
func NewResolver(base string) *Resolver {
	return &Resolver{base: strings.TrimRight(base, "/")}
}

// Base returns the normalized base address.
func (r *Resolver) Base() string { return r.base }

// Resolve returns the URL for ref within the given job.
func (r *Resolver) Resolve(jobID string, ref Ref) string {
	switch v := ref.(type) {
	case Absolute:
		return v.URL
	case RootRelative:
		return r.base + v.Path
	case BareFilename:
		return r.JobAssetURL(jobID, v.Name)
	default:
		return ""
	}
}

// ResolveString parses and resolves s. It returns false when s is empty.
func (r *Resolver) ResolveString(jobID, s string) (string, bool) {
	ref, ok := Parse(s)
	if !ok {
		return "", false
	}
	return r.Resolve(jobID, ref), true
}

// JobAssetURL is <base>/v1/jobs/<jobID>/asset/<filename>.
func (r *Resolver) JobAssetURL(jobID, filename string) string {
	return r.base + "/v1/jobs/" + url.PathEscape(jobID) + "/asset/" + url.PathEscape(filename)
}
