// Package asset turns the asset references found in extraction payloads into
// fetchable URLs.
package asset

import "strings"

// Ref is one of Absolute, RootRelative or BareFilename.
type Ref interface {
	isRef()
	String() string
}

// Absolute is a fully qualified URL.
type Absolute struct{ URL string }

// RootRelative is a path relative to the backend's root, starting with "/".
type RootRelative struct{ Path string }

// BareFilename names a file in the job's asset directory.
type BareFilename struct{ Name string }

func (Absolute) isRef()     {}
func (RootRelative) isRef() {}
func (BareFilename) isRef() {}

func (r Absolute) String() string     { return r.URL }
func (r RootRelative) String() string { return r.Path }
func (r BareFilename) String() string { return r.Name }

// Parse classifies a reference. It returns false for an empty reference.
func Parse(s string) (Ref, bool) {
	switch {
	case s == "":
		return nil, false
	case hasScheme(s):
		return Absolute{URL: s}, true
	case strings.HasPrefix(s, "/"):
		return RootRelative{Path: s}, true
	default:
		return BareFilename{Name: s}, true
	}
}

func hasScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
