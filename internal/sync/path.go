// Package sync mirrors a source directory tree onto a destination tree
// over a transport: list both sides, diff them into an ordered action
// plan, then apply the plan one action at a time.
package sync

import (
	"path"
	"path/filepath"
	"strings"
)

// RelPath is a slash-separated path relative to a sync root. The empty
// RelPath is the root itself; a RelPath never starts or ends with "/".
type RelPath string

func (p RelPath) String() string { return string(p) }

// Base returns the last path segment.
func (p RelPath) Base() string {
	if i := strings.LastIndexByte(string(p), '/'); i >= 0 {
		return string(p[i+1:])
	}
	return string(p)
}

// Parent returns the containing directory, "" for top-level entries.
func (p RelPath) Parent() RelPath {
	if i := strings.LastIndexByte(string(p), '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// Join appends one child segment.
func (p RelPath) Join(name string) RelPath {
	if p == "" {
		return RelPath(name)
	}
	return p + "/" + RelPath(name)
}

// IsDescendantOf reports whether p lies strictly below dir.
func (p RelPath) IsDescendantOf(dir RelPath) bool {
	if dir == "" {
		return p != ""
	}
	return strings.HasPrefix(string(p), string(dir)+"/")
}

// NormPath converts a possibly OS-native, possibly messy path into a
// RelPath.
func NormPath(s string) RelPath {
	s = strings.Trim(filepath.ToSlash(s), "/")
	if s == "" {
		return ""
	}
	if s = path.Clean(s); s == "." {
		return ""
	}
	return RelPath(s)
}

// Compare orders paths depth-first: a directory sorts before everything
// inside it and before any sibling whose name extends past the boundary.
// Plain string order gets this wrong ("a." < "a/x" bytewise, yet "a/x"
// belongs first), so the separator compares lower than every other byte.
func Compare(a, b RelPath) int {
	i := 0
	for i < len(a) && i < len(b) {
		ca, cb := a[i], b[i]
		if ca == cb {
			i++
			continue
		}
		switch {
		case ca == '/':
			return -1
		case cb == '/':
			return 1
		case ca < cb:
			return -1
		default:
			return 1
		}
	}
	switch {
	case len(a) == len(b):
		return 0
	case len(a) < len(b):
		return -1
	default:
		return 1
	}
}
