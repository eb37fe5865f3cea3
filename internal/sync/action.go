package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/adbsink/adbsink/internal/transport"
)

// Op is what the reconciler must do for one path.
type Op string

const (
	OpCopy    Op = "Copy"
	OpDelete  Op = "Delete"
	OpRecurse Op = "Recurse"
	OpSkip    Op = "Skip"
)

// Reason records why the diff chose an op.
type Reason string

const (
	// ReasonMissing: the destination has no entry at this path.
	ReasonMissing Reason = "dne"
	// ReasonSize: both sides have the file but the sizes differ.
	ReasonSize Reason = "size"
	// ReasonNewer: same size, but the source copy is strictly newer.
	ReasonNewer Reason = "newer"
	// ReasonKind: file on one side, directory on the other.
	ReasonKind Reason = "kind"
	// ReasonOrphan: the source has no entry at this path.
	ReasonOrphan Reason = "orphan"
	// ReasonUpToDate: nothing to do.
	ReasonUpToDate Reason = "uptodate"
)

// Action is one step of a plan. MTime carries the source file's mtime so
// a copy can restore it afterwards.
type Action struct {
	Op     Op             `json:"op"`
	Path   RelPath        `json:"path"`
	Kind   transport.Kind `json:"kind"`
	Size   int64          `json:"size,omitempty"`
	MTime  time.Time      `json:"-"`
	Reason Reason         `json:"reason,omitempty"`
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s %q (%s)", strings.ToLower(string(a.Op)), a.Kind, a.Path, a.Reason)
}
