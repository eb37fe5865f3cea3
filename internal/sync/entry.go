package sync

import (
	"slices"
	"time"

	"github.com/adbsink/adbsink/internal/transport"
)

// Entry is one node of a tree listing. Size is zero for directories.
type Entry struct {
	Path  RelPath
	Kind  transport.Kind
	Size  int64
	MTime time.Time
}

// Listing is every entry under one root. A listing fit for diffing is
// sorted with Compare, so parents always precede their contents.
type Listing []Entry

func (l Listing) Sort() {
	slices.SortFunc(l, func(a, b Entry) int { return Compare(a.Path, b.Path) })
}

// Paths projects the listing onto its paths, mostly for assertions.
func (l Listing) Paths() []RelPath {
	out := make([]RelPath, len(l))
	for i, e := range l {
		out[i] = e.Path
	}
	return out
}
