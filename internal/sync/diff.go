package sync

import (
	"time"

	"github.com/adbsink/adbsink/internal/transport"
)

// Diff computes the plan that makes dst mirror src. Both listings must be
// sorted with Compare; the plan comes out in the same order, so an action
// on a directory always precedes actions on its contents.
func Diff(src, dst Listing, pol *Policy) []Action {
	actions := make([]Action, 0, len(src))

	var i, j int
	for i < len(src) || j < len(dst) {
		var cmp int
		switch {
		case i >= len(src):
			cmp = 1
		case j >= len(dst):
			cmp = -1
		default:
			cmp = Compare(src[i].Path, dst[j].Path)
		}

		switch {
		case cmp < 0: // source only
			actions = append(actions, copyAction(src[i], ReasonMissing))
			i++

		case cmp > 0: // destination only
			d := dst[j]
			j++
			if pol.DeleteOrphans {
				actions = append(actions, Action{Op: OpDelete, Path: d.Path, Kind: d.Kind, Reason: ReasonOrphan})
				if d.Kind == transport.KindDir {
					// the recursive delete takes the subtree with it
					j = skipDescendants(dst, j, d.Path)
				}
			}

		default: // present on both sides
			s, d := src[i], dst[j]
			i++
			j++
			switch {
			case s.Kind == transport.KindDir && d.Kind == transport.KindDir:
				actions = append(actions, Action{Op: OpRecurse, Path: s.Path, Kind: s.Kind})
			case s.Kind == transport.KindFile && d.Kind == transport.KindFile:
				actions = append(actions, fileAction(s, d))
			default:
				// kind flipped: the source shape wins, regardless of the
				// orphan-deletion setting
				actions = append(actions, Action{Op: OpDelete, Path: d.Path, Kind: d.Kind, Reason: ReasonKind})
				if d.Kind == transport.KindDir {
					j = skipDescendants(dst, j, d.Path)
				}
				actions = append(actions, copyAction(s, ReasonKind))
			}
		}
	}
	return actions
}

func copyAction(e Entry, why Reason) Action {
	return Action{Op: OpCopy, Path: e.Path, Kind: e.Kind, Size: e.Size, MTime: e.MTime, Reason: why}
}

// fileAction decides between copying and skipping a file present on both
// sides. Mtimes compare at second granularity, the coarsest a device
// reports; a destination at least as new as the source is left alone.
func fileAction(s, d Entry) Action {
	switch {
	case s.Size != d.Size:
		return copyAction(s, ReasonSize)
	case s.MTime.Truncate(time.Second).After(d.MTime.Truncate(time.Second)):
		return copyAction(s, ReasonNewer)
	default:
		return Action{Op: OpSkip, Path: s.Path, Kind: s.Kind, Reason: ReasonUpToDate}
	}
}

func skipDescendants(l Listing, j int, dir RelPath) int {
	for j < len(l) && l[j].Path.IsDescendantOf(dir) {
		j++
	}
	return j
}
