package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adbsink/adbsink/internal/transport"
)

// RootNotFoundError means the sync root itself is absent, so there is no
// tree to reconcile against.
type RootNotFoundError struct {
	Root string
	Err  error
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("sync root %q does not exist", e.Root)
}

func (e *RootNotFoundError) Unwrap() error { return e.Err }

// EntryUnreadableError means an entry under the root could not be listed
// or described.
type EntryUnreadableError struct {
	Path RelPath
	Err  error
}

func (e *EntryUnreadableError) Error() string {
	return fmt.Sprintf("unreadable entry %q: %v", e.Path, e.Err)
}

func (e *EntryUnreadableError) Unwrap() error { return e.Err }

// BuildListing walks fs from its root and returns every kept entry,
// sorted so parents precede children. Any unreadable entry aborts the
// walk: a partial view must never feed the diff, or orphan deletion
// could remove files that still exist on the other side.
func BuildListing(ctx context.Context, fs transport.FileSystem, rules *IgnoreRules) (Listing, error) {
	infos, err := fs.List(ctx, "")
	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return nil, &RootNotFoundError{Root: fs.Root(), Err: err}
		}
		return nil, &EntryUnreadableError{Path: "", Err: err}
	}

	entries := make(Listing, 0, len(infos))
	var pending []RelPath

	ingest := func(dir RelPath, infos []transport.Info) {
		for _, info := range infos {
			rel := dir.Join(info.Name)
			if info.Kind == transport.KindDir {
				if rules.MatchDir(rel) {
					slog.Debug("ignored", "dir", rel)
					continue
				}
				entries = append(entries, Entry{Path: rel, Kind: info.Kind, MTime: info.MTime})
				pending = append(pending, rel)
				continue
			}
			if rules.MatchFile(rel) {
				slog.Debug("ignored", "file", rel)
				continue
			}
			entries = append(entries, Entry{Path: rel, Kind: info.Kind, Size: info.Size, MTime: info.MTime})
		}
	}

	ingest("", infos)
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		infos, err := fs.List(ctx, string(dir))
		if err != nil {
			return nil, &EntryUnreadableError{Path: dir, Err: err}
		}
		ingest(dir, infos)
	}

	entries.Sort()
	return entries, nil
}
