// Package transport provides the file operations the sync engine runs
// against: list, stat, mkdir, delete, set-mtime on either side, plus a
// single-file copy between the two sides. Implementations exist for the
// local filesystem and for an Android device reached over adb.
package transport

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the path does not exist on that side.
	ErrNotFound = errors.New("path not found")

	// ErrUnreadable means the path exists but its entries or metadata could
	// not be read (permissions, unsupported node type, transient I/O).
	ErrUnreadable = errors.New("path unreadable")
)

// Kind is the node type of one entry. Symlinks are resolved or rejected by
// the transport; the engine only ever sees files and directories.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// MarshalText implements encoding.TextMarshaler for JSON reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Info describes one directory entry. Size and MTime are meaningful for
// files only; directory timestamps are not synced.
type Info struct {
	Name  string
	Kind  Kind
	Size  int64
	MTime time.Time
}

// FileSystem is one side of a sync: a root directory plus the operations
// the engine needs under it. All paths are slash-separated and relative to
// the root; "" addresses the root itself.
type FileSystem interface {
	// Root returns the configured root in the side's native notation.
	Root() string

	// List returns the direct children of the directory at rel.
	List(ctx context.Context, rel string) ([]Info, error)

	// Stat describes the node at rel.
	Stat(ctx context.Context, rel string) (*Info, error)

	// Mkdir creates the directory at rel, succeeding if it already exists.
	Mkdir(ctx context.Context, rel string) error

	// Delete removes the node at rel; directories are removed recursively.
	Delete(ctx context.Context, rel string, kind Kind) error

	// SetMtime sets the modification time of the file at rel.
	SetMtime(ctx context.Context, rel string, mtime time.Time) error
}

// Transport is a source/destination pair plus the copy primitive between
// them. Direction (pull vs push) is purely which concrete FileSystem sits
// on which end.
type Transport interface {
	Source() FileSystem
	Dest() FileSystem

	// CopyFile transfers the file at rel from the source root to the same
	// rel under the destination root. Parent directories are expected to
	// exist; the engine orders directory copies first.
	CopyFile(ctx context.Context, rel string) error

	// Direction names the pair for logs and reports ("pull", "push", "local").
	Direction() string
}
