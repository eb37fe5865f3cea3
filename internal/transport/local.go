package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adbsink/adbsink/internal/utils"
)

// LocalFS serves a directory on the local machine. Symlinks are followed;
// a dangling link or a non-regular node (socket, device) makes the entry
// unreadable rather than being skipped, so a listing is always complete.
type LocalFS struct {
	root string
}

func NewLocalFS(root string) *LocalFS {
	return &LocalFS{root: filepath.Clean(root)}
}

func (l *LocalFS) Root() string { return l.root }

func (l *LocalFS) abs(rel string) string {
	if rel == "" {
		return l.root
	}
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

func (l *LocalFS) List(ctx context.Context, rel string) ([]Info, error) {
	dirents, err := os.ReadDir(l.abs(rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("list %q: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("list %q: %w: %v", rel, ErrUnreadable, err)
	}

	infos := make([]Info, 0, len(dirents))
	for _, d := range dirents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := l.statEntry(rel, d)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

func (l *LocalFS) statEntry(dir string, d fs.DirEntry) (*Info, error) {
	name := d.Name()
	// os.Stat resolves symlinks so linked trees sync as what they point at.
	fi, err := os.Stat(filepath.Join(l.abs(dir), name))
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w: %v", name, ErrUnreadable, err)
	}
	return fileInfoToInfo(name, fi)
}

func fileInfoToInfo(name string, fi fs.FileInfo) (*Info, error) {
	switch {
	case fi.IsDir():
		return &Info{Name: name, Kind: KindDir, MTime: fi.ModTime()}, nil
	case fi.Mode().IsRegular():
		return &Info{Name: name, Kind: KindFile, Size: fi.Size(), MTime: fi.ModTime()}, nil
	default:
		return nil, fmt.Errorf("%q: %w: unsupported node type %s", name, ErrUnreadable, fi.Mode().Type())
	}
}

func (l *LocalFS) Stat(ctx context.Context, rel string) (*Info, error) {
	fi, err := os.Stat(l.abs(rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %q: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %q: %w: %v", rel, ErrUnreadable, err)
	}
	return fileInfoToInfo(filepath.Base(l.abs(rel)), fi)
}

func (l *LocalFS) Mkdir(ctx context.Context, rel string) error {
	return os.MkdirAll(l.abs(rel), 0o755)
}

func (l *LocalFS) Delete(ctx context.Context, rel string, kind Kind) error {
	if kind == KindDir {
		return os.RemoveAll(l.abs(rel))
	}
	if err := os.Remove(l.abs(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *LocalFS) SetMtime(ctx context.Context, rel string, mtime time.Time) error {
	return os.Chtimes(l.abs(rel), mtime, mtime)
}

// LocalPair syncs two local directories. It exists for tooling and tests;
// the adb transports are the ones users reach through the CLI.
type LocalPair struct {
	src *LocalFS
	dst *LocalFS
}

func NewLocalPair(srcRoot, dstRoot string) *LocalPair {
	return &LocalPair{src: NewLocalFS(srcRoot), dst: NewLocalFS(dstRoot)}
}

func (p *LocalPair) Source() FileSystem { return p.src }
func (p *LocalPair) Dest() FileSystem   { return p.dst }
func (p *LocalPair) Direction() string  { return "local" }

func (p *LocalPair) CopyFile(ctx context.Context, rel string) error {
	srcPath := p.src.abs(rel)
	dstPath := p.dst.abs(rel)

	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open %q: %w", rel, err)
	}
	defer in.Close()

	if err := utils.EnsureParent(dstPath); err != nil {
		return err
	}
	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create %q: %w", rel, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %q: %w", rel, err)
	}
	return out.Close()
}
