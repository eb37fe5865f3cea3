package transport

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adbsink/adbsink/internal/adb"
)

// adb ls prints one entry per line as four space-separated fields:
// hex mode, hex size, hex mtime (unix seconds), then the name. The kind
// lives in the top bits of the mode.
const (
	modeKindShift   = 13
	modeKindDir     = 0b010
	modeKindFile    = 0b100
	modeKindSymlink = 0b101
)

const listCacheSize = 512

// DeviceFS serves a directory on an Android device. Listings go through
// `adb ls`; mutations go through a persistent `adb shell`. Directory
// listings are cached for the lifetime of the DeviceFS, so one instance
// must not outlive a single sync run.
type DeviceFS struct {
	client *adb.Client
	shell  *adb.Shell
	root   string
	cache  *lru.Cache[string, []Info]
}

// NewDeviceFS opens a shell session on the device and returns a FileSystem
// rooted at the given absolute device path.
func NewDeviceFS(ctx context.Context, client *adb.Client, root string) (*DeviceFS, error) {
	shell, err := client.OpenShell(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, []Info](listCacheSize)
	if err != nil {
		shell.Close()
		return nil, err
	}
	return &DeviceFS{
		client: client,
		shell:  shell,
		root:   path.Clean(root),
		cache:  cache,
	}, nil
}

// Close shuts down the shell session.
func (d *DeviceFS) Close() error { return d.shell.Close() }

// ResetCache drops all cached listings. Call it between runs when the
// same DeviceFS backs repeated syncs, as in watch mode.
func (d *DeviceFS) ResetCache() { d.cache.Purge() }

func (d *DeviceFS) Root() string { return d.root }

func (d *DeviceFS) abs(rel string) string {
	if rel == "" {
		return d.root
	}
	return path.Join(d.root, rel)
}

func (d *DeviceFS) List(ctx context.Context, rel string) ([]Info, error) {
	if infos, ok := d.cache.Get(rel); ok {
		return infos, nil
	}
	infos, err := d.listAbs(ctx, d.abs(rel))
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", rel, err)
	}
	d.cache.Add(rel, infos)
	return infos, nil
}

func (d *DeviceFS) listAbs(ctx context.Context, abs string) ([]Info, error) {
	out, err := d.client.Run(ctx, "ls", abs)
	if err != nil {
		var cmdErr *adb.CmdError
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Output, "No such file") {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var (
		infos []Info
		lines int
	)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		info, err := parseLsLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		if info == nil {
			continue
		}
		infos = append(infos, *info)
	}
	// A real directory always reports at least its dot entries; fully
	// empty output means the path does not exist or is not a directory.
	if lines == 0 {
		return nil, ErrNotFound
	}
	return infos, nil
}

// parseLsLine decodes one non-blank `adb ls` output line. The "." and
// ".." entries decode to nil.
func parseLsLine(line string) (*Info, error) {
	fields := strings.SplitN(line, " ", 4)
	if len(fields) != 4 {
		return nil, fmt.Errorf("malformed ls line %q", line)
	}
	mode, err := strconv.ParseUint(fields[0], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("bad mode in ls line %q", line)
	}
	size, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("bad size in ls line %q", line)
	}
	mtime, err := strconv.ParseUint(fields[2], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("bad mtime in ls line %q", line)
	}
	name := fields[3]
	if name == "." || name == ".." {
		return nil, nil
	}

	switch mode >> modeKindShift {
	case modeKindDir:
		return &Info{Name: name, Kind: KindDir, MTime: time.Unix(int64(mtime), 0)}, nil
	case modeKindFile:
		return &Info{Name: name, Kind: KindFile, Size: int64(size), MTime: time.Unix(int64(mtime), 0)}, nil
	case modeKindSymlink:
		return nil, fmt.Errorf("symlink %q is not supported", name)
	default:
		return nil, fmt.Errorf("unknown mode %#x for %q", mode, name)
	}
}

func (d *DeviceFS) Stat(ctx context.Context, rel string) (*Info, error) {
	if rel == "" {
		// The root is a directory iff it lists; otherwise look for it in
		// its parent to tell a plain file from a missing path.
		if _, err := d.List(ctx, ""); err == nil {
			return &Info{Name: path.Base(d.root), Kind: KindDir}, nil
		}
		return d.findIn(ctx, path.Dir(d.root), path.Base(d.root))
	}
	parent := path.Dir(rel)
	if parent == "." {
		parent = ""
	}
	infos, err := d.List(ctx, parent)
	if err != nil {
		return nil, err
	}
	name := path.Base(rel)
	for i := range infos {
		if infos[i].Name == name {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("stat %q: %w", rel, ErrNotFound)
}

func (d *DeviceFS) findIn(ctx context.Context, dir, name string) (*Info, error) {
	infos, err := d.listAbs(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", d.root, err)
	}
	for i := range infos {
		if infos[i].Name == name {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("stat %q: %w", d.root, ErrNotFound)
}

func (d *DeviceFS) Mkdir(ctx context.Context, rel string) error {
	if _, err := d.shell.Exec(ctx, "mkdir -p "+adb.Quote(d.abs(rel))); err != nil {
		return fmt.Errorf("mkdir %q: %w", rel, err)
	}
	d.invalidate(rel, KindDir)
	return nil
}

func (d *DeviceFS) Delete(ctx context.Context, rel string, kind Kind) error {
	cmd := "rm -f "
	if kind == KindDir {
		cmd = "rm -rf "
	}
	if _, err := d.shell.Exec(ctx, cmd+adb.Quote(d.abs(rel))); err != nil {
		return fmt.Errorf("delete %q: %w", rel, err)
	}
	d.invalidate(rel, kind)
	return nil
}

func (d *DeviceFS) SetMtime(ctx context.Context, rel string, mtime time.Time) error {
	cmd := fmt.Sprintf("touch -m -d @%d %s", mtime.Unix(), adb.Quote(d.abs(rel)))
	if _, err := d.shell.Exec(ctx, cmd); err != nil {
		return fmt.Errorf("set mtime %q: %w", rel, err)
	}
	d.invalidate(rel, KindFile)
	return nil
}

// invalidate drops cached listings made stale by a mutation at rel.
// Removing a directory can strand entries for its whole subtree, so that
// case purges the cache outright.
func (d *DeviceFS) invalidate(rel string, kind Kind) {
	if kind == KindDir {
		d.cache.Purge()
		return
	}
	parent := path.Dir(rel)
	if parent == "." {
		parent = ""
	}
	d.cache.Remove(parent)
	d.cache.Remove(rel)
}

type pairConfig struct {
	compress string
}

// PairOption configures a pull or push transport.
type PairOption func(*pairConfig)

// WithCompression selects an adb transfer compression algorithm
// ("any", "none", "brotli", "lz4", "zstd"). Empty leaves it to adb.
func WithCompression(alg string) PairOption {
	return func(c *pairConfig) { c.compress = alg }
}

// Pull syncs a device directory down to a local one.
type Pull struct {
	dev   *DeviceFS
	local *LocalFS
	cfg   pairConfig
}

func NewPull(dev *DeviceFS, local *LocalFS, opts ...PairOption) *Pull {
	p := &Pull{dev: dev, local: local}
	for _, opt := range opts {
		opt(&p.cfg)
	}
	return p
}

func (p *Pull) Source() FileSystem { return p.dev }
func (p *Pull) Dest() FileSystem   { return p.local }
func (p *Pull) Direction() string  { return "pull" }

func (p *Pull) CopyFile(ctx context.Context, rel string) error {
	args := []string{"pull"}
	if p.cfg.compress != "" {
		args = append(args, "-z", p.cfg.compress)
	}
	args = append(args, p.dev.abs(rel), p.local.abs(rel))
	if _, err := p.dev.client.Run(ctx, args...); err != nil {
		return fmt.Errorf("pull %q: %w", rel, err)
	}
	return nil
}

// Push syncs a local directory up to a device one.
type Push struct {
	local *LocalFS
	dev   *DeviceFS
	cfg   pairConfig
}

func NewPush(local *LocalFS, dev *DeviceFS, opts ...PairOption) *Push {
	p := &Push{local: local, dev: dev}
	for _, opt := range opts {
		opt(&p.cfg)
	}
	return p
}

func (p *Push) Source() FileSystem { return p.local }
func (p *Push) Dest() FileSystem   { return p.dev }
func (p *Push) Direction() string  { return "push" }

func (p *Push) CopyFile(ctx context.Context, rel string) error {
	args := []string{"push"}
	if p.cfg.compress != "" {
		args = append(args, "-z", p.cfg.compress)
	}
	args = append(args, p.local.abs(rel), p.dev.abs(rel))
	if _, err := p.dev.client.Run(ctx, args...); err != nil {
		return fmt.Errorf("push %q: %w", rel, err)
	}
	return nil
}
