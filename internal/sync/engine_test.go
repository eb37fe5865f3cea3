package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adbsink/adbsink/internal/transport"
)

var baseTime = time.Unix(1700000000, 0)

func writeFileAt(t *testing.T, root, rel, content string, mtime time.Time) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(abs, mtime, mtime))
}

func readFileAt(t *testing.T, root, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func newLocalEngine(t *testing.T, srcRoot, dstRoot string, pol *Policy) *Engine {
	t.Helper()
	eng, err := New(transport.NewLocalPair(srcRoot, dstRoot), pol, dstRoot)
	require.NoError(t, err)
	return eng
}

func TestEngine_Run_MirrorsTree(t *testing.T) {
	ctx := context.Background()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()

	writeFileAt(t, srcRoot, "a/x.txt", "0123456789", baseTime.Add(100*time.Second))
	writeFileAt(t, srcRoot, "b.txt", "hello", baseTime.Add(50*time.Second))
	writeFileAt(t, dstRoot, "a/x.txt", "0123456789", baseTime.Add(100*time.Second))
	writeFileAt(t, dstRoot, "c.txt", "x", baseTime.Add(time.Second))

	eng := newLocalEngine(t, srcRoot, dstRoot, &Policy{DeleteOrphans: true, PreserveTimes: true})
	rep, err := eng.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Copied)
	assert.Equal(t, 1, rep.Deleted)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.Dirs)
	assert.Equal(t, 0, rep.Failed)
	assert.Equal(t, int64(5), rep.Bytes)
	assert.True(t, rep.Ok())

	assert.Equal(t, "hello", readFileAt(t, dstRoot, "b.txt"))
	assert.NoFileExists(t, filepath.Join(dstRoot, "c.txt"))

	fi, err := os.Stat(filepath.Join(dstRoot, "b.txt"))
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(baseTime.Add(50*time.Second)), "mtime should follow the source")

	// both sides list identically after the run
	rules := noRules(t)
	srcListing, err := BuildListing(ctx, transport.NewLocalFS(srcRoot), rules)
	require.NoError(t, err)
	dstListing, err := BuildListing(ctx, transport.NewLocalFS(dstRoot), rules)
	require.NoError(t, err)
	assert.Equal(t, srcListing.Paths(), dstListing.Paths())
	for i := range srcListing {
		assert.Equal(t, srcListing[i].Kind, dstListing[i].Kind, "kind of %s", srcListing[i].Path)
		assert.Equal(t, srcListing[i].Size, dstListing[i].Size, "size of %s", srcListing[i].Path)
	}
}

func TestEngine_Run_DryRunTouchesNothing(t *testing.T) {
	ctx := context.Background()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()

	writeFileAt(t, srcRoot, "b.txt", "hello", baseTime)
	writeFileAt(t, dstRoot, "c.txt", "x", baseTime)

	eng := newLocalEngine(t, srcRoot, dstRoot, &Policy{DeleteOrphans: true, DryRun: true})
	rep, err := eng.Run(ctx)
	require.NoError(t, err)

	assert.True(t, rep.DryRun)
	assert.Equal(t, 1, rep.Copied)
	assert.Equal(t, 1, rep.Deleted)

	assert.NoFileExists(t, filepath.Join(dstRoot, "b.txt"))
	assert.FileExists(t, filepath.Join(dstRoot, "c.txt"))
}

func TestEngine_Run_NewerSourceWins(t *testing.T) {
	ctx := context.Background()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()

	newer := baseTime.Add(200 * time.Second)
	writeFileAt(t, srcRoot, "x.txt", "AAAAAAAAAA", newer)
	writeFileAt(t, dstRoot, "x.txt", "BBBBBBBBBB", baseTime.Add(100*time.Second))

	eng := newLocalEngine(t, srcRoot, dstRoot, &Policy{PreserveTimes: true})
	rep, err := eng.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Copied)
	assert.Equal(t, "AAAAAAAAAA", readFileAt(t, dstRoot, "x.txt"))

	fi, err := os.Stat(filepath.Join(dstRoot, "x.txt"))
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(newer))
}

func TestEngine_Run_NewerDestPreserved(t *testing.T) {
	ctx := context.Background()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()

	writeFileAt(t, srcRoot, "x.txt", "AAAAAAAAAA", baseTime.Add(100*time.Second))
	writeFileAt(t, dstRoot, "x.txt", "BBBBBBBBBB", baseTime.Add(200*time.Second))

	eng := newLocalEngine(t, srcRoot, dstRoot, &Policy{})
	rep, err := eng.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 0, rep.Copied)
	assert.Equal(t, "BBBBBBBBBB", readFileAt(t, dstRoot, "x.txt"))
}

func TestEngine_Run_KindFlip(t *testing.T) {
	ctx := context.Background()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()

	writeFileAt(t, srcRoot, "p", "data", baseTime)
	writeFileAt(t, dstRoot, "p/inner.txt", "junk", baseTime)

	eng := newLocalEngine(t, srcRoot, dstRoot, &Policy{})
	rep, err := eng.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Deleted)
	assert.Equal(t, 1, rep.Copied)
	assert.Equal(t, "data", readFileAt(t, dstRoot, "p"))
}

func TestEngine_Run_MissingSourceRootAborts(t *testing.T) {
	ctx := context.Background()
	srcRoot := filepath.Join(t.TempDir(), "gone")
	dstRoot := t.TempDir()
	writeFileAt(t, dstRoot, "precious.txt", "keep me", baseTime)

	eng := newLocalEngine(t, srcRoot, dstRoot, &Policy{DeleteOrphans: true})
	_, err := eng.Run(ctx)
	require.Error(t, err)

	var rnf *RootNotFoundError
	assert.ErrorAs(t, err, &rnf)

	// nothing was deleted off the back of a failed listing
	assert.FileExists(t, filepath.Join(dstRoot, "precious.txt"))
}

func TestEngine_Run_MissingDestRootTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	srcRoot := t.TempDir()
	dstRoot := filepath.Join(t.TempDir(), "fresh")

	writeFileAt(t, srcRoot, "a/x.txt", "0123456789", baseTime)
	writeFileAt(t, srcRoot, "b.txt", "hello", baseTime)

	eng := newLocalEngine(t, srcRoot, dstRoot, &Policy{DeleteOrphans: true})
	rep, err := eng.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Copied)
	assert.Zero(t, rep.Deleted)
	assert.Zero(t, rep.Failed)
	assert.Equal(t, "hello", readFileAt(t, dstRoot, "b.txt"))
	assert.Equal(t, "0123456789", readFileAt(t, dstRoot, "a/x.txt"))
}

func TestEngine_Run_Idempotent(t *testing.T) {
	ctx := context.Background()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()

	writeFileAt(t, srcRoot, "a/x.txt", "0123456789", baseTime)
	writeFileAt(t, srcRoot, "b.txt", "hello", baseTime)

	pol := &Policy{DeleteOrphans: true, PreserveTimes: true}
	eng := newLocalEngine(t, srcRoot, dstRoot, pol)

	rep, err := eng.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Copied)

	rep, err = eng.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Copied, "second run must not copy")
	assert.Zero(t, rep.Deleted)
	assert.Zero(t, rep.Failed)
	assert.Equal(t, 2, rep.Skipped)
}

func TestEngine_Apply_Cancelled(t *testing.T) {
	srcRoot, dstRoot := t.TempDir(), t.TempDir()
	writeFileAt(t, srcRoot, "b.txt", "hello", baseTime)

	eng := newLocalEngine(t, srcRoot, dstRoot, &Policy{})
	actions, err := eng.Plan(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, actions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := eng.Apply(ctx, actions)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.Outcomes)
}

func TestEngine_OnOutcome(t *testing.T) {
	ctx := context.Background()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()
	writeFileAt(t, srcRoot, "a/x.txt", "1", baseTime)
	writeFileAt(t, srcRoot, "b.txt", "2", baseTime)

	eng := newLocalEngine(t, srcRoot, dstRoot, &Policy{})
	var seen []Outcome
	eng.OnOutcome(func(o Outcome) { seen = append(seen, o) })

	rep, err := eng.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, seen, len(rep.Outcomes))
}
