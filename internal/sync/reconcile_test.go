package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adbsink/adbsink/internal/transport"
)

// flakyPair fails the copy of one chosen path and behaves normally
// otherwise.
type flakyPair struct {
	*transport.LocalPair
	failRel string
}

func (f *flakyPair) CopyFile(ctx context.Context, rel string) error {
	if rel == f.failRel {
		return errors.New("transfer interrupted")
	}
	return f.LocalPair.CopyFile(ctx, rel)
}

func TestReconciler_ContinuesPastFailure(t *testing.T) {
	ctx := context.Background()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()

	writeFileAt(t, srcRoot, "a.txt", "first", baseTime)
	writeFileAt(t, srcRoot, "b.txt", "second", baseTime)

	tr := &flakyPair{LocalPair: transport.NewLocalPair(srcRoot, dstRoot), failRel: "a.txt"}
	eng, err := New(tr, &Policy{}, "")
	require.NoError(t, err)

	rep, err := eng.Run(ctx)
	require.NoError(t, err, "per-entry failures must not abort the run")

	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Copied)
	assert.False(t, rep.Ok())

	// the failing entry came first in plan order, so a completed copy of
	// b.txt proves the run kept going
	assert.NoFileExists(t, filepath.Join(dstRoot, "a.txt"))
	assert.Equal(t, "second", readFileAt(t, dstRoot, "b.txt"))

	failures := rep.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, RelPath("a.txt"), failures[0].Action.Path)
	assert.Contains(t, failures[0].Error, "transfer interrupted")
}

func TestReconciler_FailedDeleteRecorded(t *testing.T) {
	ctx := context.Background()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()
	writeFileAt(t, dstRoot, "orphan.txt", "x", baseTime)

	tr := transport.NewLocalPair(srcRoot, dstRoot)
	rec := NewReconciler(tr, &Policy{})

	// a bogus op surfaces as a failure, not a panic
	rep := NewReport("local", srcRoot, dstRoot, false)
	err := rec.Apply(ctx, []Action{{Op: Op("Explode"), Path: "orphan.txt", Kind: transport.KindFile}}, rep)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
}

func TestSuccessStatus(t *testing.T) {
	assert.Equal(t, StatusCopied, successStatus(OpCopy))
	assert.Equal(t, StatusDeleted, successStatus(OpDelete))
	assert.Equal(t, StatusRecursed, successStatus(OpRecurse))
	assert.Equal(t, StatusSkipped, successStatus(OpSkip))
}
