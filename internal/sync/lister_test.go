package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adbsink/adbsink/internal/transport"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
}

func noRules(t *testing.T) *IgnoreRules {
	t.Helper()
	rules, err := CompileIgnoreRules(nil, nil, "")
	require.NoError(t, err)
	return rules
}

func TestBuildListing_SortedDepthFirst(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b.txt":   "hello",
		"a/x.txt": "0123456789",
		"a.":      "tricky name",
	})

	listing, err := BuildListing(context.Background(), transport.NewLocalFS(root), noRules(t))
	require.NoError(t, err)

	assert.Equal(t, []RelPath{"a", "a/x.txt", "a.", "b.txt"}, listing.Paths())
	assert.Equal(t, transport.KindDir, listing[0].Kind)
	assert.Equal(t, int64(10), listing[1].Size)
}

func TestBuildListing_PrunesIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"photos/p1.jpg":         "x",
		".thumbnails/small.jpg": "y",
		"a/.thumbnails/t.jpg":   "z",
	})

	rules, err := CompileIgnoreRules([]string{".thumb"}, nil, "")
	require.NoError(t, err)

	listing, err := BuildListing(context.Background(), transport.NewLocalFS(root), rules)
	require.NoError(t, err)

	assert.Equal(t, []RelPath{"a", "photos", "photos/p1.jpg"}, listing.Paths())
}

func TestBuildListing_ExcludesGlobMatches(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.txt":   "x",
		"c/drop.tmp": "y",
		"c/keep.dat": "z",
	})

	rules, err := CompileIgnoreRules(nil, []string{"**/*.tmp"}, "")
	require.NoError(t, err)

	listing, err := BuildListing(context.Background(), transport.NewLocalFS(root), rules)
	require.NoError(t, err)

	assert.Equal(t, []RelPath{"c", "c/keep.dat", "keep.txt"}, listing.Paths())
}

func TestBuildListing_SkipsOwnArtifacts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		IgnoreFileName: "*.log\n",
		"app.log":      "noise",
		"app.txt":      "signal",
	})

	rules, err := CompileIgnoreRules(nil, nil, root)
	require.NoError(t, err)

	listing, err := BuildListing(context.Background(), transport.NewLocalFS(root), rules)
	require.NoError(t, err)

	assert.Equal(t, []RelPath{"app.txt"}, listing.Paths())
}

func TestBuildListing_RootNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := BuildListing(context.Background(), transport.NewLocalFS(missing), noRules(t))
	require.Error(t, err)

	var rnf *RootNotFoundError
	require.ErrorAs(t, err, &rnf)
	assert.Equal(t, missing, rnf.Root)
	assert.ErrorIs(t, err, transport.ErrNotFound)
}
