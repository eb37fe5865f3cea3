package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addSyncFlags(cmd)
	return cmd
}

func TestBuildPolicy_FlagsOnly(t *testing.T) {
	cmd := newSyncTestCmd()
	require.NoError(t, cmd.Flags().Set("delete-if-dne", "true"))
	require.NoError(t, cmd.Flags().Set("set-times", "true"))
	require.NoError(t, cmd.Flags().Set("ignore-dir", ".thumb"))
	require.NoError(t, cmd.Flags().Set("exclude", "**/*.tmp"))

	pol, err := buildPolicy(cmd, t.TempDir())
	require.NoError(t, err)

	assert.True(t, pol.DeleteOrphans)
	assert.True(t, pol.PreserveTimes)
	assert.False(t, pol.DryRun)
	assert.Equal(t, []string{".thumb"}, pol.IgnorePrefixes)
	assert.Equal(t, []string{"**/*.tmp"}, pol.ExcludeGlobs)
}

func TestBuildPolicy_FileFillsUnsetFlags(t *testing.T) {
	root := t.TempDir()
	policyYAML := "set_times: true\nignore_dirs: [.trash]\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".adbsink.yaml"), []byte(policyYAML), 0o644))

	cmd := newSyncTestCmd()
	pol, err := buildPolicy(cmd, root)
	require.NoError(t, err)

	assert.True(t, pol.PreserveTimes, "file should fill the untouched flag")
	assert.False(t, pol.DeleteOrphans)
	assert.Equal(t, []string{".trash"}, pol.IgnorePrefixes)
}

func TestBuildPolicy_FlagBeatsFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".adbsink.yaml"), []byte("set_times: true\n"), 0o644))

	cmd := newSyncTestCmd()
	require.NoError(t, cmd.Flags().Set("set-times", "false"))

	pol, err := buildPolicy(cmd, root)
	require.NoError(t, err)
	assert.False(t, pol.PreserveTimes)
}

func TestBuildPolicy_BadPolicyFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".adbsink.yaml"), []byte("no_such_key: 1\n"), 0o644))

	_, err := buildPolicy(newSyncTestCmd(), root)
	assert.Error(t, err)
}

func TestCleanDevicePath(t *testing.T) {
	got, err := cleanDevicePath("/sdcard/DCIM/")
	require.NoError(t, err)
	assert.Equal(t, "/sdcard/DCIM", got)

	_, err = cleanDevicePath("sdcard/DCIM")
	assert.Error(t, err)
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 entry", plural(1, "entry", "entries"))
	assert.Equal(t, "2 entries", plural(2, "entry", "entries"))
	assert.Equal(t, "0 entries", plural(0, "entry", "entries"))
}
