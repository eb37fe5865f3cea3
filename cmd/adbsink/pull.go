package main

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adbsink/adbsink/internal/sync"
	"github.com/adbsink/adbsink/internal/transport"
	"github.com/adbsink/adbsink/internal/utils"
)

func init() {
	rootCmd.AddCommand(newPullCmd())
}

func newPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <device-dir> [local-dir]",
		Short: "Copy a device directory down into a local directory",
		Long: `Pull mirrors a directory tree from the device into a local directory,
the current one when no destination is given.

The source directory lands inside the destination under its own name, so
"adbsink pull /sdcard/DCIM ~/backup" syncs into ~/backup/DCIM. Files that
already match by size and age are left alone; pass --delete-if-dne to also
remove local files the device no longer has.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			devRoot, err := cleanDevicePath(args[0])
			if err != nil {
				return err
			}
			destArg := "."
			if len(args) > 1 {
				destArg = args[1]
			}
			destBase, err := utils.ResolvePath(destArg)
			if err != nil {
				return err
			}
			localRoot := filepath.Join(destBase, path.Base(devRoot))

			client, _, err := connectDevice(cmd)
			if err != nil {
				return err
			}

			if err := utils.EnsureDir(localRoot); err != nil {
				return fmt.Errorf("create %s: %w", localRoot, err)
			}
			lock, err := sync.AcquireRunLock(localRoot)
			if err != nil {
				return err
			}
			defer lock.Release()

			devfs, err := transport.NewDeviceFS(ctx, client, devRoot)
			if err != nil {
				return err
			}
			defer devfs.Close()

			// fail fast when the device path is missing or a plain file
			info, err := devfs.Stat(ctx, "")
			if err != nil {
				return fmt.Errorf("device path %s: %w", devRoot, err)
			}
			if info.Kind != transport.KindDir {
				return fmt.Errorf("device path %s is not a directory", devRoot)
			}

			pol, err := buildPolicy(cmd, localRoot)
			if err != nil {
				return err
			}

			tr := transport.NewPull(devfs, transport.NewLocalFS(localRoot),
				transport.WithCompression(compressArg(cmd)))
			eng, err := sync.New(tr, pol, localRoot)
			if err != nil {
				return err
			}
			return runSync(cmd, eng)
		},
	}
	addSyncFlags(cmd)
	return cmd
}
