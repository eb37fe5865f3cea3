package main

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adbsink/adbsink/internal/sync"
	"github.com/adbsink/adbsink/internal/transport"
	"github.com/adbsink/adbsink/internal/utils"
	"github.com/adbsink/adbsink/internal/watch"
)

// watchSettle is how long the tree must stay quiet after a change before
// a watch-mode re-sync kicks off.
const watchSettle = 500 * time.Millisecond

func init() {
	rootCmd.AddCommand(newPushCmd())
}

func newPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <local-dir> <device-dir>",
		Short: "Copy a local directory up onto the device",
		Long: `Push mirrors a local directory tree onto the device.

The source directory lands inside the destination under its own name, so
"adbsink push ~/Music /sdcard" syncs into /sdcard/Music. With --watch the
command keeps running and re-syncs whenever the local tree changes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			localRoot, err := utils.ResolvePath(args[0])
			if err != nil {
				return err
			}
			if !utils.DirExists(localRoot) {
				return fmt.Errorf("local path %s is not a directory", localRoot)
			}
			devBase, err := cleanDevicePath(args[1])
			if err != nil {
				return err
			}
			devRoot := path.Join(devBase, filepath.Base(localRoot))

			client, _, err := connectDevice(cmd)
			if err != nil {
				return err
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

			pol, err := buildPolicy(cmd, localRoot)
			if err != nil {
				return err
			}

			if !pol.DryRun {
				if err := devfs.Mkdir(ctx, ""); err != nil {
					return fmt.Errorf("create device dir %s: %w", devRoot, err)
				}
			}

			tr := transport.NewPush(transport.NewLocalFS(localRoot), devfs,
				transport.WithCompression(compressArg(cmd)))
			eng, err := sync.New(tr, pol, localRoot)
			if err != nil {
				return err
			}

			if watchMode, _ := cmd.Flags().GetBool("watch"); watchMode {
				return watchLoop(cmd, eng, devfs, localRoot, pol)
			}
			return runSync(cmd, eng)
		},
	}
	addSyncFlags(cmd)
	cmd.Flags().BoolP("watch", "w", false, "keep running and re-sync on local changes")
	return cmd
}

// watchLoop re-syncs whenever the local tree settles after a change.
// Per-entry failures are logged and retried naturally on the next round;
// only context cancellation ends the loop.
func watchLoop(cmd *cobra.Command, eng *sync.Engine, devfs *transport.DeviceFS, localRoot string, pol *sync.Policy) error {
	ctx := cmd.Context()

	runOnce := func() {
		devfs.ResetCache()
		rep, err := eng.Run(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("sync failed", "error", err)
			}
			return
		}
		recordHistory(cmd, rep)
		printSummary(cmd.OutOrStdout(), rep)
	}

	runOnce()

	rules, err := sync.CompileIgnoreRules(pol.IgnorePrefixes, pol.ExcludeGlobs, localRoot)
	if err != nil {
		return err
	}

	w := watch.New(localRoot)
	w.Filter(func(abs string) bool {
		rel, err := filepath.Rel(localRoot, abs)
		if err != nil {
			return false
		}
		rp := sync.NormPath(rel)
		if rp == "" {
			return true
		}
		// the event does not say whether the path was a file or a dir, so
		// drop it if either rule set would have excluded it
		return rules.MatchFile(rp) || rules.MatchDir(rp)
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	slog.Info("watching for changes", "dir", localRoot)

	settle := time.NewTimer(watchSettle)
	if !settle.Stop() {
		<-settle.C
	}
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			slog.Debug("change detected", "path", ev.Path())
			if !settle.Stop() {
				select {
				case <-settle.C:
				default:
				}
			}
			settle.Reset(watchSettle)
		case <-settle.C:
			runOnce()
		}
	}
}
