package main

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adbsink/adbsink/internal/adb"
	"github.com/adbsink/adbsink/internal/history"
	"github.com/adbsink/adbsink/internal/sync"
)

// addSyncFlags attaches the flags shared by pull and push.
func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().SortFlags = false
	cmd.Flags().BoolP("delete-if-dne", "d", false, "delete destination entries with no source counterpart")
	cmd.Flags().BoolP("set-times", "t", false, "carry the source modification time onto copied files")
	cmd.Flags().BoolP("dry-run", "n", false, "report what would change without doing it")
	cmd.Flags().StringSliceP("ignore-dir", "i", nil, "skip directories whose name starts with this prefix (repeatable)")
	cmd.Flags().StringSlice("exclude", nil, "skip entries whose relative path matches this glob (repeatable)")
	cmd.Flags().String("compress", "", "adb transfer compression (any|none|brotli|lz4|zstd)")
	cmd.Flags().Bool("json", false, "print the run report as JSON")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")
	cmd.Flags().Bool("no-history", false, "do not record this run")
}

// buildPolicy merges the sync flags with the local root's policy file.
// Flags win; the file fills in whatever was left untouched.
func buildPolicy(cmd *cobra.Command, localRoot string) (*sync.Policy, error) {
	pol := &sync.Policy{}
	pol.DeleteOrphans, _ = cmd.Flags().GetBool("delete-if-dne")
	pol.PreserveTimes, _ = cmd.Flags().GetBool("set-times")
	pol.DryRun, _ = cmd.Flags().GetBool("dry-run")
	pol.IgnorePrefixes, _ = cmd.Flags().GetStringSlice("ignore-dir")
	pol.ExcludeGlobs, _ = cmd.Flags().GetStringSlice("exclude")

	rp, err := sync.LoadRootPolicy(localRoot)
	if err != nil {
		return nil, err
	}
	if rp != nil {
		slog.Debug("using root policy file", "dir", localRoot)
	}
	rp.ApplyTo(pol, cmd.Flags().Changed("set-times"), cmd.Flags().Changed("delete-if-dne"))
	return pol, nil
}

// connectDevice makes sure exactly one usable device is up and returns a
// client pinned to it.
func connectDevice(cmd *cobra.Command) (*adb.Client, adb.Device, error) {
	ctx := cmd.Context()
	bin := viper.GetString("adb_bin")

	client := adb.NewClient(adb.WithBin(bin), adb.WithSerial(viper.GetString("serial")))
	dev, err := client.EnsureDevice(ctx, viper.GetString("connect"))
	if err != nil {
		return nil, adb.Device{}, err
	}

	client = adb.NewClient(adb.WithBin(bin), adb.WithSerial(dev.Serial))
	slog.Info("device ready", "serial", dev.Serial, "model", dev.Model)
	return client, dev, nil
}

// cleanDevicePath validates and normalizes an on-device path argument.
func cleanDevicePath(arg string) (string, error) {
	if !strings.HasPrefix(arg, "/") {
		return "", fmt.Errorf("device path %q must be absolute", arg)
	}
	return path.Clean(arg), nil
}

func compressArg(cmd *cobra.Command) string {
	if cmd.Flags().Changed("compress") {
		v, _ := cmd.Flags().GetString("compress")
		return v
	}
	return viper.GetString("compress")
}

// runSync plans, applies and reports one sync. A failed entry makes the
// command exit non-zero, but only after everything else had its turn.
func runSync(cmd *cobra.Command, eng *sync.Engine) error {
	ctx := cmd.Context()
	jsonOut, _ := cmd.Flags().GetBool("json")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	actions, err := eng.Plan(ctx)
	if err != nil {
		return err
	}

	if !noProgress && !jsonOut && isatty.IsTerminal(os.Stderr.Fd()) {
		bar := newProgressBar(len(actions))
		eng.OnOutcome(func(o sync.Outcome) { _ = bar.Add(1) })
		defer func() { _ = bar.Close() }()
	}

	rep, applyErr := eng.Apply(ctx, actions)
	recordHistory(cmd, rep)

	if jsonOut {
		if err := printJSONReport(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	} else {
		printSummary(cmd.OutOrStdout(), rep)
	}

	if applyErr != nil {
		return applyErr
	}
	if !rep.Ok() {
		return fmt.Errorf("%s failed", plural(rep.Failed, "entry", "entries"))
	}
	return nil
}

func recordHistory(cmd *cobra.Command, rep *sync.Report) {
	noHistory, _ := cmd.Flags().GetBool("no-history")
	if noHistory || !viper.GetBool("history") || rep.DryRun {
		return
	}

	store := history.NewStore(filepath.Join(appDir(), "history.db"))
	if err := store.Open(); err != nil {
		slog.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()

	id, err := store.Record(rep)
	if err != nil {
		slog.Warn("recording run failed", "error", err)
		return
	}
	slog.Debug("run recorded", "run_id", id)
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("syncing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}
