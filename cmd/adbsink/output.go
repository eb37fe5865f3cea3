package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/adbsink/adbsink/internal/adb"
	"github.com/adbsink/adbsink/internal/history"
	"github.com/adbsink/adbsink/internal/sync"
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleBad   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleDim   = lipgloss.NewStyle().Faint(true)
)

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func printSummary(w io.Writer, rep *sync.Report) {
	title := fmt.Sprintf("%s %s -> %s", rep.Direction, rep.Source, rep.Dest)
	if rep.DryRun {
		title += styleDim.Render(" (dry run)")
	}
	fmt.Fprintln(w, styleTitle.Render(title))

	line := fmt.Sprintf("  copied %d (%s), deleted %d, skipped %d, dirs %d in %s",
		rep.Copied, humanize.Bytes(uint64(rep.Bytes)), rep.Deleted, rep.Skipped, rep.Dirs,
		rep.Duration.Round(time.Millisecond))
	if rep.Ok() {
		fmt.Fprintln(w, styleOK.Render(line))
		return
	}

	fmt.Fprintln(w, line)
	fmt.Fprintln(w, styleBad.Render(fmt.Sprintf("  %s failed:", plural(rep.Failed, "entry", "entries"))))
	for _, o := range rep.Failures() {
		fmt.Fprintf(w, "    %s %s: %s\n", o.Action.Op, o.Action.Path, o.Error)
	}
}

func printJSONReport(w io.Writer, rep *sync.Report) error {
	b, err := marshalJSON(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printDevices(w io.Writer, devices []adb.Device) {
	if len(devices) == 0 {
		fmt.Fprintln(w, styleDim.Render("no devices found"))
		return
	}
	fmt.Fprintln(w, styleDim.Render(fmt.Sprintf("%-24s %-14s %s", "SERIAL", "STATE", "MODEL")))
	for _, d := range devices {
		state := string(d.State)
		if !d.Online() {
			state = styleBad.Render(state)
		}
		fmt.Fprintf(w, "%-24s %-14s %s\n", d.Serial, state, d.Model)
	}
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, styleDim.Render("no runs recorded yet"))
		return
	}
	fmt.Fprintln(w, styleDim.Render(
		fmt.Sprintf("%-16s %-5s %-30s %-9s %s", "WHEN", "DIR", "RESULT", "BYTES", "PATHS")))
	for _, r := range runs {
		result := fmt.Sprintf("%d copied, %d deleted, %d failed", r.Copied, r.Deleted, r.Failed)
		if r.Failed > 0 {
			result = styleBad.Render(result)
		}
		fmt.Fprintf(w, "%-16s %-5s %-30s %-9s %s -> %s\n",
			humanize.Time(r.StartedAt), r.Direction, result,
			humanize.Bytes(uint64(r.Bytes)), r.Source, r.Dest)
	}
}

func printFailures(w io.Writer, failures []history.Failure) {
	if len(failures) == 0 {
		fmt.Fprintln(w, styleOK.Render("no failures recorded"))
		return
	}
	fmt.Fprintln(w, styleDim.Render(fmt.Sprintf("%-10s %-8s %-40s %s", "RUN", "OP", "PATH", "ERROR")))
	for _, f := range failures {
		runID := f.RunID
		if len(runID) > 8 {
			runID = runID[:8]
		}
		fmt.Fprintf(w, "%-10s %-8s %-40s %s\n", runID, f.Op, f.Path, f.Error)
	}
}
