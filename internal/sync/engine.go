package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adbsink/adbsink/internal/transport"
)

// Engine wires the listing, diff and reconcile phases over one transport.
type Engine struct {
	tr    transport.Transport
	pol   *Policy
	rules *IgnoreRules
	rec   *Reconciler
}

// New compiles the policy's ignore rules and returns a ready engine.
// localRoot is the directory holding the ignore file, normally the local
// side of the transport; "" skips the file lookup.
func New(tr transport.Transport, pol *Policy, localRoot string) (*Engine, error) {
	rules, err := CompileIgnoreRules(pol.IgnorePrefixes, pol.ExcludeGlobs, localRoot)
	if err != nil {
		return nil, err
	}
	return &Engine{tr: tr, pol: pol, rules: rules, rec: NewReconciler(tr, pol)}, nil
}

// OnOutcome registers a callback invoked after each applied action.
func (e *Engine) OnOutcome(fn func(Outcome)) { e.rec.OnOutcome = fn }

// Plan lists both sides in parallel and diffs them. Either side failing
// to list fails the whole plan; acting on half a picture is how files
// get deleted by mistake.
func (e *Engine) Plan(ctx context.Context) ([]Action, error) {
	var src, dst Listing

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, err := BuildListing(gctx, e.tr.Source(), e.rules)
		if err != nil {
			return fmt.Errorf("list source: %w", err)
		}
		src = l
		return nil
	})
	g.Go(func() error {
		l, err := BuildListing(gctx, e.tr.Dest(), e.rules)
		if err != nil {
			// A destination root that does not exist yet is an empty tree,
			// not a partial view; the first copies will create it.
			var rnf *RootNotFoundError
			if errors.As(err, &rnf) {
				slog.Debug("dest root missing, treating as empty", "root", rnf.Root)
				return nil
			}
			return fmt.Errorf("list dest: %w", err)
		}
		dst = l
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	actions := Diff(src, dst, e.pol)
	slog.Debug("planned",
		"source_entries", len(src),
		"dest_entries", len(dst),
		"actions", len(actions))
	return actions, nil
}

// Apply executes a plan and returns the run report. On cancellation the
// partial report comes back along with the context error.
func (e *Engine) Apply(ctx context.Context, actions []Action) (*Report, error) {
	rep := NewReport(e.tr.Direction(), e.tr.Source().Root(), e.tr.Dest().Root(), e.pol.DryRun)
	err := e.rec.Apply(ctx, actions, rep)
	rep.Finish()

	slog.Info("sync done",
		"direction", rep.Direction,
		"dry_run", rep.DryRun,
		"copied", rep.Copied,
		"deleted", rep.Deleted,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"bytes", rep.Bytes,
		"took", rep.Duration.Round(time.Millisecond))
	return rep, err
}

// Run plans and applies in one call.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	actions, err := e.Plan(ctx)
	if err != nil {
		return nil, err
	}
	return e.Apply(ctx, actions)
}
