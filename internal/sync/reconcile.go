package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adbsink/adbsink/internal/transport"
)

// Reconciler applies a plan one action at a time, in plan order. A failed
// action is recorded and the run moves on to the next; only context
// cancellation stops it early, after the in-flight action completes.
type Reconciler struct {
	tr       transport.Transport
	preserve bool
	dryRun   bool

	// OnOutcome, when set, observes every outcome as it lands.
	OnOutcome func(Outcome)
}

func NewReconciler(tr transport.Transport, pol *Policy) *Reconciler {
	return &Reconciler{tr: tr, preserve: pol.PreserveTimes, dryRun: pol.DryRun}
}

// Apply executes the plan into rep.
func (r *Reconciler) Apply(ctx context.Context, actions []Action, rep *Report) error {
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		o := r.apply(ctx, a)
		rep.Add(o)
		if r.OnOutcome != nil {
			r.OnOutcome(o)
		}
	}
	return nil
}

func (r *Reconciler) apply(ctx context.Context, a Action) Outcome {
	if r.dryRun {
		slog.Info("plan", "action", a.String())
		return Outcome{Action: a, Status: successStatus(a.Op)}
	}

	switch a.Op {
	case OpSkip:
		slog.Debug("skip", "path", a.Path)
		return Outcome{Action: a, Status: StatusSkipped}

	case OpRecurse:
		return Outcome{Action: a, Status: StatusRecursed}

	case OpDelete:
		slog.Info("delete", "kind", a.Kind, "path", a.Path, "reason", a.Reason)
		if err := r.tr.Dest().Delete(ctx, string(a.Path), a.Kind); err != nil {
			slog.Error("delete failed", "path", a.Path, "error", err)
			return failedOutcome(a, err)
		}
		return Outcome{Action: a, Status: StatusDeleted}

	case OpCopy:
		return r.copy(ctx, a)

	default:
		return failedOutcome(a, fmt.Errorf("unknown op %q", a.Op))
	}
}

func (r *Reconciler) copy(ctx context.Context, a Action) Outcome {
	slog.Info("copy", "kind", a.Kind, "path", a.Path, "reason", a.Reason)

	if a.Kind == transport.KindDir {
		if err := r.tr.Dest().Mkdir(ctx, string(a.Path)); err != nil {
			slog.Error("mkdir failed", "path", a.Path, "error", err)
			return failedOutcome(a, err)
		}
		return Outcome{Action: a, Status: StatusCopied}
	}

	if err := r.tr.CopyFile(ctx, string(a.Path)); err != nil {
		slog.Error("copy failed", "path", a.Path, "error", err)
		return failedOutcome(a, err)
	}
	// a copy that lands but loses its timestamp would shadow real changes
	// on the next run, so this failure counts against the entry too
	if r.preserve && !a.MTime.IsZero() {
		if err := r.tr.Dest().SetMtime(ctx, string(a.Path), a.MTime); err != nil {
			slog.Error("set mtime failed", "path", a.Path, "error", err)
			return failedOutcome(a, fmt.Errorf("set mtime: %w", err))
		}
	}
	return Outcome{Action: a, Status: StatusCopied}
}

func successStatus(op Op) Status {
	switch op {
	case OpCopy:
		return StatusCopied
	case OpDelete:
		return StatusDeleted
	case OpRecurse:
		return StatusRecursed
	default:
		return StatusSkipped
	}
}
