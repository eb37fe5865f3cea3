package sync

import (
	"time"

	"github.com/adbsink/adbsink/internal/transport"
)

// Status classifies how one action ended.
type Status string

const (
	StatusCopied   Status = "Copied"
	StatusDeleted  Status = "Deleted"
	StatusSkipped  Status = "Skipped"
	StatusRecursed Status = "Recursed"
	StatusFailed   Status = "Failed"
)

// Outcome pairs an action with how it ended. Error mirrors Err as text
// so outcomes survive serialization.
type Outcome struct {
	Action Action `json:"action"`
	Status Status `json:"status"`
	Err    error  `json:"-"`
	Error  string `json:"error,omitempty"`
}

func failedOutcome(a Action, err error) Outcome {
	return Outcome{Action: a, Status: StatusFailed, Err: err, Error: err.Error()}
}

// Report aggregates one run.
type Report struct {
	Direction string        `json:"direction"`
	Source    string        `json:"source"`
	Dest      string        `json:"dest"`
	DryRun    bool          `json:"dry_run"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcomes  []Outcome     `json:"outcomes"`

	Copied  int   `json:"copied"`
	Deleted int   `json:"deleted"`
	Skipped int   `json:"skipped"`
	Dirs    int   `json:"dirs"`
	Failed  int   `json:"failed"`
	Bytes   int64 `json:"bytes"`
}

func NewReport(direction, source, dest string, dryRun bool) *Report {
	return &Report{
		Direction: direction,
		Source:    source,
		Dest:      dest,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}
}

// Add records one outcome and updates the tallies.
func (r *Report) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusCopied:
		r.Copied++
		if o.Action.Kind == transport.KindFile {
			r.Bytes += o.Action.Size
		}
	case StatusDeleted:
		r.Deleted++
	case StatusSkipped:
		r.Skipped++
	case StatusRecursed:
		r.Dirs++
	case StatusFailed:
		r.Failed++
	}
}

// Finish stamps the duration.
func (r *Report) Finish() {
	r.Duration = time.Since(r.StartedAt)
}

// Ok reports whether every action succeeded.
func (r *Report) Ok() bool { return r.Failed == 0 }

// Failures returns just the failed outcomes.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}
