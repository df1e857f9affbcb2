package sync

import (
	"context"
	"time"

	"github.com/nhle/mailmirror/internal/model"
)

// Outcome is what happened to one remote item.
type Outcome int

const (
	OutcomeIngested Outcome = iota
	OutcomeDuplicate
	OutcomeSkipped
	OutcomeMalformed
	OutcomeRetry
	OutcomePurged
	OutcomePurgeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIngested:
		return "ingested"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeRetry:
		return "retry"
	case OutcomePurged:
		return "purged"
	case OutcomePurgeFailed:
		return "purge failed"
	default:
		return "unknown"
	}
}

// FolderState is how a folder's loop ended.
type FolderState int

const (
	// FolderDone means the remote sequence was drained.
	FolderDone FolderState = iota

	// FolderAborted means the user declined to continue past a duplicate.
	FolderAborted

	// FolderMissing means the folder does not exist at the source.
	FolderMissing

	// FolderFailed means the run halted inside this folder.
	FolderFailed
)

func (s FolderState) String() string {
	switch s {
	case FolderDone:
		return "done"
	case FolderAborted:
		return "aborted"
	case FolderMissing:
		return "missing"
	case FolderFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Counters tally item outcomes.
type Counters struct {
	Ingested      int
	Duplicates    int
	Skipped       int
	Malformed     int
	Retries       int
	Purged        int
	PurgeFailures int
}

func (c *Counters) record(o Outcome) {
	switch o {
	case OutcomeIngested:
		c.Ingested++
	case OutcomeDuplicate:
		c.Duplicates++
	case OutcomeSkipped:
		c.Skipped++
	case OutcomeMalformed:
		c.Malformed++
	case OutcomeRetry:
		c.Retries++
	case OutcomePurged:
		c.Purged++
	case OutcomePurgeFailed:
		c.PurgeFailures++
	}
}

func (c *Counters) add(other Counters) {
	c.Ingested += other.Ingested
	c.Duplicates += other.Duplicates
	c.Skipped += other.Skipped
	c.Malformed += other.Malformed
	c.Retries += other.Retries
	c.Purged += other.Purged
	c.PurgeFailures += other.PurgeFailures
}

// FolderResult summarizes one folder of a run.
type FolderResult struct {
	Label string
	State FolderState
	Counters
}

// Report summarizes a sync run.
type Report struct {
	RunID      string
	Purge      bool
	StartedAt  time.Time
	FinishedAt time.Time
	Folders    []FolderResult
}

// Totals sums the counters of every folder.
func (r *Report) Totals() Counters {
	var total Counters
	for _, f := range r.Folders {
		total.add(f.Counters)
	}
	return total
}

// Prompter asks the user how to proceed when a folder reaches history that
// is already stored.
type Prompter interface {
	// ContinuePastDuplicate returns true to keep walking older items of
	// folder, false to stop the folder here.
	ContinuePastDuplicate(ctx context.Context, folder string, msg model.Message) (bool, error)
}

// Reporter receives progress events from a run.
type Reporter interface {
	FolderStarted(label string)
	ItemProcessed(label string, outcome Outcome, msg *model.Message)
	FolderFinished(result FolderResult)
	Completed(report *Report)
}

// NopReporter discards progress events.
type NopReporter struct{}

func (NopReporter) FolderStarted(string)                          {}
func (NopReporter) ItemProcessed(string, Outcome, *model.Message) {}
func (NopReporter) FolderFinished(FolderResult)                   {}
func (NopReporter) Completed(*Report)                             {}
