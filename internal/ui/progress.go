package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/nhle/mailmirror/internal/model"
	appsync "github.com/nhle/mailmirror/internal/sync"
	"github.com/nhle/mailmirror/internal/theme"
)

// Progress prints sync events as they happen.
type Progress struct {
	out io.Writer
}

var _ appsync.Reporter = (*Progress)(nil)

// NewProgress returns a reporter writing to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out}
}

func (p *Progress) FolderStarted(label string) {
	fmt.Fprintf(p.out, "%s\n", theme.HeaderStyle.Render(label))
}

func (p *Progress) ItemProcessed(_ string, outcome appsync.Outcome, msg *model.Message) {
	tag := theme.OutcomeStyle(outcome.String()).Render(fmt.Sprintf("%-12s", outcome.String()))
	if msg == nil {
		fmt.Fprintf(p.out, "  %s\n", tag)
		return
	}
	fmt.Fprintf(p.out, "  %s %s  %s\n",
		tag, msg.ReceivedAt.UTC().Format(model.TimeLayout), msg.Subject)
}

func (p *Progress) FolderFinished(result appsync.FolderResult) {
	fmt.Fprintf(p.out, "  %s %s\n",
		theme.FolderStateStyle(result.State.String()).Render(result.State.String()),
		summarize(result.Counters))
}

func (p *Progress) Completed(report *appsync.Report) {
	verb := "download"
	if report.Purge {
		verb = "purge"
	}
	fmt.Fprintf(p.out, "%s completed in %s: %s\n",
		verb,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		summarize(report.Totals()))
}

func summarize(c appsync.Counters) string {
	return fmt.Sprintf(
		"%d ingested, %d duplicate, %d skipped, %d malformed, %d retried, %d purged, %d purge failures",
		c.Ingested, c.Duplicates, c.Skipped, c.Malformed, c.Retries, c.Purged, c.PurgeFailures,
	)
}
