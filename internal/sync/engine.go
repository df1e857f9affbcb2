// Package sync mirrors remote folders into the local store.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/source"
	"github.com/nhle/mailmirror/internal/store"
)

// Engine walks remote folders newest first and ingests or purges their
// items. It is single threaded; Run must not be called concurrently.
type Engine struct {
	store    store.Store
	prompter Prompter
	reporter Reporter
	logger   *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates a sync engine writing to s. A nil reporter discards
// progress.
func NewEngine(s store.Store, p Prompter, r Reporter, logger *zap.Logger) *Engine {
	if r == nil {
		r = NopReporter{}
	}
	return &Engine{
		store:    s,
		prompter: p,
		reporter: r,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// folderCursor is the per-folder loop state.
type folderCursor struct {
	bailOut            bool
	firstDuplicateSeen bool
}

// Run syncs every declared folder in processing order. On a halting error
// the partial report is returned together with the error.
func (e *Engine) Run(ctx context.Context, src source.MailSource, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Purge:     opts.Purging(),
		StartedAt: e.now().UTC(),
	}
	logger := e.logger.With(zap.String("run_id", report.RunID))
	logger.Info("sync started",
		zap.Bool("purge", opts.Purging()),
		zap.Int("purge_older_than_days", opts.PurgeOlderThanDays),
		zap.Bool("download_now", opts.DownloadNow),
		zap.Strings("folders", opts.ProcessingOrder()),
	)

	folders, err := src.ListFolders(ctx)
	if err != nil {
		report.FinishedAt = e.now().UTC()
		return report, fmt.Errorf("listing folders: %w", err)
	}

	for _, label := range opts.ProcessingOrder() {
		folder, ok := folders[label]
		if !ok {
			logger.Warn("folder not found at source", zap.String("folder", label))
			result := FolderResult{Label: label, State: FolderMissing}
			report.Folders = append(report.Folders, result)
			e.reporter.FolderFinished(result)
			continue
		}

		e.reporter.FolderStarted(label)
		result, err := e.syncFolder(ctx, src, folder, opts, logger.With(zap.String("folder", label)))
		report.Folders = append(report.Folders, result)
		e.reporter.FolderFinished(result)
		if err != nil {
			report.FinishedAt = e.now().UTC()
			logger.Error("sync halted", zap.String("folder", label), zap.Error(err))
			return report, fmt.Errorf("syncing %s: %w", label, err)
		}
	}

	report.FinishedAt = e.now().UTC()
	totals := report.Totals()
	logger.Info("sync completed",
		zap.Int("ingested", totals.Ingested),
		zap.Int("duplicates", totals.Duplicates),
		zap.Int("malformed", totals.Malformed),
		zap.Int("purged", totals.Purged),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	e.reporter.Completed(report)

	return report, nil
}

func (e *Engine) syncFolder(
	ctx context.Context,
	src source.MailSource,
	folder source.Folder,
	opts Options,
	logger *zap.Logger,
) (result FolderResult, err error) {
	result = FolderResult{Label: folder.Label, State: FolderDone}

	it, err := src.Items(ctx, folder)
	if err != nil {
		result.State = FolderFailed
		return result, fmt.Errorf("opening folder: %w", err)
	}
	defer func() {
		if closeErr := it.Close(); closeErr != nil {
			logger.Warn("closing folder", zap.Error(closeErr))
			if err == nil {
				result.State = FolderFailed
				err = fmt.Errorf("closing folder: %w", closeErr)
			}
		}
	}()

	purgeBefore := e.now().UTC().AddDate(0, 0, -opts.PurgeOlderThanDays)
	var cursor folderCursor

	emit := func(o Outcome, msg *model.Message) {
		result.record(o)
		e.reporter.ItemProcessed(folder.Label, o, msg)
	}

	for {
		// Stop before pulling anything else from the remote sequence.
		if cursor.bailOut {
			result.State = FolderAborted
			logger.Info("folder aborted at already synced history")
			return result, nil
		}

		raw, err := it.Next(ctx)
		if errors.Is(err, source.Done) {
			return result, nil
		}
		if err != nil {
			if !source.IsTransient(err) {
				result.State = FolderFailed
				return result, fmt.Errorf("reading next item: %w", err)
			}
			logger.Warn("transient fetch error, backing off",
				zap.Duration("backoff", opts.RetryBackoff),
				zap.Error(err),
			)
			emit(OutcomeRetry, nil)
			if err := e.sleep(ctx, opts.RetryBackoff); err != nil {
				result.State = FolderFailed
				return result, err
			}
			continue
		}

		msg, err := Normalize(raw, folder.Label)
		if err != nil {
			logger.Warn("skipping malformed item", zap.String("id", raw.ID), zap.Error(err))
			emit(OutcomeMalformed, nil)
			continue
		}
		itemLogger := logger.With(zap.String("received_at", msg.ReceivedAt.Format(model.TimeLayout)))

		if opts.Purging() {
			if !msg.ReceivedAt.Before(purgeBefore) {
				emit(OutcomeSkipped, &msg)
				continue
			}
			if err := src.Delete(ctx, raw); err != nil {
				itemLogger.Warn("purge failed", zap.Error(err))
				emit(OutcomePurgeFailed, &msg)
				continue
			}
			itemLogger.Debug("purged")
			emit(OutcomePurged, &msg)
			continue
		}

		exists, err := e.store.Exists(ctx, msg.ReceivedAt)
		if err != nil {
			result.State = FolderFailed
			return result, err
		}
		if !exists {
			id, err := e.store.Insert(ctx, msg)
			if err != nil {
				result.State = FolderFailed
				return result, err
			}
			msg.ID = id
			itemLogger.Debug("ingested", zap.Int64("id", id))
			emit(OutcomeIngested, &msg)
			continue
		}

		emit(OutcomeDuplicate, &msg)
		if cursor.firstDuplicateSeen || opts.DownloadNow {
			continue
		}
		cursor.firstDuplicateSeen = true

		proceed, err := e.prompter.ContinuePastDuplicate(ctx, folder.Label, msg)
		if err != nil {
			result.State = FolderFailed
			return result, fmt.Errorf("asking whether to continue: %w", err)
		}
		if !proceed {
			cursor.bailOut = true
		}
	}
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
