package sync

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nhle/mailmirror/internal/model"
)

// ErrConflictingModes is returned when immediate download and purge are
// requested together.
var ErrConflictingModes = errors.New("download-now and purge-older-than cannot be used together")

// DefaultRetryBackoff is the pause after a transient fetch failure.
const DefaultRetryBackoff = 10 * time.Second

// Options configures one sync run.
type Options struct {
	// ArchiveFolders are extra folder names, mirrored as Archive/<name>.
	ArchiveFolders []string

	// DownloadNow ingests past duplicates without asking.
	DownloadNow bool

	// PurgeOlderThanDays switches the run to purge mode when positive:
	// remote items older than this many days are deleted and nothing is
	// stored locally.
	PurgeOlderThanDays int

	RetryBackoff time.Duration
}

// Validate rejects option combinations the engine cannot run.
func (o Options) Validate() error {
	if o.DownloadNow && o.PurgeOlderThanDays > 0 {
		return ErrConflictingModes
	}
	if o.PurgeOlderThanDays < 0 {
		return fmt.Errorf("purge-older-than must not be negative, got %d", o.PurgeOlderThanDays)
	}
	if o.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must not be negative, got %s", o.RetryBackoff)
	}
	return nil
}

// Purging reports whether the run deletes instead of ingesting.
func (o Options) Purging() bool {
	return o.PurgeOlderThanDays > 0
}

// DeclaredFolders returns Inbox, Sent and the archive labels in
// declaration order.
func (o Options) DeclaredFolders() []string {
	labels := []string{model.FolderInbox, model.FolderSent}
	for _, name := range o.ArchiveFolders {
		labels = append(labels, model.ArchiveLabel(name))
	}
	return labels
}

// ProcessingOrder returns the declared folders last-declared-first, so
// archive folders run before the bulk Inbox.
func (o Options) ProcessingOrder() []string {
	labels := o.DeclaredFolders()
	slices.Reverse(labels)
	return labels
}
