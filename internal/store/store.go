package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mailmirror/internal/model"
)

// ErrNotFound is returned when a message lookup by ID finds nothing.
var ErrNotFound = errors.New("message not found")

// ConflictError reports an insert rejected by the uniqueness constraint
// on ReceivedAt. During sync this means the store and the remote disagree
// about what was already mirrored.
type ConflictError struct {
	ReceivedAt time.Time
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"message received at %s already stored: %v",
		e.ReceivedAt.Format(model.TimeLayout), e.Err,
	)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// IsConflict reports whether err (or any error in its chain) is a ConflictError.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// Condition is a SQL boolean fragment over the mail table with its
// positional arguments.
type Condition struct {
	SQL  string
	Args []any
}

// Store defines the persistence interface for mirrored messages.
type Store interface {
	// Insert stores msg and returns its new ID. It fails with a
	// *ConflictError when a message with the same ReceivedAt exists.
	Insert(ctx context.Context, msg model.Message) (int64, error)

	// Exists reports whether a message with the given ReceivedAt is stored.
	Exists(ctx context.Context, receivedAt time.Time) (bool, error)

	// Get returns the message with the given ID or ErrNotFound.
	Get(ctx context.Context, id int64) (*model.Message, error)

	// Range returns messages with fromID <= ID <= toID in ID order.
	// A zero bound is open.
	Range(ctx context.Context, fromID, toID int64) ([]model.Message, error)

	// Select returns messages matching cond in ID order.
	Select(ctx context.Context, cond Condition) ([]model.Message, error)

	Count(ctx context.Context) (int, error)

	// CountWhere returns the number of messages matching cond.
	CountWhere(ctx context.Context, cond Condition) (int, error)

	// DateExtent returns the oldest and newest ReceivedAt. An empty store
	// yields the current time twice.
	DateExtent(ctx context.Context) (time.Time, time.Time, error)

	// DistinctFolders returns the sorted set of non-empty folder labels.
	DistinctFolders(ctx context.Context) ([]string, error)

	Close() error
}
