// Package source defines the contract between the sync engine and a remote
// mailbox backend.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Done is returned by Iterator.Next when a folder has no more items.
var Done = errors.New("no more messages")

// AuthError indicates that authentication has failed or expired for a
// backend.
type AuthError struct {
	Backend string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Backend, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// TransientError marks a per-item fetch failure that is worth retrying
// after a pause. The iterator stays usable.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient fetch error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// Folder is a remote container resolved to its local label.
type Folder struct {
	// Label is the name stored with each record: Inbox, Sent or
	// Archive/<name>.
	Label string

	// Name is the backend's own identifier (mailbox name, label id).
	Name string
}

// Address is one mailbox address.
type Address struct {
	Name string
	Addr string
}

// String formats the address as "Name <addr>", or the bare address when
// there is no display name.
func (a Address) String() string {
	if a.Name == "" {
		return a.Addr
	}
	return a.Name + " <" + a.Addr + ">"
}

// FormatAddresses joins addresses with ",".
func FormatAddresses(addrs []Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ",")
}

// RawMessage is an item as the backend delivered it, before normalization.
// Nil pointers and zero times mean the backend did not provide the field.
type RawMessage struct {
	// ID is the backend handle used by Delete.
	ID string

	// Folder is the folder the item was read from.
	Folder Folder

	Received time.Time
	Sender   *Address
	To       []Address
	Cc       []Address
	Subject  *string
	Body     *string
}

// Iterator yields the items of one folder, newest first.
type Iterator interface {
	// Next returns the next item. It returns Done when the folder is
	// drained, and a *TransientError for a per-item failure after which
	// iteration may continue.
	Next(ctx context.Context) (*RawMessage, error)

	// Close releases the iterator. Pending deletions are committed here.
	Close() error
}

// MailSource is a remote mailbox.
type MailSource interface {
	// ListFolders returns the folders available at the source keyed by
	// label.
	ListFolders(ctx context.Context) (map[string]Folder, error)

	// Items opens an iterator over folder.
	Items(ctx context.Context, folder Folder) (Iterator, error)

	// Delete removes msg at the source.
	Delete(ctx context.Context, msg *RawMessage) error

	Close() error
}
