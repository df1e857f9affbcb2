package testutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mailmirror/internal/source"
)

// Item is one step of a fake folder: a message, or an error returned by
// Next in its place.
type Item struct {
	Msg *source.RawMessage
	Err error
}

// FakeSource is an in-memory source.MailSource. Folders are keyed by label
// and yield their items in slice order.
type FakeSource struct {
	Folders map[string][]Item

	// DeleteErr, when set, is returned by Delete for the given item IDs.
	DeleteErr map[string]error

	// NextCalls counts Next calls per folder label.
	NextCalls map[string]int

	Deleted []string
	Opened  []string
	Closed  int
}

var _ source.MailSource = (*FakeSource)(nil)

// NewFakeSource creates a fake source with the given folders.
func NewFakeSource(folders map[string][]Item) *FakeSource {
	return &FakeSource{
		Folders:   folders,
		DeleteErr: map[string]error{},
		NextCalls: map[string]int{},
	}
}

func (f *FakeSource) ListFolders(context.Context) (map[string]source.Folder, error) {
	out := make(map[string]source.Folder, len(f.Folders))
	for label := range f.Folders {
		out[label] = source.Folder{Label: label, Name: label}
	}
	return out, nil
}

func (f *FakeSource) Items(_ context.Context, folder source.Folder) (source.Iterator, error) {
	items, ok := f.Folders[folder.Label]
	if !ok {
		return nil, fmt.Errorf("no folder %s", folder.Label)
	}
	f.Opened = append(f.Opened, folder.Label)
	return &fakeIterator{src: f, folder: folder, items: items}, nil
}

func (f *FakeSource) Delete(_ context.Context, msg *source.RawMessage) error {
	if err := f.DeleteErr[msg.ID]; err != nil {
		return err
	}
	f.Deleted = append(f.Deleted, msg.ID)
	return nil
}

func (f *FakeSource) Close() error { return nil }

type fakeIterator struct {
	src    *FakeSource
	folder source.Folder
	items  []Item
	pos    int
}

func (it *fakeIterator) Next(ctx context.Context) (*source.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	it.src.NextCalls[it.folder.Label]++
	if it.pos >= len(it.items) {
		return nil, source.Done
	}
	item := it.items[it.pos]
	it.pos++
	if item.Err != nil {
		return nil, item.Err
	}
	msg := *item.Msg
	msg.Folder = it.folder
	return &msg, nil
}

func (it *fakeIterator) Close() error {
	it.src.Closed++
	return nil
}

// Raw builds a well-formed remote item received at the given
// "2006-01-02 15:04:05" UTC time.
func Raw(id, at, subject string) Item {
	received, err := time.ParseInLocation("2006-01-02 15:04:05", at, time.UTC)
	if err != nil {
		panic(err)
	}
	return Item{Msg: &source.RawMessage{
		ID:       id,
		Received: received,
		Sender:   &source.Address{Name: "Alice", Addr: "alice@example.com"},
		To:       []source.Address{{Name: "Bob", Addr: "bob@example.com"}},
		Subject:  &subject,
		Body:     &subject,
	}}
}

// Malformed builds a remote item without a sender.
func Malformed(id, at string) Item {
	item := Raw(id, at, "malformed")
	item.Msg.Sender = nil
	return item
}

// Transient builds a step that fails with a retryable fetch error.
func Transient(msg string) Item {
	return Item{Err: &source.TransientError{Err: errors.New(msg)}}
}
