package sync

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/nhle/mailmirror/internal/source"
)

func TestNormalize(t *testing.T) {
	subject := "Hello"
	received := time.Date(2021, 1, 2, 3, 4, 5, 600_000_000, time.FixedZone("CET", 3600))

	got, err := Normalize(&source.RawMessage{
		ID:       "1",
		Received: received,
		Sender:   &source.Address{Name: "Alice", Addr: "alice@example.com"},
		To: []source.Address{
			{Name: "Bob", Addr: "bob@example.com"},
			{Addr: "carol@example.com"},
		},
		Cc:      []source.Address{{Name: "Dave", Addr: "dave@example.com"}},
		Subject: &subject,
	}, "Archive/2020")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if want := time.Date(2021, 1, 2, 2, 4, 5, 0, time.UTC); !got.ReceivedAt.Equal(want) || got.ReceivedAt.Location() != time.UTC {
		t.Errorf("ReceivedAt = %v, want %v", got.ReceivedAt, want)
	}
	if got.Sender != "Alice <alice@example.com>" {
		t.Errorf("Sender = %q", got.Sender)
	}
	if got.To != "Bob <bob@example.com>,carol@example.com" {
		t.Errorf("To = %q", got.To)
	}
	if got.Cc != "Dave <dave@example.com>" {
		t.Errorf("Cc = %q", got.Cc)
	}
	if got.Subject != "Hello" || got.Body != "" {
		t.Errorf("Subject/Body = %q/%q", got.Subject, got.Body)
	}
	if got.Folder != "Archive/2020" {
		t.Errorf("Folder = %q", got.Folder)
	}
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	sender := &source.Address{Addr: "a@example.com"}
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  *source.RawMessage
	}{
		{"nil item", nil},
		{"no received time", &source.RawMessage{Sender: sender}},
		{"no sender", &source.RawMessage{Received: now}},
		{"empty sender address", &source.RawMessage{Received: now, Sender: &source.Address{Name: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.raw, "Inbox"); !errors.Is(err, ErrMalformed) {
				t.Errorf("Normalize() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"ingest", Options{}, nil},
		{"download now", Options{DownloadNow: true}, nil},
		{"purge", Options{PurgeOlderThanDays: 10}, nil},
		{"both modes", Options{DownloadNow: true, PurgeOlderThanDays: 10}, ErrConflictingModes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := (Options{PurgeOlderThanDays: -1}).Validate(); err == nil {
		t.Error("Validate() accepted negative purge age")
	}
	if err := (Options{RetryBackoff: -time.Second}).Validate(); err == nil {
		t.Error("Validate() accepted negative backoff")
	}
}

func TestProcessingOrder(t *testing.T) {
	opts := Options{ArchiveFolders: []string{"a", "b"}}

	if got, want := opts.DeclaredFolders(), []string{"Inbox", "Sent", "Archive/a", "Archive/b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DeclaredFolders() = %v, want %v", got, want)
	}
	if got, want := opts.ProcessingOrder(), []string{"Archive/b", "Archive/a", "Sent", "Inbox"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ProcessingOrder() = %v, want %v", got, want)
	}
}
