package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// MustTime parses a "2006-01-02 15:04:05" timestamp as UTC.
func MustTime(t *testing.T, v string) time.Time {
	t.Helper()

	ts, err := time.ParseInLocation(model.TimeLayout, v, time.UTC)
	if err != nil {
		t.Fatalf("parsing time %q: %v", v, err)
	}
	return ts
}

// Seed inserts msgs into s in order and returns them with their IDs set.
func Seed(t *testing.T, s store.Store, msgs ...model.Message) []model.Message {
	t.Helper()

	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		id, err := s.Insert(context.Background(), m)
		if err != nil {
			t.Fatalf("seeding message %s: %v", m.ReceivedAt.Format(model.TimeLayout), err)
		}
		m.ID = id
		out = append(out, m)
	}
	return out
}
