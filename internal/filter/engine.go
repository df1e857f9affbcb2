package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/store"
)

// Build turns a filter state into a clause tree. It returns false when no
// field is set. A single clause is returned as is rather than wrapped in And.
func Build(state model.FilterState) (Clause, bool) {
	var clauses And

	if state.Keyword != "" {
		clauses = append(clauses, NewKeyword(state.Keyword))
	}
	if state.From != nil || state.To != nil {
		clauses = append(clauses, NewDateRange(state.From, state.To))
	}
	if state.Folder != "" {
		clauses = append(clauses, Folder{Label: state.Folder})
	}

	switch len(clauses) {
	case 0:
		return nil, false
	case 1:
		return clauses[0], true
	default:
		return clauses, true
	}
}

// Engine evaluates filter states against a store.
type Engine struct {
	store store.Store
}

// NewEngine creates a filter engine reading from s.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// Evaluate returns the messages matching state in store order. An empty
// state returns the whole store.
func (e *Engine) Evaluate(ctx context.Context, state model.FilterState) ([]model.Message, error) {
	clause, ok := Build(state)
	if !ok {
		msgs, err := e.store.Range(ctx, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("evaluating empty filter: %w", err)
		}
		return msgs, nil
	}

	sql, args := clause.SQL()
	msgs, err := e.store.Select(ctx, store.Condition{SQL: sql, Args: args})
	if err != nil {
		return nil, fmt.Errorf("evaluating filter %s: %w", state, err)
	}
	return msgs, nil
}

// Count returns how many messages match state without loading them.
func (e *Engine) Count(ctx context.Context, state model.FilterState) (int, error) {
	clause, ok := Build(state)
	if !ok {
		return e.store.Count(ctx)
	}

	sql, args := clause.SQL()
	n, err := e.store.CountWhere(ctx, store.Condition{SQL: sql, Args: args})
	if err != nil {
		return 0, fmt.Errorf("counting filter %s: %w", state, err)
	}
	return n, nil
}

// DayLayout is the date format accepted for range bounds.
const DayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD bound in UTC. The start of the day is
// returned unless endOfDay is set, in which case the last second of the day
// is returned. An empty string yields nil.
func ParseDay(v string, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}

	day, err := time.ParseInLocation(DayLayout, v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", v, err)
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Second)
	}
	return &day, nil
}
