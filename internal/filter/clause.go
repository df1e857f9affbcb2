// Package filter composes keyword, date-range and folder predicates over the
// message cache.
package filter

import (
	"strings"
	"time"

	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/store"
)

// Clause is one node of a filter expression. SQL renders the clause as a
// condition on the mail table; Match evaluates the same predicate in memory.
type Clause interface {
	SQL() (string, []any)
	Match(msg model.Message) bool
}

// Keyword matches messages whose To, Sender, Subject or Body contains the
// keyword, ignoring case.
type Keyword struct {
	folded string
}

// NewKeyword returns a keyword clause for kw.
func NewKeyword(kw string) Keyword {
	return Keyword{folded: store.CaseFold(kw)}
}

// keywordColumns are searched by Keyword, in SQL form.
var keywordColumns = []string{
	`"to"`,
	"sender",
	"COALESCE(subject, '')",
	"COALESCE(body, '')",
}

func (k Keyword) SQL() (string, []any) {
	parts := make([]string, 0, len(keywordColumns))
	args := make([]any, 0, len(keywordColumns))
	for _, col := range keywordColumns {
		parts = append(parts, "instr(casefold("+col+"), ?) > 0")
		args = append(args, k.folded)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func (k Keyword) Match(msg model.Message) bool {
	for _, field := range []string{msg.To, msg.Sender, msg.Subject, msg.Body} {
		if strings.Contains(store.CaseFold(field), k.folded) {
			return true
		}
	}
	return false
}

// DateRange bounds ReceivedAt inclusively. A nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// NewDateRange returns a date clause. Bounds are moved inward to whole
// seconds, the precision messages are stored with.
func NewDateRange(from, to *time.Time) DateRange {
	var r DateRange
	if from != nil {
		f := from.UTC()
		if t := f.Truncate(time.Second); !t.Equal(f) {
			f = t.Add(time.Second)
		}
		r.From = &f
	}
	if to != nil {
		t := to.UTC().Truncate(time.Second)
		r.To = &t
	}
	return r
}

func (d DateRange) SQL() (string, []any) {
	var parts []string
	var args []any
	if d.From != nil {
		parts = append(parts, "datetime >= ?")
		args = append(args, d.From.Format(model.TimeLayout))
	}
	if d.To != nil {
		parts = append(parts, "datetime <= ?")
		args = append(args, d.To.Format(model.TimeLayout))
	}
	return "(" + strings.Join(parts, " AND ") + ")", args
}

func (d DateRange) Match(msg model.Message) bool {
	if d.From != nil && msg.ReceivedAt.Before(*d.From) {
		return false
	}
	if d.To != nil && msg.ReceivedAt.After(*d.To) {
		return false
	}
	return true
}

// Folder matches one folder label exactly.
type Folder struct {
	Label string
}

func (f Folder) SQL() (string, []any) {
	return "folder = ?", []any{f.Label}
}

func (f Folder) Match(msg model.Message) bool {
	return msg.Folder == f.Label
}

// And matches when every child clause matches.
type And []Clause

func (a And) SQL() (string, []any) {
	parts := make([]string, 0, len(a))
	var args []any
	for _, c := range a {
		sql, cArgs := c.SQL()
		parts = append(parts, "("+sql+")")
		args = append(args, cArgs...)
	}
	return strings.Join(parts, " AND "), args
}

func (a And) Match(msg model.Message) bool {
	for _, c := range a {
		if !c.Match(msg) {
			return false
		}
	}
	return true
}
