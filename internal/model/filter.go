package model

import (
	"fmt"
	"strings"
	"time"
)

// FilterState holds the session-scoped filter used to narrow the cache.
// Every field is optional; set fields are combined with AND.
type FilterState struct {
	// Keyword is matched case-insensitively against To, Sender,
	// Subject and Body; any field matching is enough.
	Keyword string

	// From and To bound ReceivedAt inclusively.
	From *time.Time
	To   *time.Time

	// Folder must equal the message folder label exactly.
	Folder string
}

// IsEmpty reports whether no filter field is set.
func (f FilterState) IsEmpty() bool {
	return f.Keyword == "" && f.From == nil && f.To == nil && f.Folder == ""
}

// Reset clears every filter field.
func (f *FilterState) Reset() {
	*f = FilterState{}
}

// String renders the active filter for status displays.
func (f FilterState) String() string {
	if f.IsEmpty() {
		return "none"
	}

	var parts []string
	if f.Keyword != "" {
		parts = append(parts, fmt.Sprintf("keyword=%q", f.Keyword))
	}
	if f.From != nil || f.To != nil {
		parts = append(parts, fmt.Sprintf(
			"range=[%s, %s]", formatBound(f.From), formatBound(f.To),
		))
	}
	if f.Folder != "" {
		parts = append(parts, fmt.Sprintf("folder=%q", f.Folder))
	}
	return strings.Join(parts, " ")
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "*"
	}
	return t.Format(TimeLayout)
}
