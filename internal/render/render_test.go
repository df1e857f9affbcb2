package render

import (
	"fmt"
	"strings"
	"testing"
)

func TestBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text keeps lines and drops blanks",
			in:   "Hi Bob,\n\n\nSee you soon.\n",
			want: "Hi Bob,\nSee you soon.",
		},
		{
			name: "paragraphs and breaks",
			in:   "<html><body><p>First   line</p><p>Second<br>Third</p></body></html>",
			want: "First line\nSecond\nThird",
		},
		{
			name: "scripts and styles dropped",
			in:   "<style>p{color:red}</style><script>alert(1)</script><p>kept</p>",
			want: "kept",
		},
		{
			name: "headings lists and links",
			in:   `<h2>Agenda</h2><ul><li>one</li><li><a href="https://example.com">two</a></li></ul>`,
			want: "## Agenda\n* one\n* [two](https://example.com)",
		},
		{
			name: "entities unescaped",
			in:   "<p>Fish &amp; Chips&nbsp;today</p>",
			want: "Fish & Chips today",
		},
		{
			name: "preformatted text kept",
			in:   "<pre>a  b\nc</pre>",
			want: "a  b\nc",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Body(tt.in); got != tt.want {
				t.Errorf("Body() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBodyTruncatesToMaxLines(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 60; i++ {
		fmt.Fprintf(&b, "<p>line %d</p>", i)
	}

	lines := strings.Split(Body(b.String()), "\n")
	if len(lines) != MaxLines {
		t.Fatalf("len(lines) = %d, want %d", len(lines), MaxLines)
	}
	if lines[MaxLines-1] != "line 40" {
		t.Errorf("last line = %q, want line 40", lines[MaxLines-1])
	}
}

func TestLinesUnlimited(t *testing.T) {
	if got := Lines("a\nb\nc", 0); got != "a\nb\nc" {
		t.Errorf("Lines(0) = %q", got)
	}
}
