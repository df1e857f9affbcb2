// Package render turns stored message bodies into terminal text.
package render

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// MaxLines is the number of non-blank lines shown for a body.
const MaxLines = 40

// skipElements are elements whose text content is discarded.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"title":    true,
}

// blockElements start and end on their own line.
var blockElements = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "li": true, "blockquote": true,
	"pre": true, "table": true, "tr": true, "ul": true, "ol": true,
	"section": true, "article": true, "header": true, "footer": true,
	"hr": true,
}

var tagPattern = regexp.MustCompile(`<[a-zA-Z!/]`)

// Body renders body to at most MaxLines non-blank lines. HTML is flattened
// to markdown-like text; plain text is kept as is.
func Body(body string) string {
	return Lines(body, MaxLines)
}

// Lines renders body and keeps the first max non-blank lines. A max of
// zero or less keeps every line.
func Lines(body string, max int) string {
	text := body
	if tagPattern.MatchString(body) {
		text = toText(body)
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if max > 0 && len(lines) == max {
			break
		}
	}
	return strings.Join(lines, "\n")
}

type converter struct {
	tokenizer *html.Tokenizer
	out       strings.Builder
	skipDepth int
	preDepth  int
	lastSpace bool
	hrefs     []string
}

func toText(body string) string {
	c := &converter{tokenizer: html.NewTokenizer(strings.NewReader(body))}
	for c.next() {
	}
	return c.out.String()
}

func (c *converter) next() bool {
	switch c.tokenizer.Next() {
	case html.ErrorToken:
		return false

	case html.StartTagToken, html.SelfClosingTagToken:
		tn, hasAttr := c.tokenizer.TagName()
		c.start(string(tn), hasAttr)

	case html.EndTagToken:
		tn, _ := c.tokenizer.TagName()
		c.end(string(tn))

	case html.TextToken:
		if c.skipDepth == 0 {
			c.writeText(string(c.tokenizer.Text()))
		}
	}
	return true
}

func (c *converter) start(tag string, hasAttr bool) {
	switch {
	case skipElements[tag]:
		c.skipDepth++
		return
	case tag == "br":
		c.newline()
		return
	case tag == "pre":
		c.preDepth++
	}

	if blockElements[tag] {
		c.newline()
	}

	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		c.out.WriteString(strings.Repeat("#", int(tag[1]-'0')) + " ")
	case "li":
		c.out.WriteString("* ")
	case "hr":
		c.out.WriteString("---")
		c.newline()
	case "a":
		href := ""
		if hasAttr {
			href = c.attr("href")
		}
		c.hrefs = append(c.hrefs, href)
		if href != "" {
			c.out.WriteString("[")
		}
	case "img":
		if hasAttr {
			if alt := c.attr("alt"); alt != "" {
				c.writeText(alt)
			}
		}
	}
}

func (c *converter) end(tag string) {
	if skipElements[tag] {
		if c.skipDepth > 0 {
			c.skipDepth--
		}
		return
	}
	if tag == "pre" && c.preDepth > 0 {
		c.preDepth--
	}
	if tag == "a" && len(c.hrefs) > 0 {
		href := c.hrefs[len(c.hrefs)-1]
		c.hrefs = c.hrefs[:len(c.hrefs)-1]
		if href != "" {
			c.out.WriteString("](" + href + ")")
		}
	}
	if blockElements[tag] {
		c.newline()
	}
}

func (c *converter) attr(name string) string {
	for {
		key, val, more := c.tokenizer.TagAttr()
		if string(key) == name {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}

func (c *converter) newline() {
	c.out.WriteByte('\n')
	c.lastSpace = true
}

func (c *converter) writeText(text string) {
	if c.preDepth > 0 {
		c.out.WriteString(text)
		return
	}
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\u00a0' {
			if !c.lastSpace {
				c.out.WriteByte(' ')
				c.lastSpace = true
			}
			continue
		}
		c.out.WriteRune(r)
		c.lastSpace = false
	}
}
