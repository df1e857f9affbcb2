// Package export turns result sets into pick-list entries and files.
package export

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/nhle/mailmirror/internal/model"
)

// Choice is one pick-list entry.
type Choice struct {
	ID    int64
	Label string
}

// PickList renders msgs as "<id> - <yymmdd HH:MM> - <folder> - <subject>".
func PickList(msgs []model.Message) []Choice {
	choices := make([]Choice, 0, len(msgs))
	for _, m := range msgs {
		choices = append(choices, Choice{
			ID: m.ID,
			Label: strings.Join([]string{
				strconv.FormatInt(m.ID, 10),
				m.ReceivedAt.UTC().Format("060102 15:04"),
				m.Folder,
				m.Subject,
			}, " - "),
		})
	}
	return choices
}

// maxSubjectWords is the number of subject words kept in a file name.
const maxSubjectWords = 10

var nonWord = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_]`)

// FileName derives the export file name
// "<YYMMDD_HHMM>__<senderFirstToken>__<subjectSlice>.html".
func FileName(msg model.Message) string {
	sender := "unknown"
	if fields := strings.Fields(msg.Sender); len(fields) > 0 {
		sender = strings.NewReplacer("/", "", `\`, "").Replace(fields[0])
	}

	words := strings.Fields(msg.Subject)
	if len(words) > maxSubjectWords {
		words = words[:maxSubjectWords]
	}
	subject := nonWord.ReplaceAllString(strings.Join(words, "_"), "")

	return msg.ReceivedAt.UTC().Format("060102_1504") + "__" + sender + "__" + subject + ".html"
}

// WrapBody makes body open sensibly as an HTML file. Bodies that already
// carry an <html> root are returned unchanged.
func WrapBody(body string) string {
	if strings.Contains(strings.ToLower(body), "<html") {
		return body
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return "<html><body>" + strings.ReplaceAll(body, "\n", "<br>\n") + "</body></html>"
}

// PreviewColumns are the columns of the export preview table.
var PreviewColumns = []string{"id", "datetime", "to", "sender", "cc", "subject", "body", "folder"}

// previewWidth caps each preview cell, in runes.
const previewWidth = 40

// PreviewRow renders msg as one preview table row.
func PreviewRow(msg model.Message) []string {
	cells := []string{
		strconv.FormatInt(msg.ID, 10),
		msg.ReceivedAt.UTC().Format(model.TimeLayout),
		msg.To,
		msg.Sender,
		msg.Cc,
		msg.Subject,
		msg.Body,
		msg.Folder,
	}
	for i, c := range cells {
		cells[i] = truncate(strings.Join(strings.Fields(c), " "), previewWidth)
	}
	return cells
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Exporter writes one file per message.
type Exporter struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewExporter creates an exporter writing to fs.
func NewExporter(fs afero.Fs, logger *zap.Logger) *Exporter {
	return &Exporter{fs: fs, logger: logger}
}

// Export writes msgs into dir, creating it if needed, and returns the
// written paths. A later message whose name collides with an earlier one
// overwrites it.
func (e *Exporter) Export(dir string, msgs []model.Message) ([]string, error) {
	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(msgs))
	for _, m := range msgs {
		path := filepath.Join(dir, FileName(m))
		e.logger.Info("writing export", zap.String("path", path), zap.Int64("id", m.ID))
		if err := afero.WriteFile(e.fs, path, []byte(WrapBody(m.Body)), 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
