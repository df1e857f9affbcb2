package gmail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/source"
)

// pageSize is the number of message ids requested per list call.
const pageSize = 100

// Adapter implements source.MailSource on top of a Gmail service.
type Adapter struct {
	srv    *gmail.Service
	logger *zap.Logger
}

var _ source.MailSource = (*Adapter)(nil)

// New wraps an authorized Gmail service.
func New(srv *gmail.Service, logger *zap.Logger) *Adapter {
	return &Adapter{srv: srv, logger: logger}
}

// labelFolder maps a Gmail label to a local folder. System labels other
// than INBOX and SENT are not mirrored.
func labelFolder(l *gmail.Label) (source.Folder, bool) {
	switch {
	case l.Id == "INBOX":
		return source.Folder{Label: model.FolderInbox, Name: l.Id}, true
	case l.Id == "SENT":
		return source.Folder{Label: model.FolderSent, Name: l.Id}, true
	case l.Type == "user":
		return source.Folder{Label: model.ArchiveLabel(l.Name), Name: l.Id}, true
	default:
		return source.Folder{}, false
	}
}

// ListFolders lists INBOX, SENT and every user label.
func (a *Adapter) ListFolders(ctx context.Context) (map[string]source.Folder, error) {
	resp, err := a.srv.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}

	folders := make(map[string]source.Folder, len(resp.Labels))
	for _, l := range resp.Labels {
		if f, ok := labelFolder(l); ok {
			folders[f.Label] = f
		}
	}
	return folders, nil
}

// Items pages through the messages carrying folder's label, newest first.
func (a *Adapter) Items(_ context.Context, folder source.Folder) (source.Iterator, error) {
	return &iterator{adapter: a, folder: folder}, nil
}

// Delete moves msg to the Trash.
func (a *Adapter) Delete(ctx context.Context, msg *source.RawMessage) error {
	if _, err := a.srv.Users.Messages.Trash(user, msg.ID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("trashing message %s: %w", msg.ID, err)
	}
	return nil
}

func (a *Adapter) Close() error { return nil }

type iterator struct {
	adapter *Adapter
	folder  source.Folder

	ids       []string
	pageToken string
	started   bool
}

func (it *iterator) nextPage(ctx context.Context) error {
	call := it.adapter.srv.Users.Messages.List(user).
		LabelIds(it.folder.Name).
		MaxResults(pageSize).
		Context(ctx)
	if it.pageToken != "" {
		call = call.PageToken(it.pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return fmt.Errorf("listing messages in %s: %w", it.folder.Label, err)
	}

	it.started = true
	it.pageToken = resp.NextPageToken
	for _, m := range resp.Messages {
		it.ids = append(it.ids, m.Id)
	}

	it.adapter.logger.Debug("fetched message page",
		zap.String("folder", it.folder.Label),
		zap.Int("messages", len(resp.Messages)),
	)
	return nil
}

func (it *iterator) Next(ctx context.Context) (*source.RawMessage, error) {
	for len(it.ids) == 0 {
		if it.started && it.pageToken == "" {
			return nil, source.Done
		}
		if err := it.nextPage(ctx); err != nil {
			return nil, err
		}
	}

	id := it.ids[0]
	it.ids = it.ids[1:]

	msg, err := it.adapter.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, &source.TransientError{Err: fmt.Errorf("getting message %s: %w", id, err)}
	}
	return toRaw(it.folder, msg), nil
}

func (it *iterator) Close() error { return nil }
