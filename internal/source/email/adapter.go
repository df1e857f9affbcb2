package email

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/source"
)

// sentNames are mailbox names treated as the Sent folder when the server
// does not advertise the \Sent attribute.
var sentNames = []string{
	"sent",
	"sent items",
	"sent messages",
	"sent mail",
	"[gmail]/sent mail",
	"inbox.sent",
}

// Adapter implements source.MailSource over one IMAP connection.
type Adapter struct {
	client *imapclient.Client
	logger *zap.Logger

	selected       string
	pendingExpunge bool
}

var _ source.MailSource = (*Adapter)(nil)

// Dial connects and logs in to the account described by cfg.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Adapter, error) {
	client, err := connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client, logger: logger}, nil
}

// folderLabel maps a mailbox to its local label.
func folderLabel(mailbox string, attrs []imap.MailboxAttr) string {
	if strings.EqualFold(mailbox, "INBOX") {
		return model.FolderInbox
	}
	if slices.Contains(attrs, imap.MailboxAttrSent) {
		return model.FolderSent
	}
	if slices.Contains(sentNames, strings.ToLower(mailbox)) {
		return model.FolderSent
	}
	return model.ArchiveLabel(mailbox)
}

// selectable reports whether a LIST entry can be opened.
func selectable(attrs []imap.MailboxAttr) bool {
	return !slices.Contains(attrs, imap.MailboxAttrNoSelect) &&
		!slices.Contains(attrs, imap.MailboxAttrNonExistent)
}

// buildFolders resolves LIST results to labels. A mailbox flagged \Sent
// takes the Sent label over one that only matches by name.
func buildFolders(entries []*imap.ListData) map[string]source.Folder {
	folders := make(map[string]source.Folder, len(entries))
	flaggedSent := false

	for _, e := range entries {
		if !selectable(e.Attrs) {
			continue
		}
		label := folderLabel(e.Mailbox, e.Attrs)
		if label == model.FolderSent {
			hasAttr := slices.Contains(e.Attrs, imap.MailboxAttrSent)
			if _, taken := folders[label]; taken && (flaggedSent || !hasAttr) {
				continue
			}
			flaggedSent = flaggedSent || hasAttr
		}
		folders[label] = source.Folder{Label: label, Name: e.Mailbox}
	}

	return folders
}

// ListFolders lists every selectable mailbox.
func (a *Adapter) ListFolders(_ context.Context) (map[string]source.Folder, error) {
	entries, err := a.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}
	return buildFolders(entries), nil
}

// Items selects folder and iterates its messages by descending UID.
func (a *Adapter) Items(_ context.Context, folder source.Folder) (source.Iterator, error) {
	if _, err := a.client.Select(folder.Name, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", folder.Name, err)
	}
	a.selected = folder.Name
	a.pendingExpunge = false

	data, err := a.client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", folder.Name, err)
	}

	uids := data.AllUIDs()
	slices.SortFunc(uids, func(x, y imap.UID) int { return cmp.Compare(y, x) })

	a.logger.Debug("opened folder",
		zap.String("folder", folder.Label),
		zap.Int("messages", len(uids)),
	)

	return &iterator{adapter: a, folder: folder, uids: uids}, nil
}

// fetch reads one message with its envelope, internal date and raw body.
func (a *Adapter) fetch(folder source.Folder, uid imap.UID) (*source.RawMessage, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	opts := &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{section},
	}

	bufs, err := a.client.Fetch(imap.UIDSetNum(uid), opts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching UID %d: %w", uid, err)
	}
	if len(bufs) == 0 {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf := bufs[0]
	return toRaw(folder, uid, buf.Envelope, buf.InternalDate, buf.FindBodySection(section)), nil
}

// Delete flags msg as \Deleted. The mailbox is expunged when the
// iterator that produced msg is closed.
func (a *Adapter) Delete(_ context.Context, msg *source.RawMessage) error {
	if msg.Folder.Name != a.selected {
		return fmt.Errorf("deleting %s: folder %s is not selected", msg.ID, msg.Folder.Name)
	}
	uid, err := strconv.ParseUint(msg.ID, 10, 32)
	if err != nil {
		return fmt.Errorf("deleting %s: invalid UID: %w", msg.ID, err)
	}

	err = a.client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil).Close()
	if err != nil {
		return fmt.Errorf("deleting UID %d in %s: %w", uid, a.selected, err)
	}

	a.pendingExpunge = true
	return nil
}

func (a *Adapter) expunge() error {
	if !a.pendingExpunge {
		return nil
	}
	a.pendingExpunge = false
	if err := a.client.Expunge().Close(); err != nil {
		return fmt.Errorf("expunging %s: %w", a.selected, err)
	}
	return nil
}

// Close logs out and closes the connection.
func (a *Adapter) Close() error {
	_ = a.client.Logout().Wait()
	return a.client.Close()
}

type iterator struct {
	adapter *Adapter
	folder  source.Folder
	uids    []imap.UID
	pos     int
}

func (it *iterator) Next(ctx context.Context) (*source.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.uids) {
		return nil, source.Done
	}

	uid := it.uids[it.pos]
	it.pos++

	msg, err := it.adapter.fetch(it.folder, uid)
	if err != nil {
		return nil, &source.TransientError{Err: err}
	}
	return msg, nil
}

func (it *iterator) Close() error {
	return it.adapter.expunge()
}
