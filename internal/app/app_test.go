package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/nhle/mailmirror/internal/credential"
	"github.com/nhle/mailmirror/internal/export"
	"github.com/nhle/mailmirror/internal/filter"
	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/source"
	"github.com/nhle/mailmirror/internal/store"
	appsync "github.com/nhle/mailmirror/internal/sync"
	"github.com/nhle/mailmirror/internal/ui"
	"github.com/nhle/mailmirror/tests/testutil"
)

// fakePrompt replays scripted answers.
type fakePrompt struct {
	menu      []string
	keyword   string
	from, to  *time.Time
	folder    string
	picks     []int64
	exportDir string
	creds     ui.Credentials

	statuses []model.Status
	offered  [][]string
	shown    []int64
	messages []string
}

func (p *fakePrompt) Menu(_ context.Context, st model.Status, actions []string) (string, error) {
	p.statuses = append(p.statuses, st)
	p.offered = append(p.offered, actions)
	if len(p.menu) == 0 {
		return ActionExit, nil
	}
	choice := p.menu[0]
	p.menu = p.menu[1:]
	return choice, nil
}

func (p *fakePrompt) Credentials(context.Context, ui.Credentials) (ui.Credentials, error) {
	return p.creds, nil
}

func (p *fakePrompt) DateRange(context.Context, model.FilterState) (*time.Time, *time.Time, error) {
	return p.from, p.to, nil
}

func (p *fakePrompt) Folder(context.Context, []string) (string, error) {
	return p.folder, nil
}

func (p *fakePrompt) Keyword(context.Context, string) (string, error) {
	return p.keyword, nil
}

func (p *fakePrompt) PickRecord(context.Context, []export.Choice) (int64, bool, error) {
	if len(p.picks) == 0 {
		return 0, false, nil
	}
	id := p.picks[0]
	p.picks = p.picks[1:]
	return id, id != 0, nil
}

func (p *fakePrompt) ShowRecord(_ context.Context, msg model.Message) (bool, error) {
	p.shown = append(p.shown, msg.ID)
	return false, nil
}

func (p *fakePrompt) ExportDir(context.Context, []model.Message, string) (string, bool, error) {
	return p.exportDir, p.exportDir != "", nil
}

func (p *fakePrompt) AuthCode(context.Context, string) (string, error) {
	return "", errors.New("no browser in tests")
}

func (p *fakePrompt) ContinuePastDuplicate(context.Context, string, model.Message) (bool, error) {
	return false, nil
}

func (p *fakePrompt) Message(text string) {
	p.messages = append(p.messages, text)
}

func containsAction(actions []string, action string) bool {
	return slices.Contains(actions, action)
}

type fixture struct {
	app    *App
	store  *store.SQLiteStore
	prompt *fakePrompt
	fs     afero.Fs
	vault  *credential.Vault
	msgs   []model.Message
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := testutil.NewTestStore(t)
	msgs := testutil.Seed(t, s,
		model.Message{
			ReceivedAt: testutil.MustTime(t, "2021-01-01 08:00:00"),
			Sender:     "Alice <alice@example.com>",
			To:         "bob@example.com",
			Subject:    "Invoice 42",
			Body:       "<p>Please pay</p>",
			Folder:     model.FolderInbox,
		},
		model.Message{
			ReceivedAt: testutil.MustTime(t, "2021-02-01 08:00:00"),
			Sender:     "Bob <bob@example.com>",
			To:         "alice@example.com",
			Subject:    "Lunch",
			Body:       "noon?",
			Folder:     model.FolderSent,
		},
		model.Message{
			ReceivedAt: testutil.MustTime(t, "2021-03-01 08:00:00"),
			Sender:     "Carol <carol@example.com>",
			To:         "bob@example.com",
			Subject:    "Minutes",
			Body:       "attached",
			Folder:     model.ArchiveLabel("Projects"),
		},
	)

	prompt := &fakePrompt{}
	fs := afero.NewMemMapFs()
	vault := credential.NewVaultWithKeyring(keyring.NewArrayKeyring(nil))
	logger := zap.NewNop()

	cfg := &model.AppConfig{
		Database: ":memory:",
		Backend:  model.BackendIMAP,
		Export:   model.ExportConfig{Dir: "./out"},
	}

	a := &App{
		cfg:      cfg,
		getenv:   func(string) string { return "" },
		store:    s,
		filters:  filter.NewEngine(s),
		syncer:   appsync.NewEngine(s, prompt, nil, logger),
		exporter: export.NewExporter(fs, logger),
		vault:    vault,
		prompt:   prompt,
		sources: func(context.Context, *model.AppConfig, string) (source.MailSource, error) {
			return nil, errors.New("no source configured")
		},
		logger: logger,
	}

	return &fixture{app: a, store: s, prompt: prompt, fs: fs, vault: vault, msgs: msgs}
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.app.SetFilter(model.FilterState{Folder: model.FolderSent})

	st, err := f.app.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Count != 3 {
		t.Errorf("Count = %d, want 3", st.Count)
	}
	if st.Filtered != 1 {
		t.Errorf("Filtered = %d, want 1", st.Filtered)
	}
	if !st.Oldest.Equal(f.msgs[0].ReceivedAt) || !st.Newest.Equal(f.msgs[2].ReceivedAt) {
		t.Errorf("extent = [%v, %v], want [%v, %v]",
			st.Oldest, st.Newest, f.msgs[0].ReceivedAt, f.msgs[2].ReceivedAt)
	}
}

func TestMenuKeywordThenBrowse(t *testing.T) {
	f := newFixture(t)
	f.prompt.menu = []string{ActionKeyword, ActionShow}
	f.prompt.keyword = "INVOICE"
	f.prompt.picks = []int64{f.msgs[0].ID, 0}

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(f.prompt.shown) != 1 || f.prompt.shown[0] != f.msgs[0].ID {
		t.Errorf("shown = %v, want [%d]", f.prompt.shown, f.msgs[0].ID)
	}
	if got := f.prompt.statuses[1].Filtered; got != 1 {
		t.Errorf("Filtered after keyword = %d, want 1", got)
	}
	if got := f.app.Filter().Keyword; got != "INVOICE" {
		t.Errorf("Filter().Keyword = %q, want INVOICE", got)
	}
}

func TestMenuDateRangeAndReset(t *testing.T) {
	f := newFixture(t)
	from, _ := filter.ParseDay("2021-02-01", false)
	to, _ := filter.ParseDay("2021-03-01", true)
	f.prompt.from, f.prompt.to = from, to
	f.prompt.menu = []string{ActionDateRange, ActionReset}

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := f.prompt.statuses[1].Filtered; got != 2 {
		t.Errorf("Filtered after range = %d, want 2", got)
	}
	if got := f.prompt.statuses[2]; !got.Filter.IsEmpty() || got.Filtered != 3 {
		t.Errorf("after reset filter = %v filtered = %d, want empty and 3", got.Filter, got.Filtered)
	}
}

func TestMenuSaveWritesFilteredSet(t *testing.T) {
	f := newFixture(t)
	f.prompt.menu = []string{ActionFolder, ActionSave}
	f.prompt.folder = model.FolderInbox
	f.prompt.exportDir = "exported"

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	files, err := afero.ReadDir(f.fs, "exported")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("exported %d files, want 1", len(files))
	}
	want := export.FileName(f.msgs[0])
	if files[0].Name() != want {
		t.Errorf("file = %q, want %q", files[0].Name(), want)
	}
	if len(f.prompt.messages) == 0 || !strings.Contains(f.prompt.messages[0], "Saved 1") {
		t.Errorf("messages = %v, want a saved confirmation", f.prompt.messages)
	}
}

func TestActionsOfferDownloadOnlyWithCredentials(t *testing.T) {
	f := newFixture(t)

	has := func() bool { return containsAction(f.app.Actions(), ActionDownload) }

	if has() {
		t.Error("Download offered without credentials")
	}

	f.app.cfg.Account.Email = "bob@example.com"
	f.app.setPassword("secret")
	if !has() {
		t.Error("Download not offered with e-mail and password")
	}

	f.app.setPassword("")
	f.app.cfg.Backend = model.BackendGmail
	if !has() {
		t.Error("Download not offered for the gmail backend")
	}
}

func TestMenuDownloadIngests(t *testing.T) {
	f := newFixture(t)
	f.app.cfg.Account.Email = "bob@example.com"
	f.app.setPassword("secret")

	src := testutil.NewFakeSource(map[string][]testutil.Item{
		model.FolderInbox: {
			testutil.Raw("n2", "2021-05-02 00:00:00", "newer"),
			testutil.Raw("n1", "2021-05-01 00:00:00", "new"),
		},
		model.FolderSent: {},
	})
	var gotPassword string
	f.app.sources = func(_ context.Context, _ *model.AppConfig, password string) (source.MailSource, error) {
		gotPassword = password
		return src, nil
	}
	f.prompt.menu = []string{ActionDownload}

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if gotPassword != "secret" {
		t.Errorf("source password = %q, want secret", gotPassword)
	}
	n, err := f.store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 5 {
		t.Errorf("Count() = %d, want 5", n)
	}
}

func TestMenuReportsFailedActionAndContinues(t *testing.T) {
	f := newFixture(t)
	f.app.cfg.Account.Email = "bob@example.com"
	f.app.setPassword("secret")
	f.prompt.menu = []string{ActionDownload, ActionReset}

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(f.prompt.messages) != 1 || !strings.HasPrefix(f.prompt.messages[0], "Error: ") {
		t.Errorf("messages = %v, want one error", f.prompt.messages)
	}
	if len(f.prompt.statuses) != 3 {
		t.Errorf("menu shown %d times, want 3", len(f.prompt.statuses))
	}
}

func TestEditSettingsPersists(t *testing.T) {
	t.Setenv("EMAIL", "")
	t.Setenv("MAILMIRROR_ACCOUNT_EMAIL", "")
	f := newFixture(t)
	f.app.configPath = filepath.Join(t.TempDir(), "config.yaml")
	f.prompt.creds = ui.Credentials{
		Email:    "bob@example.com",
		Password: "secret",
		Server:   "mail.example.com",
		Remember: true,
	}
	f.prompt.menu = []string{ActionSettings}

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pw, err := f.vault.Password("bob@example.com")
	if err != nil {
		t.Fatalf("Password() error = %v", err)
	}
	if pw != "secret" {
		t.Errorf("stored password = %q, want secret", pw)
	}

	cfg, err := model.LoadConfig(f.app.configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Account.Email != "bob@example.com" || cfg.Account.Server != "mail.example.com" {
		t.Errorf("saved account = %+v", cfg.Account)
	}

	offered := f.prompt.offered[len(f.prompt.offered)-1]
	if !containsAction(offered, ActionDownload) {
		t.Errorf("Download not offered after settings: %v", offered)
	}
}

func TestEditSettingsForgetsPassword(t *testing.T) {
	f := newFixture(t)
	if err := f.vault.SetPassword("bob@example.com", "old"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	f.prompt.creds = ui.Credentials{Email: "bob@example.com", Password: "new"}
	f.prompt.menu = []string{ActionSettings}

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pw, err := f.vault.Password("bob@example.com")
	if err != nil {
		t.Fatalf("Password() error = %v", err)
	}
	if pw != "" {
		t.Errorf("stored password = %q, want none", pw)
	}
	if !f.app.HasCredentials() {
		t.Error("HasCredentials() = false, want the session password to be kept")
	}
}

func TestMenuAuthFailureSuggestsSettings(t *testing.T) {
	f := newFixture(t)
	f.app.cfg.Account.Email = "bob@example.com"
	f.app.setPassword("wrong")
	f.app.sources = func(context.Context, *model.AppConfig, string) (source.MailSource, error) {
		return nil, fmt.Errorf("connecting: %w", &source.AuthError{Backend: "imap", Message: "login rejected"})
	}
	f.prompt.menu = []string{ActionDownload}

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(f.prompt.messages) != 1 || !strings.Contains(f.prompt.messages[0], "Check the e-mail settings.") {
		t.Errorf("messages = %v, want a settings hint", f.prompt.messages)
	}
}

// countingKeyring records how often a stored secret is read.
type countingKeyring struct {
	keyring.Keyring
	gets int
}

func (k *countingKeyring) Get(key string) (keyring.Item, error) {
	k.gets++
	return k.Keyring.Get(key)
}

func TestPasswordResolvedOnFirstUse(t *testing.T) {
	f := newFixture(t)
	ring := &countingKeyring{Keyring: keyring.NewArrayKeyring(nil)}
	f.app.vault = credential.NewVaultWithKeyring(ring)
	if err := f.app.vault.SetPassword("bob@example.com", "stored"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	f.app.cfg.Account.Email = "bob@example.com"
	ctx := context.Background()

	if _, err := f.app.Status(ctx); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if _, err := f.app.Search(ctx, model.FilterState{Keyword: "invoice"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, err := f.app.Export(ctx, "out", model.FilterState{}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ring.gets != 0 {
		t.Fatalf("keyring read %d times before a download was possible, want 0", ring.gets)
	}

	if !f.app.HasCredentials() {
		t.Error("HasCredentials() = false, want the stored password")
	}
	f.app.HasCredentials()
	if ring.gets != 1 {
		t.Errorf("keyring read %d times, want 1", ring.gets)
	}
}

func TestSyncRejectsConflictingModes(t *testing.T) {
	f := newFixture(t)
	_, err := f.app.Sync(context.Background(), f.app.SyncOptions(true, 30))
	if !errors.Is(err, appsync.ErrConflictingModes) {
		t.Fatalf("Sync() error = %v, want ErrConflictingModes", err)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	paths, err := f.app.Export(context.Background(), "all", model.FilterState{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(paths) != 3 {
		t.Errorf("Export() wrote %d files, want 3", len(paths))
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	cfg := &model.AppConfig{
		Database: filepath.Join(dir, "emails.sqlite"),
		Backend:  model.BackendIMAP,
		Logging:  model.LoggingConfig{Level: "info", File: filepath.Join(dir, "app.log")},
	}

	a, err := Build(Options{Config: cfg, In: strings.NewReader(""), Out: &strings.Builder{}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	n, err := a.store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}
