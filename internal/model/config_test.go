package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"EMAIL", "MAILMIRROR_ACCOUNT_EMAIL", "MAILMIRROR_DATABASE", "MAILMIRROR_BACKEND"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Database != "emails.sqlite" {
		t.Errorf("Database = %q, want emails.sqlite", cfg.Database)
	}
	if cfg.Backend != BackendIMAP {
		t.Errorf("Backend = %q, want imap", cfg.Backend)
	}
	if cfg.Account.Port != 993 || !cfg.Account.TLS {
		t.Errorf("Account = %+v, want port 993 over TLS", cfg.Account)
	}
	if cfg.Sync.RetryBackoff != 10*time.Second {
		t.Errorf("RetryBackoff = %v, want 10s", cfg.Sync.RetryBackoff)
	}
}

func TestLoadConfigReadsFileAndEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database: mirror.sqlite
account:
  email: file@example.com
  server: mail.example.com
archive_folders:
  - Projects
  - Receipts
sync:
  retry_backoff: 2s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("EMAIL", "env@example.com")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Database != "mirror.sqlite" {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.Account.Email != "env@example.com" {
		t.Errorf("Email = %q, want EMAIL to win", cfg.Account.Email)
	}
	if cfg.Account.Server != "mail.example.com" {
		t.Errorf("Server = %q", cfg.Account.Server)
	}
	if len(cfg.ArchiveFolders) != 2 || cfg.ArchiveFolders[0] != "Projects" {
		t.Errorf("ArchiveFolders = %v", cfg.ArchiveFolders)
	}
	if cfg.Sync.RetryBackoff != 2*time.Second {
		t.Errorf("RetryBackoff = %v, want 2s", cfg.Sync.RetryBackoff)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend: pop3\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() expected error for unknown backend")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.Account.Email = "bob@example.com"
	cfg.Account.Username = `CORP\bob`
	cfg.ArchiveFolders = []string{"Projects"}
	cfg.Sync.RetryBackoff = 3 * time.Second

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got.Account.Email != "bob@example.com" || got.Account.Username != `CORP\bob` {
		t.Errorf("Account = %+v", got.Account)
	}
	if len(got.ArchiveFolders) != 1 || got.ArchiveFolders[0] != "Projects" {
		t.Errorf("ArchiveFolders = %v", got.ArchiveFolders)
	}
	if got.Sync.RetryBackoff != 3*time.Second {
		t.Errorf("RetryBackoff = %v, want 3s", got.Sync.RetryBackoff)
	}
}

func TestFilterStateString(t *testing.T) {
	var f FilterState
	if got := f.String(); got != "none" {
		t.Errorf("String() = %q, want none", got)
	}

	from := time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	f = FilterState{Keyword: "report", From: &from, Folder: FolderInbox}
	want := `keyword="report" range=[2021-01-02 00:00:00, *] folder="Inbox"`
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	f.Reset()
	if !f.IsEmpty() {
		t.Error("IsEmpty() = false after Reset")
	}
}
