// Package app ties the store, the engines and the prompts together into the
// menu and the one-shot commands.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/mailmirror/internal/credential"
	"github.com/nhle/mailmirror/internal/export"
	"github.com/nhle/mailmirror/internal/filter"
	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/store"
	appsync "github.com/nhle/mailmirror/internal/sync"
	"github.com/nhle/mailmirror/internal/ui"
)

// UserPrompt is the interactive surface the menu drives.
type UserPrompt interface {
	appsync.Prompter

	Menu(ctx context.Context, st model.Status, actions []string) (string, error)
	Credentials(ctx context.Context, current ui.Credentials) (ui.Credentials, error)
	DateRange(ctx context.Context, current model.FilterState) (*time.Time, *time.Time, error)
	Folder(ctx context.Context, folders []string) (string, error)
	Keyword(ctx context.Context, current string) (string, error)
	PickRecord(ctx context.Context, choices []export.Choice) (int64, bool, error)
	ShowRecord(ctx context.Context, msg model.Message) (bool, error)
	ExportDir(ctx context.Context, msgs []model.Message, def string) (string, bool, error)
	AuthCode(ctx context.Context, authURL string) (string, error)
	Message(text string)
}

// App holds the session: configuration, password and the current filter.
type App struct {
	cfg        *model.AppConfig
	configPath string
	filter     model.FilterState

	// The password is resolved on first use so that commands which never
	// connect never open the keyring.
	passwordFlag     string
	password         string
	passwordResolved bool
	getenv           func(string) string

	store    store.Store
	filters  *filter.Engine
	syncer   *appsync.Engine
	exporter *export.Exporter
	vault    *credential.Vault
	prompt   UserPrompt
	sources  SourceFactory
	logger   *zap.Logger
}

// Config returns the effective configuration.
func (a *App) Config() *model.AppConfig {
	return a.cfg
}

// Filter returns the current session filter.
func (a *App) Filter() model.FilterState {
	return a.filter
}

// SetFilter replaces the session filter.
func (a *App) SetFilter(state model.FilterState) {
	a.filter = state
}

// HasCredentials reports whether a download can be attempted.
func (a *App) HasCredentials() bool {
	if a.cfg.Backend == model.BackendGmail {
		return true
	}
	return a.cfg.Account.Email != "" && a.accountPassword() != ""
}

// accountPassword resolves the password from the flag, the environment and
// the keyring, once.
func (a *App) accountPassword() string {
	if a.passwordResolved {
		return a.password
	}

	password, err := credential.ResolvePassword(a.passwordFlag, a.getenv, a.vault, a.cfg.Account.Email)
	if err != nil {
		a.logger.Warn("reading stored password", zap.Error(err))
	}
	a.setPassword(password)
	return password
}

func (a *App) setPassword(password string) {
	a.password = password
	a.passwordResolved = true
}

// Status summarizes the cache and the current filter.
func (a *App) Status(ctx context.Context) (model.Status, error) {
	count, err := a.store.Count(ctx)
	if err != nil {
		return model.Status{}, err
	}
	oldest, newest, err := a.store.DateExtent(ctx)
	if err != nil {
		return model.Status{}, err
	}
	filtered, err := a.filters.Count(ctx, a.filter)
	if err != nil {
		return model.Status{}, err
	}

	return model.Status{
		Database: a.cfg.Database,
		Account:  a.cfg.Account.Email,
		Count:    count,
		Oldest:   oldest,
		Newest:   newest,
		Filtered: filtered,
		Filter:   a.filter,
	}, nil
}

// Search returns the cached messages matching state.
func (a *App) Search(ctx context.Context, state model.FilterState) ([]model.Message, error) {
	return a.filters.Evaluate(ctx, state)
}

// Export writes the messages matching state to dir and returns the file
// paths.
func (a *App) Export(ctx context.Context, dir string, state model.FilterState) ([]string, error) {
	msgs, err := a.filters.Evaluate(ctx, state)
	if err != nil {
		return nil, err
	}
	return a.exporter.Export(dir, msgs)
}

// SyncOptions builds run options from the configuration and the mode flags.
func (a *App) SyncOptions(downloadNow bool, purgeOlderThanDays int) appsync.Options {
	return appsync.Options{
		ArchiveFolders:     a.cfg.ArchiveFolders,
		DownloadNow:        downloadNow,
		PurgeOlderThanDays: purgeOlderThanDays,
		RetryBackoff:       a.cfg.Sync.RetryBackoff,
	}
}

// Sync connects to the account and runs the sync engine with opts.
func (a *App) Sync(ctx context.Context, opts appsync.Options) (*appsync.Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	src, err := a.sources(ctx, a.cfg, a.accountPassword())
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", a.cfg.Backend, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			a.logger.Warn("closing mail source", zap.Error(cerr))
		}
	}()

	return a.syncer.Run(ctx, src, opts)
}

// Close releases the store and flushes the log.
func (a *App) Close() error {
	err := a.store.Close()
	_ = a.logger.Sync()
	return err
}
