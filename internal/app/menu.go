package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/mailmirror/internal/export"
	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/source"
	"github.com/nhle/mailmirror/internal/store"
	"github.com/nhle/mailmirror/internal/ui"
)

// Menu actions, in display order.
const (
	ActionExit      = "Exit"
	ActionSettings  = "E-mail settings"
	ActionDateRange = "Update date range filter"
	ActionFolder    = "Update folder to filter"
	ActionKeyword   = "Update keyword filter"
	ActionReset     = "Reset filters"
	ActionShow      = "Show filtered e-mails"
	ActionSave      = "Save filtered e-mails to folder"
	ActionDownload  = "Download from account"
)

// errExit ends the menu loop.
var errExit = errors.New("exit")

// Actions returns the menu entries available right now. Download is only
// offered once an account can be reached.
func (a *App) Actions() []string {
	actions := []string{
		ActionExit,
		ActionSettings,
		ActionDateRange,
		ActionFolder,
		ActionKeyword,
		ActionReset,
		ActionShow,
		ActionSave,
	}
	if a.HasCredentials() {
		actions = append(actions, ActionDownload)
	}
	return actions
}

// Run shows the menu until the user exits. Failed actions are reported and
// the menu is shown again.
func (a *App) Run(ctx context.Context) error {
	for {
		st, err := a.Status(ctx)
		if err != nil {
			return err
		}

		choice, err := a.prompt.Menu(ctx, st, a.Actions())
		if ui.IsAborted(err) {
			return nil
		}
		if err != nil {
			return err
		}

		err = a.dispatch(ctx, choice)
		switch {
		case errors.Is(err, errExit):
			return nil
		case ui.IsAborted(err):
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			a.logger.Error("menu action failed", zap.String("action", choice), zap.Error(err))
			msg := fmt.Sprintf("Error: %v", err)
			if source.IsAuthError(err) {
				msg += "\nCheck the e-mail settings."
			}
			a.prompt.Message(msg)
		}
	}
}

func (a *App) dispatch(ctx context.Context, action string) error {
	switch action {
	case ActionExit:
		return errExit
	case ActionSettings:
		return a.editSettings(ctx)
	case ActionDateRange:
		from, to, err := a.prompt.DateRange(ctx, a.filter)
		if err != nil {
			return err
		}
		a.filter.From, a.filter.To = from, to
	case ActionFolder:
		folders, err := a.store.DistinctFolders(ctx)
		if err != nil {
			return err
		}
		folder, err := a.prompt.Folder(ctx, folders)
		if err != nil {
			return err
		}
		a.filter.Folder = folder
	case ActionKeyword:
		kw, err := a.prompt.Keyword(ctx, a.filter.Keyword)
		if err != nil {
			return err
		}
		a.filter.Keyword = kw
	case ActionReset:
		a.filter.Reset()
	case ActionShow:
		return a.browse(ctx)
	case ActionSave:
		return a.save(ctx)
	case ActionDownload:
		if !a.HasCredentials() {
			return errors.New("set the e-mail address and password first")
		}
		_, err := a.Sync(ctx, a.SyncOptions(false, 0))
		return err
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

// editSettings updates the account and persists it. The password only goes
// to the keyring, never to the config file, and is removed from it when the
// user declines to remember it.
func (a *App) editSettings(ctx context.Context) error {
	current := ui.Credentials{
		Email:    a.cfg.Account.Email,
		Password: a.accountPassword(),
		Server:   a.cfg.Account.Server,
		Username: a.cfg.Account.Username,
	}
	c, err := a.prompt.Credentials(ctx, current)
	if err != nil {
		return err
	}

	a.cfg.Account.Email = c.Email
	a.cfg.Account.Server = c.Server
	a.cfg.Account.Username = c.Username
	a.setPassword(c.Password)

	if c.Remember {
		if err := a.vault.SetPassword(c.Email, c.Password); err != nil {
			return err
		}
	} else if err := a.vault.DeletePassword(c.Email); err != nil {
		a.logger.Warn("forgetting stored password", zap.Error(err))
	}
	if a.configPath != "" {
		if err := model.SaveConfig(a.configPath, a.cfg); err != nil {
			return err
		}
	}

	a.logger.Info("account settings updated", zap.String("email", c.Email))
	return nil
}

// browse lets the user pick records from the filtered set and view them
// until they pick Exit or quit the viewer.
func (a *App) browse(ctx context.Context) error {
	msgs, err := a.filters.Evaluate(ctx, a.filter)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		a.prompt.Message("No e-mails match the current filter.")
		return nil
	}

	choices := export.PickList(msgs)
	for {
		id, ok, err := a.prompt.PickRecord(ctx, choices)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		msg, err := a.store.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			a.prompt.Message(fmt.Sprintf("E-mail %d no longer exists.", id))
			continue
		}
		if err != nil {
			return err
		}

		quit, err := a.prompt.ShowRecord(ctx, *msg)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// save previews the filtered set and writes it to the chosen directory.
func (a *App) save(ctx context.Context) error {
	msgs, err := a.filters.Evaluate(ctx, a.filter)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		a.prompt.Message("No e-mails match the current filter.")
		return nil
	}

	dir, ok, err := a.prompt.ExportDir(ctx, msgs, a.cfg.Export.Dir)
	if err != nil || !ok {
		return err
	}

	paths, err := a.exporter.Export(dir, msgs)
	if err != nil {
		return err
	}
	a.prompt.Message(fmt.Sprintf("Saved %d e-mails to %s.", len(paths), dir))
	return nil
}
