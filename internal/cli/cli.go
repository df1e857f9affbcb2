// Package cli defines the command line surface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/nhle/mailmirror/internal/app"
	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/source"
	appsync "github.com/nhle/mailmirror/internal/sync"
)

type Globals struct {
	Config         string   `help:"Path to config file" type:"path"`
	Database       string   `help:"SQLite database file"`
	Backend        string   `help:"Mail backend (imap or gmail)"`
	Email          string   `help:"Account e-mail address"`
	Password       string   `help:"Account password (or set PASSWORD)"`
	Server         string   `help:"IMAP server; autodiscovered when empty" name:"server"`
	Username       string   `help:"Login name when it differs from the e-mail address"`
	ArchiveFolders []string `help:"Extra folders to mirror, comma separated" name:"archive-folders" sep:","`
	DownloadNow    bool     `help:"Download without asking at the first stored e-mail, then exit" name:"download-now"`
	PurgeOlderThan int      `help:"Delete remote e-mails older than N days, then exit" name:"purge-older-than" placeholder:"N"`
	Verbose        bool     `help:"Debug logging" short:"v"`
	Accessible     bool     `help:"Line based prompts instead of the full screen UI" env:"ACCESSIBLE"`
}

// Validate rejects combinations that cannot run together.
func (g *Globals) Validate() error {
	if g.DownloadNow && g.PurgeOlderThan > 0 {
		return appsync.ErrConflictingModes
	}
	if g.PurgeOlderThan < 0 {
		return fmt.Errorf("--purge-older-than must not be negative")
	}
	switch g.Backend {
	case "", model.BackendIMAP, model.BackendGmail:
	default:
		return fmt.Errorf("unknown backend %q", g.Backend)
	}
	return nil
}

// OneShot reports whether a mode flag asks for an immediate sync.
func (g *Globals) OneShot() bool {
	return g.DownloadNow || g.PurgeOlderThan > 0
}

type CLI struct {
	Globals

	Menu   MenuCmd   `cmd:"" default:"1" help:"Interactive menu (default)"`
	Sync   SyncCmd   `cmd:"" help:"Download from, or purge, the account"`
	Status StatusCmd `cmd:"" help:"Show the cache summary"`
	Search SearchCmd `cmd:"" help:"List cached e-mails matching a filter"`
	Export ExportCmd `cmd:"" help:"Save cached e-mails matching a filter as HTML files"`
}

// Context is passed to every command.
type Context struct {
	App     *app.App
	Globals *Globals
	Out     io.Writer
}

// NewContext loads the configuration, applies the flags and builds the
// application.
func NewContext(globals *Globals) (*Context, error) {
	path := globals.Config
	if path == "" {
		path = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, globals)

	a, err := app.Build(app.Options{
		Config:       cfg,
		ConfigPath:   path,
		PasswordFlag: globals.Password,
		Verbose:      globals.Verbose,
		Accessible:   globals.Accessible || !term.IsTerminal(int(os.Stdin.Fd())),
		In:           os.Stdin,
		Out:          os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	return &Context{App: a, Globals: globals, Out: os.Stdout}, nil
}

// Close releases the application.
func (c *Context) Close() error {
	return c.App.Close()
}

// applyFlags overrides configuration values with the flags that were set.
func applyFlags(cfg *model.AppConfig, g *Globals) {
	if g.Database != "" {
		cfg.Database = g.Database
	}
	if g.Backend != "" {
		cfg.Backend = g.Backend
	}
	if g.Email != "" {
		cfg.Account.Email = g.Email
	}
	if g.Server != "" {
		cfg.Account.Server = g.Server
	}
	if g.Username != "" {
		cfg.Account.Username = g.Username
	}
	if len(g.ArchiveFolders) > 0 {
		folders := make([]string, 0, len(g.ArchiveFolders))
		for _, f := range g.ArchiveFolders {
			if f = strings.TrimSpace(f); f != "" {
				folders = append(folders, f)
			}
		}
		cfg.ArchiveFolders = folders
	}
}

// runSync runs one sync with the mode flags.
func runSync(ctx context.Context, c *Context) error {
	opts := c.App.SyncOptions(c.Globals.DownloadNow, c.Globals.PurgeOlderThan)
	_, err := c.App.Sync(ctx, opts)
	return syncError(err)
}

// syncError adds a hint to authentication failures.
func syncError(err error) error {
	if source.IsAuthError(err) {
		return fmt.Errorf("%w; check the e-mail address and password", err)
	}
	return err
}
