package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/nhle/mailmirror/internal/credential"
	"github.com/nhle/mailmirror/internal/export"
	"github.com/nhle/mailmirror/internal/filter"
	"github.com/nhle/mailmirror/internal/logging"
	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/store"
	appsync "github.com/nhle/mailmirror/internal/sync"
	"github.com/nhle/mailmirror/internal/ui"
)

// Options are the inputs the container is built from.
type Options struct {
	Config     *model.AppConfig
	ConfigPath string

	// PasswordFlag is the --password value, if any.
	PasswordFlag string

	Verbose    bool
	Accessible bool
	In         io.Reader
	Out        io.Writer
}

// deps are the constructed components New needs.
type deps struct {
	dig.In

	Options  Options
	Store    store.Store
	Filters  *filter.Engine
	Syncer   *appsync.Engine
	Exporter *export.Exporter
	Vault    *credential.Vault
	Prompt   UserPrompt
	Sources  SourceFactory
	Logger   *zap.Logger
}

// BuildContainer registers every component of the application.
func BuildContainer(opts Options) (*dig.Container, error) {
	c := dig.New()

	providers := []any{
		func() Options { return opts },
		func(o Options) *model.AppConfig { return o.Config },
		func(cfg *model.AppConfig, o Options) (*zap.Logger, error) {
			return logging.New(cfg.Logging, o.Verbose)
		},
		func(cfg *model.AppConfig) (store.Store, error) {
			s, err := store.Open(cfg.Database)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		filter.NewEngine,
		func() afero.Fs { return afero.NewOsFs() },
		export.NewExporter,
		credential.NewVault,
		func(o Options) UserPrompt {
			return ui.NewPrompt(o.In, o.Out, o.Accessible)
		},
		func(o Options) appsync.Reporter { return ui.NewProgress(o.Out) },
		func(s store.Store, p UserPrompt, r appsync.Reporter, logger *zap.Logger) *appsync.Engine {
			return appsync.NewEngine(s, p, r, logger)
		},
		func(p UserPrompt, logger *zap.Logger) SourceFactory {
			return DialSource(p.AuthCode, logger)
		},
		newApp,
	}

	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, fmt.Errorf("registering component: %w", err)
		}
	}
	return c, nil
}

// Build constructs the application from opts.
func Build(opts Options) (*App, error) {
	c, err := BuildContainer(opts)
	if err != nil {
		return nil, err
	}

	var a *App
	if err := c.Invoke(func(built *App) { a = built }); err != nil {
		return nil, fmt.Errorf("building application: %w", err)
	}
	return a, nil
}

func newApp(d deps) *App {
	return &App{
		cfg:          d.Options.Config,
		configPath:   d.Options.ConfigPath,
		passwordFlag: d.Options.PasswordFlag,
		getenv:       os.Getenv,
		store:        d.Store,
		filters:      d.Filters,
		syncer:       d.Syncer,
		exporter:     d.Exporter,
		vault:        d.Vault,
		prompt:       d.Prompt,
		sources:      d.Sources,
		logger:       d.Logger,
	}
}
