package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted for AppConfig.Backend.
const (
	BackendIMAP  = "imap"
	BackendGmail = "gmail"
)

// AccountConfig identifies the remote mailbox.
type AccountConfig struct {
	// Email is the account address; it is also the default login name.
	Email string `mapstructure:"email" yaml:"email"`

	// Server is an explicit IMAP host. Setting it disables autodiscovery.
	Server string `mapstructure:"server" yaml:"server"`

	Port int `mapstructure:"port" yaml:"port"`

	// Username overrides the login name (e.g. DOMAIN\user).
	Username string `mapstructure:"username" yaml:"username"`

	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	// RetryBackoff is the pause after a transient fetch failure.
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// GmailConfig locates the OAuth client secret and cached token.
type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	TokenFile       string `mapstructure:"token_file" yaml:"token_file"`
}

// LoggingConfig controls the application log.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	File   string `mapstructure:"file" yaml:"file"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database       string        `mapstructure:"database" yaml:"database"`
	Backend        string        `mapstructure:"backend" yaml:"backend"`
	Account        AccountConfig `mapstructure:"account" yaml:"account"`
	ArchiveFolders []string      `mapstructure:"archive_folders" yaml:"archive_folders"`
	Sync           SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Export         ExportConfig  `mapstructure:"export" yaml:"export"`
	Gmail          GmailConfig   `mapstructure:"gmail" yaml:"gmail"`
	Logging        LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailmirror/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailmirror", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: "emails.sqlite",
		Backend:  BackendIMAP,
		Account: AccountConfig{
			Port: 993,
			TLS:  true,
		},
		ArchiveFolders: []string{},
		Sync: SyncConfig{
			RetryBackoff: 10 * time.Second,
		},
		Export: ExportConfig{
			Dir: "./out",
		},
		Gmail: GmailConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			File:   "app.log",
			Format: "console",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file is not an error: defaults and environment variables
// (MAILMIRROR_*, plus EMAIL for the account address) still apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values and so
	// AutomaticEnv knows every key.
	def := defaultAppConfig()
	v.SetDefault("database", def.Database)
	v.SetDefault("backend", def.Backend)
	v.SetDefault("account.email", "")
	v.SetDefault("account.server", "")
	v.SetDefault("account.port", def.Account.Port)
	v.SetDefault("account.username", "")
	v.SetDefault("account.tls", def.Account.TLS)
	v.SetDefault("archive_folders", def.ArchiveFolders)
	v.SetDefault("sync.retry_backoff", def.Sync.RetryBackoff)
	v.SetDefault("export.dir", def.Export.Dir)
	v.SetDefault("gmail.credentials_file", def.Gmail.CredentialsFile)
	v.SetDefault("gmail.token_file", def.Gmail.TokenFile)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.format", def.Logging.Format)

	v.SetEnvPrefix("MAILMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("account.email", "MAILMIRROR_ACCOUNT_EMAIL", "EMAIL"); err != nil {
		return nil, fmt.Errorf("binding EMAIL: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Sync.RetryBackoff < 0 {
		return nil, fmt.Errorf(
			"parsing config %s: sync.retry_backoff must not be negative", path,
		)
	}
	switch cfg.Backend {
	case BackendIMAP, BackendGmail:
	default:
		return nil, fmt.Errorf(
			"parsing config %s: unknown backend %q", path, cfg.Backend,
		)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("backend", cfg.Backend)
	v.Set("account", cfg.Account)
	v.Set("archive_folders", cfg.ArchiveFolders)
	v.Set("sync.retry_backoff", cfg.Sync.RetryBackoff.String())
	v.Set("export", cfg.Export)
	v.Set("gmail", cfg.Gmail)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
