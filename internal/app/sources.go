package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/source"
	"github.com/nhle/mailmirror/internal/source/email"
	"github.com/nhle/mailmirror/internal/source/gmail"
)

// SourceFactory connects to the configured mailbox.
type SourceFactory func(ctx context.Context, cfg *model.AppConfig, password string) (source.MailSource, error)

// DialSource returns the factory for the real backends. authorize is used
// by the Gmail backend when no cached token exists.
func DialSource(authorize gmail.Authorizer, logger *zap.Logger) SourceFactory {
	return func(ctx context.Context, cfg *model.AppConfig, password string) (source.MailSource, error) {
		switch cfg.Backend {
		case model.BackendGmail:
			src, err := gmail.Dial(ctx, gmail.Config{
				CredentialsFile: cfg.Gmail.CredentialsFile,
				TokenFile:       cfg.Gmail.TokenFile,
			}, authorize, logger)
			if err != nil {
				return nil, err
			}
			return src, nil

		case model.BackendIMAP, "":
			if cfg.Account.Email == "" || password == "" {
				return nil, &source.AuthError{
					Backend: email.Backend,
					Message: "e-mail address and password are required",
				}
			}
			src, err := email.Dial(ctx, email.Config{
				Email:    cfg.Account.Email,
				Password: password,
				Server:   cfg.Account.Server,
				Port:     cfg.Account.Port,
				Username: cfg.Account.Username,
				TLS:      cfg.Account.TLS,
			}, logger)
			if err != nil {
				return nil, err
			}
			return src, nil

		default:
			return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
		}
	}
}
