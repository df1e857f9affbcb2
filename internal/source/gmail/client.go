// Package gmail reads a mailbox through the Gmail API.
package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/nhle/mailmirror/internal/source"
)

// Backend is the backend name used in errors and logs.
const Backend = "gmail"

const user = "me"

// Config locates the OAuth client secret and the cached token.
type Config struct {
	CredentialsFile string
	TokenFile       string
}

// Authorizer shows authURL to the user and returns the authorization code
// they paste back.
type Authorizer func(ctx context.Context, authURL string) (string, error)

// Dial builds an authorized Gmail service. When no cached token exists,
// authorize is asked for a code and the resulting token is saved.
func Dial(ctx context.Context, cfg Config, authorize Authorizer, logger *zap.Logger) (*Adapter, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret file: %w", err)
	}

	httpClient, err := oauthClient(ctx, oauthConfig, cfg.TokenFile, authorize, logger)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating Gmail service: %w", err)
	}
	return New(srv, logger), nil
}

func oauthClient(
	ctx context.Context,
	config *oauth2.Config,
	tokenFile string,
	authorize Authorizer,
	logger *zap.Logger,
) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err == nil {
		return config.Client(ctx, tok), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading token %s: %w", tokenFile, err)
	}
	if authorize == nil {
		return nil, &source.AuthError{
			Backend: Backend,
			Message: "no cached token and no way to authorize interactively",
		}
	}

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	code, err := authorize(ctx, authURL)
	if err != nil {
		return nil, fmt.Errorf("reading authorization code: %w", err)
	}
	tok, err = config.Exchange(ctx, code)
	if err != nil {
		return nil, &source.AuthError{
			Backend: Backend,
			Message: fmt.Sprintf("exchanging authorization code: %v", err),
		}
	}

	if err := saveToken(tokenFile, tok); err != nil {
		return nil, err
	}
	logger.Info("saved OAuth token", zap.String("path", tokenFile))

	return config.Client(ctx, tok), nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("saving OAuth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("saving OAuth token: %w", err)
	}
	return nil
}
