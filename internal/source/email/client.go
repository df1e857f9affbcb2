// Package email reads a mailbox over IMAP.
package email

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/nhle/mailmirror/internal/source"
)

// Backend is the backend name used in errors and logs.
const Backend = "imap"

const defaultPort = 993

// Config holds the connection settings for an IMAP account.
type Config struct {
	Email    string
	Password string

	// Server is an explicit host. When empty the host is discovered from
	// the email domain.
	Server string
	Port   int

	// Username defaults to Email.
	Username string

	// TLS selects implicit TLS; otherwise STARTTLS is used.
	TLS bool
}

func (c Config) username() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Email
}

// lookupSRV matches net.Resolver.LookupSRV.
type lookupSRV func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)

// discover resolves the IMAP endpoint for cfg. An explicit server wins;
// otherwise the _imaps._tcp SRV record of the email domain is used, falling
// back to imap.<domain>.
func discover(ctx context.Context, cfg Config, lookup lookupSRV) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	if cfg.Server != "" {
		return net.JoinHostPort(cfg.Server, strconv.Itoa(port)), nil
	}

	at := strings.LastIndex(cfg.Email, "@")
	if at < 0 || at == len(cfg.Email)-1 {
		return "", fmt.Errorf("cannot discover server for %q: no domain", cfg.Email)
	}
	domain := cfg.Email[at+1:]

	if lookup != nil {
		_, records, err := lookup(ctx, "imaps", "tcp", domain)
		if err == nil {
			for _, r := range records {
				target := strings.TrimSuffix(r.Target, ".")
				// A target of "." means the service is not offered.
				if target == "" {
					continue
				}
				return net.JoinHostPort(target, strconv.Itoa(int(r.Port))), nil
			}
		}
	}

	return net.JoinHostPort("imap."+domain, strconv.Itoa(port)), nil
}

// connect dials the server and authenticates. The caller owns the
// returned client.
func connect(ctx context.Context, cfg Config, logger *zap.Logger) (*imapclient.Client, error) {
	addr, err := discover(ctx, cfg, net.DefaultResolver.LookupSRV)
	if err != nil {
		return nil, err
	}
	logger.Debug("connecting to IMAP server",
		zap.String("addr", addr),
		zap.Bool("tls", cfg.TLS),
	)

	var client *imapclient.Client
	if cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(cfg.username(), cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &source.AuthError{
			Backend: Backend,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				cfg.username(), err,
			),
		}
	}

	return client, nil
}
