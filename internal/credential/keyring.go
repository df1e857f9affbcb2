// Package credential stores the account password in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "mailmirror"

// PasswordEnv is the environment variable consulted before the keyring.
const PasswordEnv = "PASSWORD"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailmirror/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailmirror-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// passwordKey is the keyring item holding the password for email.
func passwordKey(email string) string {
	return "password:" + email
}

// Vault reads and writes account passwords. The keyring is opened on
// first use so that commands which never need a password never touch it.
type Vault struct {
	open func() (keyring.Keyring, error)
	ring keyring.Keyring
}

// NewVault returns a vault over the system keyring.
func NewVault() *Vault {
	return &Vault{open: openKeyring}
}

// NewVaultWithKeyring returns a vault over an already open keyring.
func NewVaultWithKeyring(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

func (v *Vault) keyring() (keyring.Keyring, error) {
	if v.ring != nil {
		return v.ring, nil
	}
	ring, err := v.open()
	if err != nil {
		return nil, err
	}
	v.ring = ring
	return ring, nil
}

// Password returns the stored password for email, or "" when none is
// stored.
func (v *Vault) Password(email string) (string, error) {
	ring, err := v.keyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(passwordKey(email))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting password for %q: %w", email, err)
	}

	return string(item.Data), nil
}

// SetPassword stores the password for email.
func (v *Vault) SetPassword(email, password string) error {
	ring, err := v.keyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   passwordKey(email),
		Data:  []byte(password),
		Label: "mailmirror " + email,
	})
	if err != nil {
		return fmt.Errorf("setting password for %q: %w", email, err)
	}

	return nil
}

// DeletePassword removes the stored password for email.
func (v *Vault) DeletePassword(email string) error {
	ring, err := v.keyring()
	if err != nil {
		return err
	}

	err = ring.Remove(passwordKey(email))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting password for %q: %w", email, err)
	}

	return nil
}

// ResolvePassword picks the password for email from, in order, the flag
// value, the PASSWORD environment variable and the vault. It returns ""
// when none of them has one.
func ResolvePassword(flag string, getenv func(string) string, v *Vault, email string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if pw := getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	if v == nil || email == "" {
		return "", nil
	}
	return v.Password(email)
}
