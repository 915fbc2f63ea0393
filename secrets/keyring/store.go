// Package keyring implements a secrets.Store backed by the operating
// system's keyring through github.com/99designs/keyring.
//
// The access group is used as the keyring service name, so entries written by
// other applications are not visible. Within it, an entry is keyed by
// "<service>|<account>" and must also carry the requested label.
package keyring

import (
	"context"
	"fmt"
	"sync"

	"github.com/99designs/keyring"

	"github.com/cnabio/credbroker/secrets"
)

var _ secrets.Store = &Store{}

// Opener opens the keyring for one access group.
type Opener func(accessGroup string) (keyring.Keyring, error)

// Config selects and configures the keyring backends.
type Config struct {
	// Backends restricts which keyring implementations may be used, in
	// order of preference, e.g. "keychain", "secret-service", "file".
	// Empty allows all of them.
	Backends []string
	// FileDir is the directory used by the encrypted file backend.
	FileDir string
	// FilePassword returns the password of the encrypted file backend. It is
	// only called when that backend is opened.
	FilePassword func() (string, error)
}

// Store reads entries from the OS keyring.
type Store struct {
	open Opener

	mu    sync.Mutex
	rings map[string]keyring.Keyring
}

// NewStore creates a Store that opens keyrings with cfg.
func NewStore(cfg Config) *Store {
	return NewStoreWithOpener(cfg.Opener())
}

// NewStoreWithOpener creates a Store that uses open to reach the keyring.
func NewStoreWithOpener(open Opener) *Store {
	return &Store{open: open, rings: map[string]keyring.Keyring{}}
}

// Opener returns an Opener honouring cfg.
func (cfg Config) Opener() Opener {
	backends := make([]keyring.BackendType, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		backends = append(backends, keyring.BackendType(b))
	}
	password := keyring.FixedStringPrompt("")
	if cfg.FilePassword != nil {
		password = func(string) (string, error) { return cfg.FilePassword() }
	}
	return func(accessGroup string) (keyring.Keyring, error) {
		return keyring.Open(keyring.Config{
			ServiceName:     accessGroup,
			AllowedBackends: backends,
			// Read-only use; never prompt to trust or sync on our behalf.
			KeychainTrustApplication: false,
			KeychainSynchronizable:   false,
			FileDir:                  cfg.FileDir,
			FilePasswordFunc:         password,
		})
	}
}

// Backends lists the keyring implementations available on this platform.
func Backends() []string {
	available := keyring.AvailableBackends()
	names := make([]string, 0, len(available))
	for _, b := range available {
		names = append(names, string(b))
	}
	return names
}

// MakeKey returns the keyring key for service and account.
func MakeKey(service, account string) string {
	return fmt.Sprintf("%s|%s", service, account)
}

func (s *Store) ring(accessGroup string) (keyring.Keyring, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rings[accessGroup]; ok {
		return r, nil
	}
	r, err := s.open(accessGroup)
	if err != nil {
		return nil, err
	}
	s.rings[accessGroup] = r
	return r, nil
}

// Lookup implements secrets.Store.
func (s *Store) Lookup(ctx context.Context, q secrets.Query) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := s.ring(q.AccessGroup)
	if err != nil {
		return nil, secrets.NewStatusError(secrets.StatusNotAvailable, err)
	}
	item, err := r.Get(MakeKey(q.Service, q.Account))
	if err != nil {
		if err == keyring.ErrKeyNotFound {
			return nil, secrets.ErrNotFound
		}
		return nil, secrets.NewStatusError(secrets.StatusInternalComponent, err)
	}
	if item.Label != q.Label {
		return nil, secrets.ErrNotFound
	}
	switch q.Synchronizable {
	case secrets.SynchronizableYes:
		if item.KeychainNotSynchronizable {
			return nil, secrets.ErrNotFound
		}
	case secrets.SynchronizableNo:
		if !item.KeychainNotSynchronizable {
			return nil, secrets.ErrNotFound
		}
	}
	return item.Data, nil
}
