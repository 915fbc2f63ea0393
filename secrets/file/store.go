package file

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/cnabio/credbroker/secrets"
	"github.com/cnabio/credbroker/utils/crud"
)

// ItemExtension is the file extension used for entries on disk.
const ItemExtension = ".yaml"

var _ secrets.Store = &Store{}

// Entry is the stored representation of a secret.
type Entry struct {
	Account string `yaml:"account"`
	Service string `yaml:"service"`
	Label   string `yaml:"label"`
	// Synchronizable marks entries that are replicated to other devices.
	Synchronizable bool `yaml:"synchronizable,omitempty"`
	// Data is the base64 encoded payload.
	Data string `yaml:"data"`
}

// NewEntry creates an entry holding payload.
func NewEntry(account, service, label string, payload []byte) Entry {
	return Entry{
		Account: account,
		Service: service,
		Label:   label,
		Data:    base64.StdEncoding.EncodeToString(payload),
	}
}

// Payload decodes the entry's data.
func (e Entry) Payload() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Data)
}

func (e Entry) matches(q secrets.Query) bool {
	if e.Account != q.Account || e.Service != q.Service || e.Label != q.Label {
		return false
	}
	switch q.Synchronizable {
	case secrets.SynchronizableYes:
		return e.Synchronizable
	case secrets.SynchronizableNo:
		return !e.Synchronizable
	}
	return true
}

// Store looks entries up in a crud.Store.
type Store struct {
	backingStore *crud.BackingStore
}

// NewStore creates a secret store using the specified backing key-blob store.
func NewStore(store crud.Store) *Store {
	return &Store{backingStore: crud.NewBackingStore(store)}
}

// NewFileSystemStore creates a secret store rooted at dir.
func NewFileSystemStore(dir string) *Store {
	return NewStore(crud.NewFileSystemStore(dir, map[string]string{"*": ItemExtension}))
}

// Lookup implements secrets.Store. The entries of the queried service are
// read on a single connection and the first match wins, so MatchLimit has no
// further effect here.
func (s *Store) Lookup(ctx context.Context, q secrets.Query) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.backingStore.ReadAll(q.AccessGroup, q.Service)
	if err != nil {
		return nil, secrets.NewStatusError(secrets.StatusNotAvailable, err)
	}

	for i, data := range docs {
		var entry Entry
		if err := yaml.Unmarshal(data, &entry); err != nil {
			return nil, secrets.NewStatusError(secrets.StatusDecode, errors.Wrapf(err, "entry %d of %s", i, q.Service))
		}
		if !entry.matches(q) {
			continue
		}
		payload, err := entry.Payload()
		if err != nil {
			return nil, secrets.NewStatusError(secrets.StatusDecode, errors.Wrapf(err, "entry %d of %s", i, q.Service))
		}
		return payload, nil
	}
	return nil, secrets.ErrNotFound
}

// Save writes entry under accessGroup, replacing any entry with the same
// account, service and label.
func (s *Store) Save(accessGroup string, entry Entry) error {
	data, err := yaml.Marshal(entry)
	if err != nil {
		return err
	}
	return s.backingStore.Save(accessGroup, entry.Service, entryID(entry), data)
}

func entryID(e Entry) string {
	sum := sha256.Sum256([]byte(e.Account + "\x00" + e.Label))
	return fmt.Sprintf("%x", sum[:8])
}
