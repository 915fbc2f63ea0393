package keyring

import (
	"context"
	"testing"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnabio/credbroker/secrets"
)

const testGroup = "84RRJLK9H4.io.cloudeng.KeychainHelper"

func newTestStore(t *testing.T, items ...keyring.Item) (*Store, *int) {
	t.Helper()
	opens := 0
	ring := keyring.NewArrayKeyring(items)
	s := NewStoreWithOpener(func(accessGroup string) (keyring.Keyring, error) {
		opens++
		if accessGroup != testGroup {
			return keyring.NewArrayKeyring(nil), nil
		}
		return ring, nil
	})
	return s, &opens
}

func TestStore_Lookup(t *testing.T) {
	s, opens := newTestStore(t,
		keyring.Item{Key: MakeKey("mail", "alice"), Label: "work", Data: []byte("secret123")},
		keyring.Item{Key: MakeKey("chat", "alice"), Label: "work", Data: []byte("chatty"), KeychainNotSynchronizable: true},
	)
	ctx := context.Background()

	for _, tt := range []struct {
		name     string
		query    secrets.Query
		expect   string
		notFound bool
	}{
		{name: "match", query: secrets.Query{AccessGroup: testGroup, Account: "alice", Service: "mail", Label: "work"}, expect: "secret123"},
		{name: "label_mismatch", query: secrets.Query{AccessGroup: testGroup, Account: "alice", Service: "mail", Label: "home"}, notFound: true},
		{name: "unknown_account", query: secrets.Query{AccessGroup: testGroup, Account: "bob", Service: "mail", Label: "work"}, notFound: true},
		{name: "other_group", query: secrets.Query{AccessGroup: "elsewhere", Account: "alice", Service: "mail", Label: "work"}, notFound: true},
		{name: "sync_any", query: secrets.Query{AccessGroup: testGroup, Account: "alice", Service: "chat", Label: "work"}, expect: "chatty"},
		{name: "sync_yes_filters", query: secrets.Query{AccessGroup: testGroup, Account: "alice", Service: "chat", Label: "work", Synchronizable: secrets.SynchronizableYes}, notFound: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			data, err := s.Lookup(ctx, tt.query)
			if tt.notFound {
				assert.True(t, errors.Is(err, secrets.ErrNotFound), "expected ErrNotFound, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, string(data))
		})
	}
	assert.Equal(t, 2, *opens, "each access group should be opened once")
}

func TestStore_OpenFailure(t *testing.T) {
	s := NewStoreWithOpener(func(string) (keyring.Keyring, error) {
		return nil, errors.New("no keyring backend")
	})
	_, err := s.Lookup(context.Background(), secrets.Query{AccessGroup: testGroup, Account: "alice", Service: "mail", Label: "work"})
	require.Error(t, err)
	assert.Equal(t, secrets.StatusNotAvailable, secrets.StatusOf(err))
	assert.Contains(t, secrets.Describe(err), "no keyring backend")
}

func TestStore_CanceledContext(t *testing.T) {
	s, opens := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Lookup(ctx, secrets.Query{AccessGroup: testGroup})
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 0, *opens)
}

func TestMakeKey(t *testing.T) {
	assert.Equal(t, "mail|alice", MakeKey("mail", "alice"))
}
