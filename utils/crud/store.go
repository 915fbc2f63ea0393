package crud

import "github.com/pkg/errors"

// ErrRecordDoesNotExist represents when an item is not present in a store.
var ErrRecordDoesNotExist = errors.New("record does not exist")

// Store is a simplified interface to a key-blob store supporting CRUD operations.
//
// Items are addressed by an item type, a group within that type and a name
// within the group. The secret file backend uses the access group as the item
// type and the service as the group.
type Store interface {
	// Count the number of items of the type and group.
	Count(itemType string, group string) (int, error)

	// List the names of the items of the type and group, in a stable order.
	List(itemType string, group string) ([]string, error)

	// Save an item's data using the specified type, group and name.
	Save(itemType string, group string, name string, data []byte) error

	// Read the data for a named item.
	Read(itemType string, group string, name string) ([]byte, error)

	// Delete a named item.
	Delete(itemType string, group string, name string) error
}

// HasConnect indicates that a struct must be initialized using the Connect
// method before the interface's methods are called.
type HasConnect interface {
	Connect() error
}

// HasClose indicates that a struct must be cleaned up using the Close
// method before the interface's methods are called.
type HasClose interface {
	Close() error
}
