package crud

import "sync"

var _ Store = &BackingStore{}

// BackingStore wraps another store that may have Connect/Close methods that
// need to be called.
//   - Connect is called before a method when the connection is closed.
//   - Close is called after each method when AutoClose is true (default).
//
// A BackingStore may be shared by concurrent lookups.
type BackingStore struct {
	// AutoClose specifies if the connection should be automatically
	// closed when done accessing the backing store.
	AutoClose bool

	mu sync.Mutex

	// opened specifies if the backing store's connect has been called
	// and has not been closed yet.
	opened bool

	connect func() error
	close   func() error

	backingStore Store
}

// NewBackingStore wraps store, picking up its Connect and Close methods
// when it has them.
func NewBackingStore(store Store) *BackingStore {
	backingStore := BackingStore{
		AutoClose:    true,
		backingStore: store,
	}

	if connectable, ok := store.(HasConnect); ok {
		backingStore.connect = connectable.Connect
	}

	if closable, ok := store.(HasClose); ok {
		backingStore.close = closable.Close
	}

	return &backingStore
}

// Connect opens the underlying store if it is not already open.
func (s *BackingStore) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked()
}

func (s *BackingStore) connectLocked() error {
	if s.opened || s.connect == nil {
		return nil
	}
	if err := s.connect(); err != nil {
		return err
	}
	s.opened = true
	return nil
}

// Close closes the underlying store.
func (s *BackingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *BackingStore) closeLocked() error {
	if s.close == nil {
		return nil
	}
	s.opened = false
	return s.close()
}

// with runs fn against the wrapped store, connecting first when the
// connection isn't already being managed by the caller.
func (s *BackingStore) with(fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened && s.connect != nil {
		if err := s.connectLocked(); err != nil {
			return err
		}
		if s.AutoClose {
			defer s.closeLocked()
		}
	}
	return fn(s.backingStore)
}

func (s *BackingStore) Count(itemType string, group string) (int, error) {
	var count int
	err := s.with(func(store Store) error {
		var err error
		count, err = store.Count(itemType, group)
		return err
	})
	return count, err
}

func (s *BackingStore) List(itemType string, group string) ([]string, error) {
	var names []string
	err := s.with(func(store Store) error {
		var err error
		names, err = store.List(itemType, group)
		return err
	})
	return names, err
}

func (s *BackingStore) Save(itemType string, group string, name string, data []byte) error {
	return s.with(func(store Store) error {
		return store.Save(itemType, group, name, data)
	})
}

func (s *BackingStore) Read(itemType string, group string, name string) ([]byte, error) {
	var data []byte
	err := s.with(func(store Store) error {
		var err error
		data, err = store.Read(itemType, group, name)
		return err
	})
	return data, err
}

// ReadAll retrieves all the items of the type and group, in List order,
// using a single connection.
func (s *BackingStore) ReadAll(itemType string, group string) ([][]byte, error) {
	results := make([][]byte, 0)
	err := s.with(func(store Store) error {
		list, err := store.List(itemType, group)
		if err != nil {
			return err
		}
		for _, name := range list {
			result, err := store.Read(itemType, group, name)
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		return nil
	})
	return results, err
}

func (s *BackingStore) Delete(itemType string, group string, name string) error {
	return s.with(func(store Store) error {
		return store.Delete(itemType, group, name)
	})
}
