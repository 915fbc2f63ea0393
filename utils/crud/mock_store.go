package crud

import (
	"path"
	"sort"
	"sync"
)

// The main point of these assertions is to catch any case where the interface
// changes. But we also provide a mock for testing.
var (
	_ Store      = &MockStore{}
	_ HasConnect = &MockStore{}
	_ HasClose   = &MockStore{}
)

// MockStore is an in-memory store with optional mocked functionality that is
// intended for use with unit testing. It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// data maps itemType/group/name to the stored bytes.
	data map[string][]byte

	connects int
	closes   int
	reads    int

	// ReadMock replaces the default Read implementation with the specified function.
	// This allows for simulating failures.
	ReadMock func(itemType string, group string, name string) ([]byte, error)

	// ListMock replaces the default List implementation with the specified function.
	ListMock func(itemType string, group string) ([]string, error)
}

func NewMockStore() *MockStore {
	return &MockStore{data: map[string][]byte{}}
}

func (s *MockStore) key(itemType, group, name string) string {
	return path.Join(itemType, group, name)
}

func (s *MockStore) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	return nil
}

func (s *MockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *MockStore) Count(itemType string, group string) (int, error) {
	names, err := s.List(itemType, group)
	return len(names), err
}

func (s *MockStore) List(itemType string, group string) ([]string, error) {
	if s.ListMock != nil {
		return s.ListMock(itemType, group)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := s.key(itemType, group, "") + "/"
	names := []string{}
	for k := range s.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			rest := k[len(prefix):]
			if path.Base(rest) == rest {
				names = append(names, rest)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MockStore) Save(itemType string, group string, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.key(itemType, group, name)] = append([]byte(nil), data...)
	return nil
}

func (s *MockStore) Read(itemType string, group string, name string) ([]byte, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	if s.ReadMock != nil {
		return s.ReadMock(itemType, group, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.data[s.key(itemType, group, name)]; ok {
		return data, nil
	}
	return nil, ErrRecordDoesNotExist
}

func (s *MockStore) Delete(itemType string, group string, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(itemType, group, name)
	if _, ok := s.data[k]; !ok {
		return ErrRecordDoesNotExist
	}
	delete(s.data, k)
	return nil
}

// GetConnectCount is for tests to read the Connect call count.
func (s *MockStore) GetConnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// GetCloseCount is for tests to read the Close call count.
func (s *MockStore) GetCloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// GetReadCount is for tests to read how many times Read was called.
func (s *MockStore) GetReadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *MockStore) ResetCounts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects, s.closes, s.reads = 0, 0, 0
}
