package secrets

import (
	"context"
	"fmt"
)

// Synchronizable selects entries by their replication class.
type Synchronizable int

const (
	// SynchronizableAny matches entries regardless of whether they are
	// synchronized to other devices.
	SynchronizableAny Synchronizable = iota
	// SynchronizableYes matches only synchronized entries.
	SynchronizableYes
	// SynchronizableNo matches only device-local entries.
	SynchronizableNo
)

func (s Synchronizable) String() string {
	switch s {
	case SynchronizableAny:
		return "any"
	case SynchronizableYes:
		return "yes"
	case SynchronizableNo:
		return "no"
	default:
		return "unknown"
	}
}

// Query describes a single secret entry.
//
// All fields are matched exactly. Matching semantics beyond that, including
// what happens when several entries share the same key, belong to the store.
type Query struct {
	// AccessGroup scopes the query to one namespace of the store.
	AccessGroup string
	Account     string
	Service     string
	Label       string
	// Synchronizable filters on the entry's replication class.
	Synchronizable Synchronizable
	// MatchLimit caps how many entries the store may consider. Zero is
	// treated as one.
	MatchLimit int
}

// Store defines the interface for working with secret sources.
type Store interface {
	// Lookup returns the raw payload of the first entry matching query.
	//
	// When nothing matches the returned error satisfies
	// errors.Is(err, ErrNotFound). Other failures should be reported as a
	// *StatusError so callers can produce a meaningful message.
	Lookup(ctx context.Context, query Query) ([]byte, error)
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, query Query) ([]byte, error)

func (f StoreFunc) Lookup(ctx context.Context, query Query) ([]byte, error) {
	return f(ctx, query)
}

// ParseSynchronizable is the inverse of Synchronizable.String. An empty
// string is SynchronizableAny.
func ParseSynchronizable(s string) (Synchronizable, error) {
	switch s {
	case "", "any":
		return SynchronizableAny, nil
	case "yes":
		return SynchronizableYes, nil
	case "no":
		return SynchronizableNo, nil
	default:
		return SynchronizableAny, fmt.Errorf("invalid synchronizable value %q", s)
	}
}
