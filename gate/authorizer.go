package gate

import (
	"fmt"
	"os"
)

// Peer is the identity the operating system reports for the process at the
// other end of a connection.
type Peer struct {
	UID uint32
	GID uint32
	// PID is -1 when the platform does not report it.
	PID int32
}

// Authorizer decides whether a peer may use the broker. A nil error accepts
// the connection.
type Authorizer interface {
	Authorize(p Peer) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(p Peer) error

func (f AuthorizerFunc) Authorize(p Peer) error {
	return f(p)
}

// AllowAll accepts every connection. It is only safe when the transport
// already restricts who can connect, for example through the socket's file
// permissions.
func AllowAll() Authorizer {
	return AuthorizerFunc(func(Peer) error { return nil })
}

// SameUser accepts peers running as the same user as this process.
func SameUser() Authorizer {
	uid := uint32(os.Getuid())
	return AuthorizerFunc(func(p Peer) error {
		if p.UID != uid {
			return fmt.Errorf("peer uid %d does not match service uid %d", p.UID, uid)
		}
		return nil
	})
}

// AllowUIDs accepts peers running as one of uids.
func AllowUIDs(uids ...uint32) Authorizer {
	allowed := make(map[uint32]struct{}, len(uids))
	for _, u := range uids {
		allowed[u] = struct{}{}
	}
	return AuthorizerFunc(func(p Peer) error {
		if _, ok := allowed[p.UID]; !ok {
			return fmt.Errorf("peer uid %d is not allowed", p.UID)
		}
		return nil
	})
}
