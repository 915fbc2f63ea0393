//go:build !linux && !darwin

package gate

import (
	"syscall"

	"github.com/pkg/errors"
)

func readPeer(syscall.RawConn) (Peer, error) {
	return Peer{}, errors.New("peer credentials are not supported on this platform")
}
