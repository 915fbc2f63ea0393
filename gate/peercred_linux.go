package gate

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func readPeer(raw syscall.RawConn) (Peer, error) {
	var (
		cred *unix.Ucred
		serr error
	)
	err := raw.Control(func(fd uintptr) {
		cred, serr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return Peer{}, err
	}
	if serr != nil {
		return Peer{}, serr
	}
	return Peer{UID: cred.Uid, GID: cred.Gid, PID: cred.Pid}, nil
}
