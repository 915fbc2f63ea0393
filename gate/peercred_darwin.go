package gate

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func readPeer(raw syscall.RawConn) (Peer, error) {
	var (
		cred *unix.Xucred
		pid  = -1
		serr error
	)
	err := raw.Control(func(fd uintptr) {
		cred, serr = unix.GetsockoptXucred(int(fd), unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
		if serr != nil {
			return
		}
		if p, perr := unix.GetsockoptInt(int(fd), unix.SOL_LOCAL, unix.LOCAL_PEERPID); perr == nil {
			pid = p
		}
	})
	if err != nil {
		return Peer{}, err
	}
	if serr != nil {
		return Peer{}, serr
	}
	peer := Peer{UID: cred.Uid, PID: int32(pid)}
	if cred.Ngroups > 0 {
		peer.GID = cred.Groups[0]
	}
	return peer, nil
}
