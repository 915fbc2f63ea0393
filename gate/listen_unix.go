//go:build !windows

package gate

import (
	"net"
	"os"
	"path/filepath"

	"github.com/docker/go-connections/sockets"
	"github.com/pkg/errors"
)

func listen(path string, mode os.FileMode, gid int) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "unable to create socket directory")
	}
	opts := []sockets.SockOption{sockets.WithChmod(mode)}
	if gid > 0 {
		opts = append(opts, sockets.WithChown(os.Getuid(), gid))
	}
	l, err := sockets.NewUnixSocketWithOpts(path, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %s", path)
	}
	return l, nil
}
