package gate

import (
	"context"
	"net"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc/credentials"

	"github.com/cnabio/credbroker/broker"
)

// AuthType is reported by AuthInfo.
const AuthType = "peercred"

// AuthInfo is attached to every accepted connection. It carries the adapter
// that serves the connection's requests.
type AuthInfo struct {
	credentials.CommonAuthInfo
	Peer    Peer
	Adapter *broker.Adapter
}

func (AuthInfo) AuthType() string {
	return AuthType
}

// peerCredentials authorizes connections during the transport handshake.
// A connection is closed before any request is read when its handshake
// fails.
type peerCredentials struct {
	authorizer Authorizer
	newAdapter AdapterFactory
	logger     *zap.Logger
}

var _ credentials.TransportCredentials = &peerCredentials{}

func (c *peerCredentials) ClientHandshake(context.Context, string, net.Conn) (net.Conn, credentials.AuthInfo, error) {
	return nil, nil, errors.New("peer credentials can only be used by the server")
}

func (c *peerCredentials) ServerHandshake(conn net.Conn) (net.Conn, credentials.AuthInfo, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		c.logger.Warn("connection rejected", zap.String("reason", "not a unix socket"))
		return nil, nil, errors.Errorf("unsupported connection type %T", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to access connection")
	}
	peer, err := readPeer(raw)
	if err != nil {
		c.logger.Warn("connection rejected", zap.Error(err))
		return nil, nil, errors.Wrap(err, "unable to read peer credentials")
	}

	logger := c.logger.With(zap.Uint32("uid", peer.UID), zap.Int32("pid", peer.PID))
	if err := c.authorizer.Authorize(peer); err != nil {
		logger.Warn("connection rejected", zap.Error(err))
		return nil, nil, errors.Wrap(err, "connection rejected")
	}
	logger.Info("connection accepted")

	return conn, AuthInfo{
		CommonAuthInfo: credentials.CommonAuthInfo{SecurityLevel: credentials.NoSecurity},
		Peer:           peer,
		Adapter:        c.newAdapter(peer),
	}, nil
}

func (c *peerCredentials) Info() credentials.ProtocolInfo {
	return credentials.ProtocolInfo{SecurityProtocol: AuthType}
}

func (c *peerCredentials) Clone() credentials.TransportCredentials {
	cpy := *c
	return &cpy
}

func (c *peerCredentials) OverrideServerName(string) error {
	return nil
}
