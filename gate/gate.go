// Package gate accepts broker connections on a unix socket, authorizes the
// connecting process and binds a fresh broker.Adapter to every connection
// it accepts.
package gate

import (
	"context"
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/cnabio/credbroker/broker"
	"github.com/cnabio/credbroker/endpoint"
	"github.com/cnabio/credbroker/protocol"
)

// State is the lifecycle state of a Gate.
type State int

const (
	StateIdle State = iota
	StateListening
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// AdapterFactory builds the adapter for an accepted connection. It is never
// called for a rejected one.
type AdapterFactory func(p Peer) *broker.Adapter

// DefaultSocketMode is applied to the socket file unless Options says
// otherwise.
const DefaultSocketMode os.FileMode = 0600

// Options configures a Gate.
type Options struct {
	// Authorizer defaults to SameUser.
	Authorizer Authorizer
	NewAdapter AdapterFactory
	Logger     *zap.Logger
	// SocketMode defaults to DefaultSocketMode.
	SocketMode os.FileMode
	// SocketGID, when greater than zero, becomes the socket file's group.
	SocketGID int
}

// Gate is the broker's listener.
type Gate struct {
	logger *zap.Logger
	opts   Options
	server *grpc.Server

	mu       sync.Mutex
	state    State
	listener net.Listener
	endpoint endpoint.Endpoint
}

// New creates an idle Gate.
func New(opts Options) (*Gate, error) {
	if opts.NewAdapter == nil {
		return nil, errors.New("an adapter factory is required")
	}
	if opts.Authorizer == nil {
		opts.Authorizer = SameUser()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SocketMode == 0 {
		opts.SocketMode = DefaultSocketMode
	}

	g := &Gate{logger: opts.Logger, opts: opts}
	creds := &peerCredentials{
		authorizer: opts.Authorizer,
		newAdapter: opts.NewAdapter,
		logger:     opts.Logger,
	}
	g.server = grpc.NewServer(grpc.Creds(creds))
	protocol.RegisterBrokerServer(g.server, &service{})
	return g, nil
}

// State reports the gate's lifecycle state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Endpoint returns the endpoint the gate listens on.
func (g *Gate) Endpoint() endpoint.Endpoint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.endpoint
}

// Listen creates the socket for ep. Any stale socket file at the same path
// is replaced.
func (g *Gate) Listen(ep endpoint.Endpoint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateIdle {
		return errors.Errorf("cannot listen on a gate that is %s", g.state)
	}
	l, err := listen(ep.Path, g.opts.SocketMode, g.opts.SocketGID)
	if err != nil {
		return err
	}
	g.listener = l
	g.endpoint = ep
	g.state = StateListening
	g.logger.Info("listening", zap.String("mode", string(ep.Mode)), zap.String("name", ep.Name), zap.String("path", ep.Path))
	return nil
}

// Serve handles connections until Stop is called. It returns nil once the
// gate has been stopped.
func (g *Gate) Serve() error {
	g.mu.Lock()
	switch g.state {
	case StateClosed:
		g.mu.Unlock()
		return nil
	case StateIdle:
		g.mu.Unlock()
		return errors.Errorf("cannot serve a gate that is %s", g.state)
	}
	l := g.listener
	g.mu.Unlock()

	if err := g.server.Serve(l); err != nil && err != grpc.ErrServerStopped {
		return errors.Wrap(err, "broker stopped serving")
	}
	return nil
}

// ListenAndServe is Listen followed by Serve.
func (g *Gate) ListenAndServe(ep endpoint.Endpoint) error {
	if err := g.Listen(ep); err != nil {
		return err
	}
	return g.Serve()
}

// Stop waits for in-flight lookups to finish, then closes the gate and
// removes its socket.
func (g *Gate) Stop() {
	g.mu.Lock()
	if g.state == StateClosed {
		g.mu.Unlock()
		return
	}
	wasListening := g.state == StateListening
	g.state = StateClosed
	path := g.endpoint.Path
	l := g.listener
	g.mu.Unlock()

	g.server.GracefulStop()
	if wasListening {
		// Serve may not have taken ownership of the listener yet.
		l.Close()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			g.logger.Warn("unable to remove socket", zap.String("path", path), zap.Error(err))
		}
	}
	g.logger.Info("stopped")
}

type service struct{}

func (s *service) Lookup(ctx context.Context, req *protocol.LookupRequest) (*protocol.LookupResponse, error) {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "connection was not authorized")
	}
	info, ok := p.AuthInfo.(AuthInfo)
	if !ok || info.Adapter == nil {
		return nil, status.Error(codes.Unauthenticated, "connection was not authorized")
	}
	return info.Adapter.Handle(ctx, req), nil
}
