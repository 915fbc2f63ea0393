// Package client issues lookups against a running credential broker.
package client

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/cnabio/credbroker/endpoint"
	"github.com/cnabio/credbroker/protocol"
)

// Client is a connection to a broker.
type Client struct {
	endpoint endpoint.Endpoint
	conn     *grpc.ClientConn
	broker   *protocol.BrokerClient
}

// Dial prepares a connection to the broker at ep. The connection itself is
// established by the first lookup.
func Dial(ep endpoint.Endpoint) (*Client, error) {
	conn, err := grpc.NewClient(ep.Target(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", ep)
	}
	return &Client{endpoint: ep, conn: conn, broker: protocol.NewBrokerClient(conn)}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// LookupAsync starts a lookup of key and returns immediately. reply is
// called exactly once. A non-nil error means the broker could not be
// reached or answered with something other than a Result.
func (c *Client) LookupAsync(ctx context.Context, key protocol.LookupKey, reply func(protocol.Result, error)) {
	req := protocol.NewLookupRequest(key)
	c.broker.Go(ctx, req, func(resp *protocol.LookupResponse, err error) {
		if err != nil {
			reply(protocol.Result{}, &ConnectionError{Err: err})
			return
		}
		res, err := resp.Result()
		if err != nil {
			reply(protocol.Result{}, err)
			return
		}
		reply(res, nil)
	})
}

// Lookup performs a lookup of key and waits for its result.
func (c *Client) Lookup(ctx context.Context, key protocol.LookupKey) (protocol.Result, error) {
	type answer struct {
		res protocol.Result
		err error
	}
	done := make(chan answer, 1)
	c.LookupAsync(ctx, key, func(res protocol.Result, err error) {
		done <- answer{res, err}
	})
	a := <-done
	return a.res, a.err
}

// ConnectionError is returned when the broker could not be reached, for
// example because it is not running or rejected this process.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	if s, ok := status.FromError(e.Err); ok {
		return s.Message()
	}
	return e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
