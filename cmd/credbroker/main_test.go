//go:build !windows

package main

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnabio/credbroker/broker"
	"github.com/cnabio/credbroker/endpoint"
	"github.com/cnabio/credbroker/gate"
	"github.com/cnabio/credbroker/secrets/file"
	"github.com/cnabio/credbroker/utils/crud"
)

type testBroker struct {
	dir        string
	handshakes int32
}

// startBroker serves a file store holding alice's work mail password on
// both addressing modes below a temporary directory.
func startBroker(t *testing.T, allow bool) *testBroker {
	t.Helper()
	tb := &testBroker{dir: t.TempDir()}

	store := file.NewStore(crud.NewMockStore())
	require.NoError(t, store.Save(broker.DefaultAccessGroup, file.NewEntry("alice", "mail", "work", []byte("secret123"))))

	resolver := endpoint.Resolver{RuntimeDir: tb.dir, PortDir: tb.dir}
	for _, mode := range []endpoint.Mode{endpoint.ModeService, endpoint.ModePort} {
		g, err := gate.New(gate.Options{
			Authorizer: gate.AuthorizerFunc(func(p gate.Peer) error {
				atomic.AddInt32(&tb.handshakes, 1)
				if !allow {
					return assert.AnError
				}
				return nil
			}),
			NewAdapter: func(gate.Peer) *broker.Adapter {
				return broker.NewAdapter(store, broker.DefaultAccessGroup, nil)
			},
		})
		require.NoError(t, err)
		ep, err := resolver.Resolve(mode, "")
		require.NoError(t, err)
		require.NoError(t, g.Listen(ep))
		go g.Serve()
		t.Cleanup(g.Stop)
	}
	return tb
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	tb := startBroker(t, true)

	testcases := []struct {
		name string
		args []string
	}{
		{name: "no arguments", args: nil},
		{name: "flag only", args: []string{"--service-name"}},
		{name: "unknown command", args: []string{"put", "alice", "mail", "work"}},
		{name: "missing label", args: []string{"get", "alice", "mail"}},
		{name: "too many arguments", args: []string{"get", "alice", "mail", "work", "extra"}},
		{name: "unknown flag", args: []string{"--mach", "get", "alice", "mail", "work"}},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--port-dir", tb.dir, "--runtime-dir", tb.dir}, tc.args...)
			code, stdout, stderr := runCLI(t, args...)
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "Usage:")
		})
	}
	assert.Zero(t, atomic.LoadInt32(&tb.handshakes), "usage errors must not connect")
}

func TestRun_Help(t *testing.T) {
	code, stdout, _ := runCLI(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "--service-name")
}

func TestRun_GetHelpStatesArgumentOrder(t *testing.T) {
	code, stdout, _ := runCLI(t, "get", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "get <account> <service> <label>")
	assert.Contains(t, stdout, "the account\nfirst, then the service, then the label")
}

func TestRun_ArgumentOrder(t *testing.T) {
	tb := startBroker(t, true)

	code, stdout, _ := runCLI(t, "--port-dir", tb.dir, "get", "mail", "alice", "work")
	assert.Equal(t, 0, code)
	assert.Equal(t, "No value found for the specified service and account.\n", stdout, "service first is read as account mail")
}

func TestRun_Found(t *testing.T) {
	tb := startBroker(t, true)

	code, stdout, stderr := runCLI(t, "--port-dir", tb.dir, "get", "alice", "mail", "work")
	assert.Equal(t, 0, code)
	assert.Equal(t, "secret123\n", stdout)
	assert.Empty(t, stderr)

	code, stdout, _ = runCLI(t, "--service-name", "--runtime-dir", tb.dir, "get", "alice", "mail", "work")
	assert.Equal(t, 0, code)
	assert.Equal(t, "secret123\n", stdout)
}

func TestRun_NotFound(t *testing.T) {
	tb := startBroker(t, true)

	code, stdout, _ := runCLI(t, "--port-dir", tb.dir, "get", "alice", "mail", "home")
	assert.Equal(t, 0, code)
	assert.Equal(t, "No value found for the specified service and account.\n", stdout)
}

func TestRun_Rejected(t *testing.T) {
	tb := startBroker(t, false)

	code, stdout, stderr := runCLI(t, "--port-dir", tb.dir, "get", "alice", "mail", "work")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error connecting to credential broker: ")
	assert.NotContains(t, stderr, "secret123")
}

func TestRun_NoBroker(t *testing.T) {
	code, stdout, stderr := runCLI(t, "--service-name", "--runtime-dir", t.TempDir(), "get", "alice", "mail", "work")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error connecting to credential broker: ")
}

func TestRun_InvalidName(t *testing.T) {
	code, _, stderr := runCLI(t, "--name", "../etc", "get", "alice", "mail", "work")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `Error connecting to credential broker: invalid broker name "../etc"`)
}
