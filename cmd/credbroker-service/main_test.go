//go:build !windows

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cnabio/credbroker/broker"
	"github.com/cnabio/credbroker/client"
	"github.com/cnabio/credbroker/config"
	"github.com/cnabio/credbroker/protocol"
	"github.com/cnabio/credbroker/secrets/file"
	"github.com/cnabio/credbroker/secrets/plugin"
)

func newFileBackend(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	store := file.NewFileSystemStore(dir)
	require.NoError(t, store.Save(broker.DefaultAccessGroup, file.NewEntry("alice", "mail", "work", []byte("secret123"))))
	return dir
}

func TestServe(t *testing.T) {
	socketDir := t.TempDir()
	v := viper.New()
	v.Set("mode", "port")
	v.Set("port_dir", socketDir)
	v.Set("backend", "file")
	v.Set("file.dir", newFileBackend(t))

	cfg, err := loadConfig(v, "")
	require.NoError(t, err)
	ep, err := cfg.Endpoint()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- serve(ctx, cfg, zap.NewNop()) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(ep.Path)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond, "socket was not created")

	report := client.Invoke(context.Background(), ep, protocol.LookupKey{Account: "alice", Service: "mail", Label: "work"})
	assert.Equal(t, client.Report{Outcome: client.OutcomeFound, Line: "secret123"}, report)

	report = client.Invoke(context.Background(), ep, protocol.LookupKey{Account: "bob", Service: "mail", Label: "work"})
	assert.Equal(t, client.OutcomeNotFound, report.Outcome)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
	_, err = os.Stat(ep.Path)
	assert.True(t, os.IsNotExist(err), "socket should be removed on shutdown")
}

func TestServe_UnknownBackend(t *testing.T) {
	v := viper.New()
	v.Set("backend", "no-such-backend")
	cfg, err := loadConfig(v, "")
	require.NoError(t, err)

	err = serve(context.Background(), cfg, zap.NewNop())
	assert.EqualError(t, err, "unsupported backend or plugin not found in PATH: no-such-backend")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	cmd := newRootCmd(context.Background())
	cmd.SetArgs([]string{"--mode", "mach", "--log-file", filepath.Join(t.TempDir(), "broker.log")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown addressing mode "mach"`)
}

func TestPluginCmd(t *testing.T) {
	t.Setenv("CREDBROKER_FILE_DIR", newFileBackend(t))

	req, err := json.Marshal(plugin.Request{
		ID:          "01DDY0MT808KX0GGZ6SMXN4TW",
		AccessGroup: broker.DefaultAccessGroup,
		Account:     "alice",
		Service:     "mail",
		Label:       "work",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := newRootCmd(context.Background())
	cmd.SetIn(bytes.NewReader(req))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"plugin", "--backend", "file", "--log-file", filepath.Join(t.TempDir(), "plugin.log")})
	require.NoError(t, cmd.Execute())

	var resp plugin.Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "01DDY0MT808KX0GGZ6SMXN4TW", resp.ID)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "secret123", string(resp.Contents))
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, config.AuthorizerSameUser, cfg.Authorizer)
	assert.Equal(t, "keyring", cfg.Backend)
}
