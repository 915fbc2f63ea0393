// Package plugin implements a secrets.Store that delegates each lookup to an
// external program. The program receives one JSON encoded Request on stdin
// and must write one JSON encoded Response to stdout.
//
// Serve implements the program side for any secrets.Store, which makes it
// straightforward to ship a store as a separately signed binary.
package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"

	"github.com/cnabio/credbroker/secrets"
	"github.com/cnabio/credbroker/utils/ids"
)

// BinaryPrefix is prepended to a plugin's name to form the executable name
// searched for on PATH.
const BinaryPrefix = "credbroker-"

// Request is sent to the plugin on stdin.
type Request struct {
	ID             string `json:"id"`
	AccessGroup    string `json:"access_group"`
	Account        string `json:"account"`
	Service        string `json:"service"`
	Label          string `json:"label"`
	Synchronizable string `json:"synchronizable"`
}

// Response is read from the plugin's stdout. Exactly one of Contents and
// Error is expected; an empty value is sent as "contents": "".
type Response struct {
	ID       string `json:"id"`
	Contents []byte `json:"contents"`
	Error    *Error `json:"error,omitempty"`
}

// Error is a failure reported by a plugin.
type Error struct {
	Status  secrets.Status `json:"status"`
	Message string         `json:"message"`
	Detail  string         `json:"detail,omitempty"`
}

var _ secrets.Store = &Store{}

// Store relies upon an external command to look secrets up.
type Store struct {
	// Name of the plugin; the executable is BinaryPrefix+Name unless Path is set.
	Name string
	// Path is an explicit path to the plugin executable.
	Path string
	// Environment holds extra variables passed to the plugin.
	Environment map[string]string
}

func (s *Store) cmd() string {
	if s.Path != "" {
		return s.Path
	}
	return BinaryPrefix + strings.ToLower(s.Name)
}

// CheckExists reports whether the plugin executable can be found.
func (s *Store) CheckExists() bool {
	if s.Path != "" {
		_, err := os.Stat(s.Path)
		return err == nil
	}
	cmd := exec.Command("/bin/sh", "-c", fmt.Sprintf("command -v %s", s.cmd()))
	return cmd.Run() == nil
}

// Config returns the plugin's extra environment. The returned map is a
// copy and may be modified freely.
func (s *Store) Config() (map[string]string, error) {
	if s.Environment == nil {
		return map[string]string{}, nil
	}
	cpy, err := copystructure.Copy(s.Environment)
	if err != nil {
		return nil, err
	}
	env, ok := cpy.(map[string]string)
	if !ok {
		return nil, errors.New("unable to process plugin environment")
	}
	return env, nil
}

// Lookup runs the plugin once for q.
func (s *Store) Lookup(ctx context.Context, q secrets.Query) ([]byte, error) {
	req := Request{
		ID:             ids.ULID(),
		AccessGroup:    q.AccessGroup,
		Account:        q.Account,
		Service:        q.Service,
		Label:          q.Label,
		Synchronizable: q.Synchronizable.String(),
	}
	resp, err := s.exec(ctx, req)
	if err != nil {
		return nil, secrets.NewStatusError(secrets.StatusNotAvailable, err)
	}
	if resp.ID != "" && resp.ID != req.ID {
		return nil, secrets.NewStatusError(secrets.StatusInternalComponent,
			fmt.Errorf("plugin (%s) answered request %s with %s", s.Name, req.ID, resp.ID))
	}
	switch {
	case resp.Contents != nil && resp.Error != nil:
		return nil, secrets.NewStatusError(secrets.StatusInternalComponent,
			fmt.Errorf("plugin (%s) answered request %s with both contents and an error", s.Name, req.ID))
	case resp.Error != nil:
		return nil, resp.Error.asStatusError()
	case resp.Contents == nil:
		return nil, secrets.NewStatusError(secrets.StatusInternalComponent,
			fmt.Errorf("plugin (%s) answered request %s with neither contents nor an error", s.Name, req.ID))
	}
	return resp.Contents, nil
}

func (e *Error) asStatusError() error {
	if e.Status == secrets.StatusItemNotFound {
		return secrets.ErrNotFound
	}
	code := e.Status
	if code == secrets.StatusSuccess {
		code = secrets.StatusInternalComponent
	}
	se := &secrets.StatusError{Code: code, Message: e.Message}
	if e.Detail != "" {
		se.Err = errors.New(e.Detail)
	}
	return se
}

func (s *Store) exec(ctx context.Context, req Request) (Response, error) {
	extra, err := s.Config()
	if err != nil {
		return Response{}, err
	}

	// CREDBROKER_VARS lists the variables we added to the environment so
	// shell script plugins can tell them apart.
	pairs := os.Environ()
	added := make([]string, 0, len(extra))
	for k, v := range extra {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
		added = append(added, k)
	}
	sort.Strings(added)
	pairs = append(pairs, fmt.Sprintf("CREDBROKER_VARS=%s", strings.Join(added, ",")))

	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.cmd())
	cmd.Env = pairs
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Response{}, fmt.Errorf("plugin (%s) failed: %v: %s", s.Name, err, strings.TrimSpace(stderr.String()))
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Response{}, errors.Wrapf(err, "plugin (%s) returned an invalid response", s.Name)
	}
	return resp, nil
}
