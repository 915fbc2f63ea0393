package lookup

import (
	"fmt"

	"github.com/cnabio/credbroker/secrets"
	"github.com/cnabio/credbroker/secrets/file"
	"github.com/cnabio/credbroker/secrets/keyring"
	"github.com/cnabio/credbroker/secrets/plugin"
)

// Options carries the settings of every built-in backend. Only the ones
// belonging to the selected backend are used.
type Options struct {
	Keyring keyring.Config
	// FileDir is the root directory of the file backend.
	FileDir string
	// PluginPath overrides the PATH search for a plugin backend.
	PluginPath string
	// PluginEnv holds extra environment variables for a plugin backend.
	PluginEnv map[string]string
}

// Lookup takes a backend name and tries to resolve the most pertinent store.
func Lookup(name string, opts Options) (secrets.Store, error) {
	switch name {
	case "keyring", "":
		return keyring.NewStore(opts.Keyring), nil
	case "file":
		if opts.FileDir == "" {
			return nil, fmt.Errorf("the file backend requires a directory")
		}
		return file.NewFileSystemStore(opts.FileDir), nil
	default:
		p := &plugin.Store{Name: name, Path: opts.PluginPath, Environment: opts.PluginEnv}
		if p.CheckExists() {
			return p, nil
		}

		return nil, fmt.Errorf("unsupported backend or plugin not found in PATH: %s", name)
	}
}
