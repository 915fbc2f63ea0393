// Package config loads the broker service configuration from an optional
// YAML file, CREDBROKER_* environment variables and command line flags.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/cnabio/credbroker/broker"
	"github.com/cnabio/credbroker/endpoint"
	"github.com/cnabio/credbroker/gate"
	"github.com/cnabio/credbroker/log"
	"github.com/cnabio/credbroker/secrets/keyring"
	"github.com/cnabio/credbroker/secrets/lookup"
	"github.com/cnabio/credbroker/valuesource"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CREDBROKER"

// DefaultPasswordEnv holds the file keyring password unless keyring.password
// names another source. It must not match the variable of any config key.
const DefaultPasswordEnv = EnvPrefix + "_KEYRING_FILE_PASSWORD"

const (
	AuthorizerSameUser = "same-user"
	AuthorizerAllowAll = "allow-all"
	AuthorizerUIDs     = "uids"
)

// Config is the broker service configuration.
type Config struct {
	Mode        string
	Name        string
	RuntimeDir  string
	PortDir     string
	SocketGID   int
	AccessGroup string

	Authorizer  string
	AllowedUIDs []int

	Backend string
	Keyring KeyringConfig
	File    FileConfig
	Plugin  PluginConfig

	Log log.Config
}

type KeyringConfig struct {
	Backends []string
	FileDir  string
	// Password locates the password of the encrypted file keyring.
	Password valuesource.Source
}

type FileConfig struct {
	Dir string
}

type PluginConfig struct {
	Path string
	Env  map[string]string
}

// SetDefaults registers the default of every key with v.
func SetDefaults(v *viper.Viper) {
	logDefaults := log.DefaultConfig()

	v.SetDefault("mode", string(endpoint.ModeService))
	v.SetDefault("name", endpoint.DefaultName)
	v.SetDefault("runtime_dir", "")
	v.SetDefault("port_dir", endpoint.DefaultPortDir)
	v.SetDefault("socket_gid", 0)
	v.SetDefault("access_group", broker.DefaultAccessGroup)
	v.SetDefault("authorizer", AuthorizerSameUser)
	v.SetDefault("allowed_uids", []string{})
	v.SetDefault("backend", "keyring")
	v.SetDefault("keyring.backends", []string{})
	v.SetDefault("keyring.file_dir", "")
	v.SetDefault("keyring.password", map[string]string{valuesource.SourceEnv: DefaultPasswordEnv})
	v.SetDefault("file.dir", "")
	v.SetDefault("plugin.path", "")
	v.SetDefault("plugin.env", map[string]string{})
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.format", logDefaults.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
	v.SetDefault("log.compress", logDefaults.Compress)
}

// Load reads the configuration into a Config. configFile may be empty, in
// which case only defaults, the environment and bound flags apply.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "error reading config file %s", configFile)
		}
	}

	cfg := &Config{
		Mode:        v.GetString("mode"),
		Name:        v.GetString("name"),
		RuntimeDir:  v.GetString("runtime_dir"),
		PortDir:     v.GetString("port_dir"),
		SocketGID:   v.GetInt("socket_gid"),
		AccessGroup: v.GetString("access_group"),
		Authorizer:  v.GetString("authorizer"),
		Backend:     v.GetString("backend"),
		Keyring: KeyringConfig{
			Backends: v.GetStringSlice("keyring.backends"),
			FileDir:  v.GetString("keyring.file_dir"),
		},
		File: FileConfig{
			Dir: v.GetString("file.dir"),
		},
		Plugin: PluginConfig{
			Path: v.GetString("plugin.path"),
			Env:  map[string]string{},
		},
		Log: log.Config{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSize:    v.GetInt("log.max_size"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAge:     v.GetInt("log.max_age"),
			Compress:   v.GetBool("log.compress"),
		},
	}

	if _, ok := v.Get("keyring.password").(string); ok {
		return nil, errors.Errorf("keyring.password must name a source such as {env: %s}, not hold the password", DefaultPasswordEnv)
	}
	password, err := valuesource.FromMap(v.GetStringMapString("keyring.password"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid keyring.password")
	}
	cfg.Keyring.Password = password

	// viper lowercases keys; environment variable names are upper case.
	for k, val := range v.GetStringMapString("plugin.env") {
		cfg.Plugin.Env[strings.ToUpper(k)] = val
	}

	for _, s := range v.GetStringSlice("allowed_uids") {
		uid, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid uid %q in allowed_uids", s)
		}
		cfg.AllowedUIDs = append(cfg.AllowedUIDs, uid)
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := endpoint.ParseMode(c.Mode); err != nil {
		result = multierror.Append(result, err)
	}
	if c.AccessGroup == "" {
		result = multierror.Append(result, errors.New("access_group must not be empty"))
	}
	if c.SocketGID < 0 {
		result = multierror.Append(result, fmt.Errorf("socket_gid must not be negative, got %d", c.SocketGID))
	}

	switch c.Authorizer {
	case AuthorizerSameUser, AuthorizerAllowAll:
	case AuthorizerUIDs:
		if len(c.AllowedUIDs) == 0 {
			result = multierror.Append(result, errors.New("the uids authorizer requires allowed_uids"))
		}
		for _, uid := range c.AllowedUIDs {
			if uid < 0 {
				result = multierror.Append(result, fmt.Errorf("invalid uid %d in allowed_uids", uid))
			}
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown authorizer %q", c.Authorizer))
	}

	if c.Backend == "file" && c.File.Dir == "" {
		result = multierror.Append(result, errors.New("the file backend requires file.dir"))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return result.ErrorOrNil()
}

// Endpoint resolves the address the service listens on.
func (c *Config) Endpoint() (endpoint.Endpoint, error) {
	mode, err := endpoint.ParseMode(c.Mode)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	return endpoint.Resolver{RuntimeDir: c.RuntimeDir, PortDir: c.PortDir}.Resolve(mode, c.Name)
}

// NewAuthorizer returns the configured connection authorizer.
func (c *Config) NewAuthorizer() (gate.Authorizer, error) {
	switch c.Authorizer {
	case AuthorizerSameUser, "":
		return gate.SameUser(), nil
	case AuthorizerAllowAll:
		return gate.AllowAll(), nil
	case AuthorizerUIDs:
		uids := make([]uint32, 0, len(c.AllowedUIDs))
		for _, uid := range c.AllowedUIDs {
			uids = append(uids, uint32(uid))
		}
		return gate.AllowUIDs(uids...), nil
	default:
		return nil, fmt.Errorf("unknown authorizer %q", c.Authorizer)
	}
}

// StoreOptions returns the settings passed to the secret store lookup.
func (c *Config) StoreOptions() lookup.Options {
	opts := lookup.Options{
		Keyring: keyring.Config{
			Backends: c.Keyring.Backends,
			FileDir:  c.Keyring.FileDir,
		},
		FileDir:    c.File.Dir,
		PluginPath: c.Plugin.Path,
		PluginEnv:  c.Plugin.Env,
	}
	if !c.Keyring.Password.IsZero() {
		opts.Keyring.FilePassword = c.Keyring.Password.Resolve
	}
	return opts
}
