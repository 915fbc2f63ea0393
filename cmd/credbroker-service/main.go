package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cnabio/credbroker/broker"
	"github.com/cnabio/credbroker/config"
	"github.com/cnabio/credbroker/gate"
	"github.com/cnabio/credbroker/log"
	"github.com/cnabio/credbroker/secrets/keyring"
	"github.com/cnabio/credbroker/secrets/lookup"
	"github.com/cnabio/credbroker/secrets/plugin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(ctx).Execute()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(ctx context.Context) *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "credbroker-service",
		Short: "Serve secret lookups to local clients",
		Long: `Serve secret lookups to local clients.

The service listens on a unix socket, checks the identity of every
connecting process and answers lookups from the configured secret store.
Configuration is read from --config, CREDBROKER_* environment variables
and the flags below, in increasing order of precedence.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			logger, closeLog, err := log.New(cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()
			return serve(ctx, cfg, logger)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	flags.String("mode", "", "Addressing mode: service or port")
	flags.String("backend", "", "Secret store backend: keyring, file or the name of a plugin")
	flags.String("log-level", "", "Minimum log level: debug, info, warn or error")
	flags.String("log-file", "", "Write logs to this file instead of standard error")
	v.BindPFlag("mode", flags.Lookup("mode"))
	v.BindPFlag("backend", flags.Lookup("backend"))
	v.BindPFlag("log.level", flags.Lookup("log-level"))
	v.BindPFlag("log.file", flags.Lookup("log-file"))

	cmd.AddCommand(newBackendsCmd(), newPluginCmd(ctx, v, &configFile))
	return cmd
}

func loadConfig(v *viper.Viper, configFile string) (*config.Config, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serve runs the broker until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := lookup.Lookup(cfg.Backend, cfg.StoreOptions())
	if err != nil {
		return err
	}
	authorizer, err := cfg.NewAuthorizer()
	if err != nil {
		return err
	}
	ep, err := cfg.Endpoint()
	if err != nil {
		return err
	}

	g, err := gate.New(gate.Options{
		Authorizer: authorizer,
		Logger:     logger,
		SocketGID:  cfg.SocketGID,
		NewAdapter: func(p gate.Peer) *broker.Adapter {
			return broker.NewAdapter(store, cfg.AccessGroup, logger.With(zap.Uint32("uid", p.UID), zap.Int32("pid", p.PID)))
		},
	})
	if err != nil {
		return err
	}
	if err := g.Listen(ep); err != nil {
		return err
	}
	logger.Info("serving", zap.String("backend", cfg.Backend), zap.String("authorizer", cfg.Authorizer))

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			g.Stop()
		case <-done:
		}
	}()
	defer close(done)
	return g.Serve()
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the keyring implementations available on this system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range keyring.Backends() {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return nil
		},
	}
}

func newPluginCmd(ctx context.Context, v *viper.Viper, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plugin",
		Short: "Answer a single plugin request on stdin using the configured backend",
		Long: `Answer a single plugin request on stdin using the configured backend.

This lets one broker use another's secret store through the plugin backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, *configFile)
			if err != nil {
				return err
			}
			logger, closeLog, err := log.New(cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()
			store, err := lookup.Lookup(cfg.Backend, cfg.StoreOptions())
			if err != nil {
				return err
			}
			return plugin.Serve(ctx, store, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		},
	}
}
