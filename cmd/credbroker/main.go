package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cnabio/credbroker/client"
	"github.com/cnabio/credbroker/config"
	"github.com/cnabio/credbroker/endpoint"
	"github.com/cnabio/credbroker/protocol"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type invocation struct {
	report *client.Report
}

// run executes the client and returns its exit status. Argument errors
// print the usage and never contact the broker.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv := &invocation{}
	cmd := newRootCmd(ctx, inv, stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if c, err := cmd.ExecuteC(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprint(stderr, c.UsageString())
		return client.OutcomeUsage.ExitCode()
	}
	if inv.report == nil {
		// --help
		return 0
	}
	return inv.report.Outcome.ExitCode()
}

func newRootCmd(ctx context.Context, inv *invocation, stdout io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("name", endpoint.DefaultName)
	v.SetDefault("port_dir", endpoint.DefaultPortDir)

	var useServiceName bool
	cmd := &cobra.Command{
		Use:   "credbroker [--service-name] <command> <args>",
		Short: "Read a secret through the credential broker",
		Long: `Read a secret through the credential broker.

By default the broker is reached through its direct port. With
--service-name it is reached through its registered service name instead.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("a command is required")
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&useServiceName, "service-name", false, "Connect through the registered service name instead of the direct port")
	flags.String("name", endpoint.DefaultName, "Name the broker is registered under")
	flags.String("runtime-dir", "", "Directory holding service name sockets (default $XDG_RUNTIME_DIR)")
	flags.String("port-dir", endpoint.DefaultPortDir, "Directory holding direct port sockets")
	v.BindPFlag("name", flags.Lookup("name"))
	v.BindPFlag("runtime_dir", flags.Lookup("runtime-dir"))
	v.BindPFlag("port_dir", flags.Lookup("port-dir"))

	cmd.AddCommand(&cobra.Command{
		Use:   "get <account> <service> <label>",
		Short: "Retrieve a value from the secret store",
		Long: `Retrieve a value from the secret store.

The arguments are positional and always given in this order: the account
first, then the service, then the label. For example

  credbroker get alice mail work

reads the entry of account alice for service mail labelled work.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := endpoint.ModePort
			if useServiceName {
				mode = endpoint.ModeService
			}
			key := protocol.LookupKey{Account: args[0], Service: args[1], Label: args[2]}

			var report client.Report
			ep, err := endpoint.Resolver{
				RuntimeDir: v.GetString("runtime_dir"),
				PortDir:    v.GetString("port_dir"),
			}.Resolve(mode, v.GetString("name"))
			if err != nil {
				report = client.Render(protocol.Result{}, &client.ConnectionError{Err: err})
			} else {
				report = client.Invoke(ctx, ep, key)
			}
			report.Print(stdout, cmd.ErrOrStderr())
			inv.report = &report
			return nil
		},
	})
	return cmd
}
