package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags holds daemon connection flags for client commands.
type APIFlags struct {
	URL     string
	Timeout time.Duration
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := &cobra.Command{
		Use:   "replicad",
		Short: "Replica orchestration daemon and CLI",
		Long: `Replicad creates, monitors and tears down replica server instances.
The daemon exposes a REST API; replicas are brought up by detached worker
processes so a daemon restart never interrupts running workloads.

Examples:
  replicad serve --config=replicad.toml
  replicad create --mode=replica --model=my-model --cluster=dev --config-json='{"k":"v"}'
  replicad list --status=ready
  replicad stop ec2a2cb2f1d3`,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file (optional)")

	root.AddCommand(
		createServeCommand(globalFlags),
		createWorkerCommand(globalFlags),
		createCreateCommand(),
		createListCommand(),
		createStatusCommand(),
		createStopCommand(),
		createDeleteCommand(),
		createHealthCommand(),
	)
	return root
}

func addAPIFlags(cmd *cobra.Command, f *APIFlags) {
	cmd.Flags().StringVar(&f.URL, "api-url", "http://127.0.0.1:8080/api/v1", "daemon API URL")
	cmd.Flags().DurationVar(&f.Timeout, "api-timeout", 30*time.Second, "request timeout")
}
