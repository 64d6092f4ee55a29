package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/loykin/replicad/internal/config"
	"github.com/loykin/replicad/internal/logger"
	"github.com/loykin/replicad/internal/worker"
)

// createWorkerCommand builds the hidden entrypoint the coordinator spawns
// for each replica. Exit code 0 means the replica reached ready; non-zero
// means a terminal failure was recorded in the state store.
func createWorkerCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:    "worker <replica-id> <request-file> <workdir>",
		Short:  "Bring up a single replica (spawned by the daemon)",
		Hidden: true,
		Args:   cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, requestFile, workdir := args[0], args[1], args[2]

			fc, err := config.Load(globalFlags.ConfigPath)
			if err != nil {
				return err
			}
			logger.Setup(fc.LoggerConfig(), "worker-"+id)

			w, err := worker.New(id, requestFile, workdir, fc.WorkerConfig())
			if err != nil {
				return err
			}
			return w.Run(context.Background())
		},
	}
}
