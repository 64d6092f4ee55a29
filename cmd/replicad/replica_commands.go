package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loykin/replicad/pkg/client"
)

// CreateFlags holds flags for the create command.
type CreateFlags struct {
	Mode       string
	Model      string
	Cluster    string
	Namespace  string
	AppTag     string
	ConfigJSON string
	NoWait     bool
	API        APIFlags
}

// ListFlags holds flags for the list command.
type ListFlags struct {
	Mode   string
	Status string
	Model  string
	API    APIFlags
}

func apiClient(f APIFlags) *client.Client {
	return client.New(client.Config{BaseURL: f.URL, Timeout: f.Timeout})
}

func requireDaemon(c *client.Client, url string) error {
	if !c.IsReachable(context.Background()) {
		return fmt.Errorf("daemon not reachable at %s - start it first with 'replicad serve'", url)
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func createCreateCommand() *cobra.Command {
	f := &CreateFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new replica",
		Long: `Submit a replica creation request to the daemon. The command returns as
soon as the bring-up worker is spawned; use 'replicad status <id>' to
follow progress.

Examples:
  replicad create --mode=replica --model=my-model --cluster=dev --config-json='{"batch": 8}'
  replicad create --mode=replica_mock --model=test --cluster=dev --config-json='{}' --no-wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg map[string]any
			if err := json.Unmarshal([]byte(f.ConfigJSON), &cfg); err != nil {
				return fmt.Errorf("invalid --config-json: %w", err)
			}
			req := client.CreateRequest{
				Mode:      f.Mode,
				ModelName: f.Model,
				Config:    cfg,
				Placement: client.Placement{
					Cluster:   f.Cluster,
					Namespace: f.Namespace,
					AppTag:    f.AppTag,
				},
			}
			if f.NoWait {
				waitForReady := false
				req.WaitForReady = &waitForReady
			}
			c := apiClient(f.API)
			if err := requireDaemon(c, f.API.URL); err != nil {
				return err
			}
			rec, err := c.Create(context.Background(), req)
			if err != nil {
				return err
			}
			printJSON(rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Mode, "mode", "", "server mode (required)")
	cmd.Flags().StringVar(&f.Model, "model", "", "model name (required)")
	cmd.Flags().StringVar(&f.Cluster, "cluster", "", "target cluster (required)")
	cmd.Flags().StringVar(&f.Namespace, "namespace", "", "target namespace")
	cmd.Flags().StringVar(&f.AppTag, "app-tag", "", "runtime artifact tag")
	cmd.Flags().StringVar(&f.ConfigJSON, "config-json", "", "workload configuration as JSON (required)")
	cmd.Flags().BoolVar(&f.NoWait, "no-wait", false, "do not wait for the replica to become ready")
	addAPIFlags(cmd, &f.API)
	for _, name := range []string{"mode", "model", "cluster", "config-json"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func createListCommand() *cobra.Command {
	f := &ListFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List replicas",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(f.API)
			if err := requireDaemon(c, f.API.URL); err != nil {
				return err
			}
			recs, err := c.List(context.Background(), client.ListFilter{
				Mode:   f.Mode,
				Status: f.Status,
				Model:  f.Model,
			})
			if err != nil {
				return err
			}
			printJSON(recs)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Mode, "mode", "", "filter by server mode")
	cmd.Flags().StringVar(&f.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&f.Model, "model", "", "filter by model name")
	addAPIFlags(cmd, &f.API)
	return cmd
}

func createStatusCommand() *cobra.Command {
	f := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "status <replica-id>",
		Short: "Show one replica's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(*f)
			if err := requireDaemon(c, f.URL); err != nil {
				return err
			}
			rec, err := c.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			printJSON(rec)
			return nil
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createStopCommand() *cobra.Command {
	f := &APIFlags{}
	var force bool
	cmd := &cobra.Command{
		Use:   "stop <replica-id>",
		Short: "Stop a replica's processes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(*f)
			if err := requireDaemon(c, f.URL); err != nil {
				return err
			}
			rec, err := c.Stop(context.Background(), args[0], force)
			if err != nil {
				return err
			}
			printJSON(rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "kill immediately instead of a graceful stop")
	addAPIFlags(cmd, f)
	return cmd
}

func createDeleteCommand() *cobra.Command {
	f := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "delete <replica-id>",
		Short: "Stop a replica and remove its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(*f)
			if err := requireDaemon(c, f.URL); err != nil {
				return err
			}
			if err := c.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createHealthCommand() *cobra.Command {
	f := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "health <replica-id>",
		Short: "Show a replica's recorded health",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(*f)
			if err := requireDaemon(c, f.URL); err != nil {
				return err
			}
			h, err := c.Health(context.Background(), args[0])
			if err != nil {
				return err
			}
			printJSON(h)
			return nil
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}
