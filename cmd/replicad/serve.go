package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loykin/replicad/internal/config"
	"github.com/loykin/replicad/internal/history/factory"
	"github.com/loykin/replicad/internal/logger"
	"github.com/loykin/replicad/internal/manager"
	"github.com/loykin/replicad/internal/metrics"
	"github.com/loykin/replicad/internal/server"
)

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	CleanupOnExit bool
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the replicad daemon",
		Long: `Start the REST API, the monitoring loop and (optionally) the metrics
endpoint. On shutdown, running replicas are left alone unless
--cleanup-on-exit is set, in which case every replica is force-stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(globalFlags.ConfigPath, serveFlags.CleanupOnExit)
		},
	}
	cmd.Flags().BoolVar(&serveFlags.CleanupOnExit, "cleanup-on-exit", false, "force-stop all replicas on shutdown")
	return cmd
}

func runServe(configPath string, cleanupOnExit bool) error {
	fc, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(fc.LoggerConfig(), "replicad")

	mgr, err := manager.New(fc.ManagerConfig(configPath))
	if err != nil {
		return err
	}
	defer mgr.Close()

	if fc.History.DSN != "" {
		sink, err := factory.NewSinkFromDSN(fc.History.DSN)
		if err != nil {
			return fmt.Errorf("configure history sink: %w", err)
		}
		mgr.SetHistorySinks(sink)
		log.Info("history sink configured", "dsn", fc.History.DSN)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	var metricsSrv *http.Server
	if fc.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
		metricsSrv = &http.Server{Addr: fc.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics listener failed", "error", err)
			}
		}()
		log.Info("metrics listening", "addr", fc.Metrics.Listen)
	}

	mgr.StartMonitoring()

	srv, err := server.NewServer(fc.Server.Addr(), fc.Server.BasePath, mgr)
	if err != nil {
		return err
	}
	log.Info("api listening", "addr", fc.Server.Addr(), "base_path", fc.Server.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}

	if cleanupOnExit {
		mgr.CleanupAll()
	} else {
		mgr.StopMonitoring()
	}
	return nil
}
