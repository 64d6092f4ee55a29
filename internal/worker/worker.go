// Package worker implements the supervised bring-up of a single replica. It
// runs as an independent OS process spawned by the coordinator: it loads the
// request file, provisions the runtime, launches the workload, waits for it
// to become healthy and records every transition in the shared state store.
// It then exits; the workload keeps running detached.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/loykin/replicad/internal/detector"
	"github.com/loykin/replicad/internal/health"
	"github.com/loykin/replicad/internal/launcher"
	"github.com/loykin/replicad/internal/state"
	"github.com/loykin/replicad/internal/workload"
)

// Config carries the service-wide defaults a worker falls back to when the
// request does not override them.
type Config struct {
	ReadinessTimeout time.Duration
	PollInterval     time.Duration
	ArtifactRoots    []string
}

// Worker brings one replica up to a terminal bring-up state. Collaborators
// are injectable for tests; New wires the real ones.
type Worker struct {
	ID          string
	RequestFile string
	Workdir     string

	States *state.Manager
	Prov   workload.Provisioner
	Launch func(launcher.Spec) (int, error)
	Prober health.Prober

	cfg    Config
	logger *slog.Logger
}

// New builds a worker with real collaborators. The state directory is
// derived from the workdir's parent, matching the coordinator's layout
// (<root>/<id> workdirs next to <root>/state).
func New(id, requestFile, workdir string, cfg Config) (*Worker, error) {
	states, err := state.NewManager(filepath.Join(filepath.Dir(workdir), "state"))
	if err != nil {
		return nil, err
	}
	return &Worker{
		ID:          id,
		RequestFile: requestFile,
		Workdir:     workdir,
		States:      states,
		Prov:        workload.ArtifactProvisioner{Roots: cfg.ArtifactRoots},
		Launch:      launcher.Launch,
		Prober:      health.NewHTTPProber(),
		cfg:         cfg,
		logger:      slog.Default().With("replica", id),
	}, nil
}

// Run executes the bring-up sequence. A nil return means the replica reached
// ready; any error corresponds to a recorded unhealthy or failed state and
// maps to a non-zero exit code in the worker entrypoint.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.bringUp(ctx); err != nil {
		w.fail(err)
		return err
	}
	return nil
}

func (w *Worker) bringUp(ctx context.Context) error {
	_ = w.States.Update(w.ID, state.Fields{
		"status":            string(state.StatusCreating),
		"display_status":    state.StatusCreating.Display(),
		"worker_started_at": time.Now().UTC(),
	})

	w.logger.Info("loading request", "file", w.RequestFile)
	req, err := workload.LoadRequest(w.RequestFile)
	if err != nil {
		return err
	}
	mode, err := req.Validate()
	if err != nil {
		return err
	}

	execPath, err := w.Prov.Provision(ctx, w.Workdir, req.Placement.AppTag)
	if err != nil {
		return fmt.Errorf("provision runtime: %w", err)
	}
	_ = w.States.Update(w.ID, state.Fields{"runtime_path": execPath})

	configPath, err := w.writeConfig(req)
	if err != nil {
		return err
	}

	var port int
	var baseURL string
	if mode.HasLocalEndpoint() {
		port, err = freePort()
		if err != nil {
			return fmt.Errorf("allocate port: %w", err)
		}
		baseURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	}

	cmd, err := workload.BuildCommand(mode, workload.LaunchParams{
		Exec:       execPath,
		ConfigPath: configPath,
		Port:       port,
		Namespace:  req.Placement.Namespace,
		LogPath:    filepath.Join(w.Workdir, "workload.log"),
		Workdir:    w.Workdir,
	})
	if err != nil {
		return err
	}

	w.logger.Info("launching workload", "mode", mode, "exec", cmd.Path)
	_ = w.States.Update(w.ID, state.Fields{
		"status":         string(state.StatusStarting),
		"display_status": state.StatusStarting.Display(),
	})

	pid, err := w.Launch(launcher.Spec{
		Path:       cmd.Path,
		Args:       cmd.Args,
		WorkDir:    w.Workdir,
		Env:        cmd.Env,
		StdoutPath: filepath.Join(w.Workdir, "workload_stdout.log"),
		StderrPath: filepath.Join(w.Workdir, "workload_stderr.log"),
	})
	if err != nil {
		return fmt.Errorf("launch workload: %w", err)
	}
	_ = w.States.Update(w.ID, state.Fields{
		"replica_pid":            pid,
		"replica_pid_started_at": detector.ProcStartUnix(pid),
		"base_url":               baseURL,
		"port":                   port,
	})
	w.logger.Info("workload launched", "pid", pid, "base_url", baseURL)

	if req.ShouldWaitForReady() && baseURL != "" {
		_ = w.States.Update(w.ID, state.Fields{
			"status":         string(state.StatusWaitingForReady),
			"display_status": state.StatusWaitingForReady.Display(),
		})
		timeout := w.cfg.ReadinessTimeout
		if req.Timeouts.ReadinessTimeoutS > 0 {
			timeout = time.Duration(req.Timeouts.ReadinessTimeoutS) * time.Second
		}
		interval := w.cfg.PollInterval
		if req.Timeouts.PollIntervalS > 0 {
			interval = time.Duration(req.Timeouts.PollIntervalS) * time.Second
		}
		if err := w.Prober.PollUntilHealthy(ctx, baseURL, timeout, interval, pid); err != nil {
			_ = w.States.Update(w.ID, state.Fields{
				"status":         string(state.StatusUnhealthy),
				"display_status": state.StatusUnhealthy.Display(),
				"endpoint":       ExternalEndpoint(baseURL),
				"error_message":  err.Error(),
			})
			w.logger.Error("readiness check failed", "error", err)
			return err
		}
	}

	// Workloads without an endpoint are trusted to self-report readiness;
	// callers must tolerate the NA endpoint on ready records.
	endpoint := state.EndpointNA
	if baseURL != "" {
		endpoint = ExternalEndpoint(baseURL)
	}
	_ = w.States.Update(w.ID, state.Fields{
		"status":         string(state.StatusReady),
		"display_status": state.StatusReady.Display(),
		"endpoint":       endpoint,
		"ready_at":       time.Now().UTC(),
	})
	w.logger.Info("replica ready", "endpoint", endpoint)

	if req.RunDiagnostics && baseURL != "" {
		if diag := w.Prober.FetchDiagnostics(ctx, baseURL); diag != nil {
			_ = w.States.Update(w.ID, state.Fields{"diagnostics": diag})
			w.logger.Info("diagnostics captured")
		}
	}
	return nil
}

// fail records a terminal failure unless bring-up already recorded a more
// specific terminal state (unhealthy keeps its own error message).
func (w *Worker) fail(err error) {
	rec, gerr := w.States.Get(w.ID)
	if gerr == nil && rec.Status.Terminal() {
		return
	}
	_ = w.States.Update(w.ID, state.Fields{
		"status":         string(state.StatusFailed),
		"display_status": state.StatusFailed.Display(),
		"endpoint":       state.EndpointNA,
		"error_message":  err.Error(),
	})
}

func (w *Worker) writeConfig(req *workload.CreateRequest) (string, error) {
	path := filepath.Join(w.Workdir, "config.json")
	data, err := json.MarshalIndent(req.Config, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode workload config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write workload config: %w", err)
	}
	return path, nil
}
