// Package manager implements the coordinator: it accepts creation requests,
// spawns detached worker processes and serves reads from the shared state
// store. It never blocks on worker or workload behavior.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/replicad/internal/detector"
	"github.com/loykin/replicad/internal/history"
	"github.com/loykin/replicad/internal/launcher"
	"github.com/loykin/replicad/internal/metrics"
	"github.com/loykin/replicad/internal/state"
	"github.com/loykin/replicad/internal/workload"
)

// ErrNotFound is returned for operations on unknown replica IDs.
var ErrNotFound = errors.New("replica not found")

// Config holds the coordinator's operational settings.
type Config struct {
	// WorkdirRoot holds one private directory per replica plus the shared
	// state directory at <root>/state.
	WorkdirRoot     string
	MonitorInterval time.Duration
	// StopGrace bounds how long a graceful stop waits before escalating to a
	// forceful kill.
	StopGrace time.Duration
	// RunMetaRelPath locates the workload-produced metadata file relative to
	// a replica workdir.
	RunMetaRelPath string
	// WorkerConfigPath, when set, is forwarded to spawned workers so they
	// load the same service configuration.
	WorkerConfigPath string
}

func (c *Config) applyDefaults() {
	if c.WorkdirRoot == "" {
		c.WorkdirRoot = "/tmp/replicad"
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 30 * time.Second
	}
	if c.StopGrace <= 0 {
		c.StopGrace = 5 * time.Second
	}
	if c.RunMetaRelPath == "" {
		c.RunMetaRelPath = "run_meta.json"
	}
}

// Manager is the long-lived coordinator.
type Manager struct {
	cfg    Config
	states *state.Manager
	logger *slog.Logger

	mu    sync.Mutex
	sinks []history.Sink

	// injectable for tests; defaults to spawning this binary's hidden
	// worker subcommand detached
	launchWorker func(id, requestFile, workdir string) (int, error)

	monMu     sync.Mutex
	monCancel context.CancelFunc
	monDone   chan struct{}
}

func New(cfg Config) (*Manager, error) {
	cfg.applyDefaults()
	if err := os.MkdirAll(cfg.WorkdirRoot, 0o750); err != nil {
		return nil, fmt.Errorf("create workdir root: %w", err)
	}
	states, err := state.NewManager(filepath.Join(cfg.WorkdirRoot, "state"))
	if err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:    cfg,
		states: states,
		logger: slog.Default().With("subsystem", "manager"),
	}
	m.launchWorker = m.spawnWorker
	return m, nil
}

// States exposes the underlying store for read-only consumers (tests, CLI).
func (m *Manager) States() *state.Manager { return m.states }

// SetWorkerLauncher replaces how worker processes are spawned. The default
// launches this binary's worker subcommand detached; embedders and tests can
// substitute their own strategy.
func (m *Manager) SetWorkerLauncher(fn func(id, requestFile, workdir string) (int, error)) {
	if fn != nil {
		m.launchWorker = fn
	}
}

// SetHistorySinks configures external lifecycle-event sinks. Passing no
// sinks clears the list.
func (m *Manager) SetHistorySinks(sinks ...history.Sink) {
	m.mu.Lock()
	m.sinks = append([]history.Sink(nil), sinks...)
	m.mu.Unlock()
}

func (m *Manager) emit(t history.EventType, rec state.Record) {
	m.mu.Lock()
	sinks := append([]history.Sink(nil), m.sinks...)
	m.mu.Unlock()
	if len(sinks) == 0 {
		return
	}
	evt := history.Event{
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ReplicaID:  rec.ReplicaID,
		Mode:       rec.Mode,
		Status:     string(rec.Status),
		PID:        rec.ReplicaPID,
		Error:      rec.ErrorMessage,
	}
	for _, s := range sinks {
		if err := s.Send(context.Background(), evt); err != nil {
			m.logger.Warn("history sink send failed", "event", t, "error", err)
		}
	}
}

// Create validates the request, prepares the replica workdir and request
// hand-off file, writes the initial pending record and spawns the worker.
// It returns immediately; it never waits for readiness. Validation failures
// happen before any workdir or record exists.
func (m *Manager) Create(req *workload.CreateRequest) (state.Record, error) {
	mode, err := req.Validate()
	if err != nil {
		return state.Record{}, err
	}

	id := newID()
	workdir := filepath.Join(m.cfg.WorkdirRoot, id)
	if err := os.MkdirAll(workdir, 0o750); err != nil {
		return state.Record{}, fmt.Errorf("create workdir: %w", err)
	}
	m.logger.Info("creating replica", "replica", id, "mode", mode, "workdir", workdir)

	requestFile := filepath.Join(workdir, "request.json")
	if err := workload.WriteRequest(requestFile, req); err != nil {
		return state.Record{}, fmt.Errorf("write request file: %w", err)
	}

	if err := m.states.Create(id, state.Fields{
		"server_mode":    string(mode),
		"model_name":     req.ModelName,
		"display_status": state.DisplayPending,
		"endpoint":       state.EndpointNA,
		"workdir":        workdir,
		"cluster":        req.Placement.Cluster,
		"namespace":      req.Placement.Namespace,
		"request_id":     req.RequestID,
		"compile_jobs":   []string{},
		"execute_jobs":   []string{},
	}); err != nil {
		return state.Record{}, err
	}

	pid, err := m.launchWorker(id, requestFile, workdir)
	if err != nil {
		_ = m.states.Update(id, state.Fields{
			"status":         string(state.StatusFailed),
			"display_status": state.DisplayFailed,
			"error_message":  fmt.Sprintf("failed to spawn worker: %v", err),
		})
		return state.Record{}, fmt.Errorf("spawn worker for %s: %w", id, err)
	}
	if err := m.states.SetWorkerPID(id, pid); err != nil {
		m.logger.Warn("failed to record worker pid", "replica", id, "error", err)
	}
	m.logger.Info("worker spawned", "replica", id, "worker_pid", pid)
	metrics.IncCreate(string(mode))

	rec, err := m.states.Get(id)
	if err != nil {
		return state.Record{}, err
	}
	m.emit(history.EventCreated, rec)
	return rec, nil
}

// spawnWorker launches this binary's hidden worker subcommand, detached,
// with stdout/stderr captured in the replica workdir.
func (m *Manager) spawnWorker(id, requestFile, workdir string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve own executable: %w", err)
	}
	args := []string{"worker", id, requestFile, workdir}
	if m.cfg.WorkerConfigPath != "" {
		args = append(args, "--config", m.cfg.WorkerConfigPath)
	}
	return launcher.Launch(launcher.Spec{
		Path:       exe,
		Args:       args,
		WorkDir:    workdir,
		StdoutPath: filepath.Join(workdir, "worker_stdout.log"),
		StderrPath: filepath.Join(workdir, "worker_stderr.log"),
	})
}

// Get returns the current record for id.
func (m *Manager) Get(id string) (state.Record, error) {
	rec, err := m.states.Get(id)
	if errors.Is(err, state.ErrNotFound) {
		return state.Record{}, ErrNotFound
	}
	return rec, err
}

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	Mode   string
	Status string
	Model  string
}

// List returns all replicas matching the filter, newest first. Unreadable
// records are omitted, never failing the listing.
func (m *Manager) List(f ListFilter) ([]state.Record, error) {
	all, err := m.states.List()
	if err != nil {
		return nil, err
	}
	out := make([]state.Record, 0, len(all))
	for _, rec := range all {
		if f.Mode != "" && rec.Mode != f.Mode {
			continue
		}
		if f.Status != "" && string(rec.Status) != f.Status {
			continue
		}
		if f.Model != "" && rec.ModelName != f.Model {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Stop terminates the replica's worker (if still alive) and workload
// processes, gracefully by default, immediately when force is set. Both get
// the same grace-then-kill escalation. The record stays in place for later
// inspection.
func (m *Manager) Stop(id string, force bool) (state.Record, error) {
	rec, err := m.Get(id)
	if err != nil {
		return state.Record{}, err
	}
	m.logger.Info("stopping replica", "replica", id, "force", force)

	if !rec.Status.Terminal() {
		_ = m.states.Update(id, state.Fields{
			"status":         string(state.StatusStopping),
			"display_status": state.StatusStopping.Display(),
		})
	}

	if workerPID := m.states.GetWorkerPID(id); workerPID > 0 {
		m.stopProcess(id, "worker", workerPID, force)
	}
	if rec.ReplicaPID > 0 {
		m.stopProcess(id, "workload", rec.ReplicaPID, force)
	}

	_ = m.states.Update(id, state.Fields{
		"status":         string(state.StatusStopped),
		"display_status": state.StatusStopped.Display(),
		"endpoint":       state.EndpointNA,
	})
	metrics.IncStop(force)

	out, err := m.Get(id)
	if err != nil {
		return state.Record{}, err
	}
	m.emit(history.EventStopped, out)
	return out, nil
}

func (m *Manager) stopProcess(id, kind string, pid int, force bool) {
	if !detector.PIDAlive(pid) {
		return
	}
	if force {
		if err := launcher.Kill(pid); err != nil {
			m.logger.Warn("failed to kill process", "replica", id, "kind", kind, "pid", pid, "error", err)
		}
		return
	}
	if err := launcher.Terminate(pid); err != nil {
		m.logger.Warn("failed to signal process", "replica", id, "kind", kind, "pid", pid, "error", err)
		return
	}
	if waitDead(pid, m.cfg.StopGrace) {
		return
	}
	m.logger.Warn("process did not exit in grace period, killing", "replica", id, "kind", kind, "pid", pid)
	_ = launcher.Kill(pid)
	waitDead(pid, time.Second)
}

// waitDead polls pid liveness until it disappears or the deadline passes.
func waitDead(pid int, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !detector.PIDAlive(pid) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return !detector.PIDAlive(pid)
}

// Delete force-stops the replica and removes its record and auxiliary
// files. Returns false when the replica never existed.
func (m *Manager) Delete(id string) (bool, error) {
	if _, err := m.Get(id); errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	rec, err := m.Stop(id, true)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := m.states.Delete(id); err != nil {
		return false, err
	}
	m.logger.Info("deleted replica", "replica", id)
	metrics.IncDelete()
	m.emit(history.EventDeleted, rec)
	return true, nil
}

// HealthCheck reads the recorded status; the monitor owns ongoing probing.
func (m *Manager) HealthCheck(id string) (bool, error) {
	rec, err := m.Get(id)
	if err != nil {
		return false, err
	}
	return rec.Status == state.StatusReady, nil
}

// Close stops monitoring and closes history sinks. Managed workloads keep
// running.
func (m *Manager) Close() {
	m.StopMonitoring()
	m.mu.Lock()
	sinks := m.sinks
	m.sinks = nil
	m.mu.Unlock()
	for _, s := range sinks {
		_ = s.Close()
	}
}

// newID returns a short opaque replica identifier.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
