package manager

import (
	"context"
	"time"

	"github.com/loykin/replicad/internal/detector"
	"github.com/loykin/replicad/internal/history"
	"github.com/loykin/replicad/internal/metrics"
	"github.com/loykin/replicad/internal/state"
)

// StartMonitoring launches the background reconciliation loop. Repeated calls
// while a loop is running are no-ops.
func (m *Manager) StartMonitoring() {
	m.monMu.Lock()
	defer m.monMu.Unlock()
	if m.monCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.monCancel = cancel
	m.monDone = done
	m.logger.Info("monitoring started", "interval", m.cfg.MonitorInterval)
	go func() {
		defer close(done)
		ticker := time.NewTicker(m.cfg.MonitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.reconcile()
			}
		}
	}()
}

// StopMonitoring stops the reconciliation loop and waits for the in-flight
// tick to finish. Workloads keep running; their records stay untouched.
func (m *Manager) StopMonitoring() {
	m.monMu.Lock()
	cancel, done := m.monCancel, m.monDone
	m.monCancel, m.monDone = nil, nil
	m.monMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("monitoring stopped")
}

// CleanupAll stops the monitor and force-stops every known replica. Per-
// replica failures are logged and the sweep continues.
func (m *Manager) CleanupAll() {
	m.StopMonitoring()
	all, err := m.states.List()
	if err != nil {
		m.logger.Error("cleanup: failed to list replicas", "error", err)
		return
	}
	m.logger.Info("cleaning up all replicas", "count", len(all))
	for id := range all {
		if _, err := m.Stop(id, true); err != nil {
			m.logger.Warn("cleanup: failed to stop replica", "replica", id, "error", err)
		}
	}
}

// reconcile is one monitor tick: mark replicas whose workload process has
// died, scrape workload-produced job IDs, refresh the status gauge. A failure
// on one replica never prevents reconciling the rest.
func (m *Manager) reconcile() {
	all, err := m.states.List()
	if err != nil {
		m.logger.Error("monitor: failed to list replicas", "error", err)
		return
	}

	counts := make(map[string]int)
	for _, rec := range all {
		counts[string(rec.Status)]++
	}
	for _, s := range []state.Status{
		state.StatusPending, state.StatusCreating, state.StatusStarting,
		state.StatusWaitingForReady, state.StatusReady, state.StatusUnhealthy,
		state.StatusStopping, state.StatusStopped, state.StatusFailed,
	} {
		metrics.SetReplicasByStatus(string(s), counts[string(s)])
	}

	for id, rec := range all {
		if !rec.Status.ShouldBeRunning() {
			continue
		}
		if rec.ReplicaPID > 0 && !m.workloadAlive(rec) {
			m.markDead(id, rec)
			continue
		}
		m.scrapeJobs(id, rec)
	}
	metrics.IncMonitorTick()
}

// workloadAlive checks the recorded workload PID, guarding against PID reuse
// with the recorded process start time when available.
func (m *Manager) workloadAlive(rec state.Record) bool {
	if rec.ReplicaPIDStart > 0 {
		ok, err := detector.StartTimeDetector{PID: rec.ReplicaPID, StartUnix: rec.ReplicaPIDStart}.Alive()
		if err != nil {
			m.logger.Warn("monitor: liveness check failed", "replica", rec.ReplicaID, "pid", rec.ReplicaPID, "error", err)
			return true
		}
		return ok
	}
	return detector.PIDAlive(rec.ReplicaPID)
}

func (m *Manager) markDead(id string, rec state.Record) {
	now := time.Now().UTC()
	m.logger.Warn("monitor: workload process died", "replica", id, "pid", rec.ReplicaPID, "last_status", rec.Status)
	err := m.states.Update(id, state.Fields{
		"status":         string(state.StatusFailed),
		"display_status": state.DisplayFailed,
		"died_at":        now,
		"error_message":  "workload process died unexpectedly",
	})
	if err != nil {
		m.logger.Error("monitor: failed to mark replica failed", "replica", id, "error", err)
		return
	}
	metrics.IncDeadReplica()
	rec.Status = state.StatusFailed
	rec.ErrorMessage = "workload process died unexpectedly"
	m.emit(history.EventFailed, rec)
}
