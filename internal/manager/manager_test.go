//go:build !windows

package manager

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/replicad/internal/state"
	"github.com/loykin/replicad/internal/workload"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(Config{
		WorkdirRoot:     t.TempDir(),
		MonitorInterval: 50 * time.Millisecond,
		StopGrace:       200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Replace the real spawn with a no-op; individual tests override.
	m.launchWorker = func(id, requestFile, workdir string) (int, error) { return os.Getpid(), nil }
	return m
}

func validRequest() *workload.CreateRequest {
	return &workload.CreateRequest{
		Mode:      "replica",
		ModelName: "test-model",
		Config:    map[string]any{"k": "v"},
		Placement: workload.Placement{Cluster: "dev", Namespace: "ns"},
		RequestID: "req-1",
	}
}

func TestCreateSpawnsWorkerAndRecordsPending(t *testing.T) {
	m := newTestManager(t)
	var gotID, gotRequestFile string
	m.launchWorker = func(id, requestFile, workdir string) (int, error) {
		gotID, gotRequestFile = id, requestFile
		return 4321, nil
	}

	rec, err := m.Create(validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ReplicaID == "" || len(rec.ReplicaID) != 12 {
		t.Errorf("replica id = %q, want 12 chars", rec.ReplicaID)
	}
	if rec.ReplicaID != gotID {
		t.Errorf("worker spawned for %q, record says %q", gotID, rec.ReplicaID)
	}
	if rec.Status != state.StatusPending {
		t.Errorf("status = %q, want pending", rec.Status)
	}
	if rec.DisplayStatus != state.DisplayPending {
		t.Errorf("display = %q", rec.DisplayStatus)
	}
	if rec.Endpoint != state.EndpointNA {
		t.Errorf("endpoint = %q, want NA", rec.Endpoint)
	}
	if rec.Mode != "replica" || rec.ModelName != "test-model" || rec.Cluster != "dev" {
		t.Errorf("request fields not recorded: %+v", rec)
	}
	if rec.CompileJobs == nil || rec.ExecuteJobs == nil {
		t.Errorf("job lists not initialized: %+v", rec)
	}
	// The request hand-off file must exist before the worker starts.
	if _, err := os.Stat(gotRequestFile); err != nil {
		t.Errorf("request file missing: %v", err)
	}
	if pid := m.States().GetWorkerPID(rec.ReplicaID); pid != 4321 {
		t.Errorf("worker pid = %d, want 4321", pid)
	}
}

func TestCreateInvalidModeLeavesNoState(t *testing.T) {
	m := newTestManager(t)
	req := validRequest()
	req.Mode = "bogus"
	if _, err := m.Create(req); err == nil {
		t.Fatal("Create accepted unknown mode")
	}
	all, err := m.States().List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("orphaned records after rejected create: %v", all)
	}
	entries, _ := os.ReadDir(m.cfg.WorkdirRoot)
	for _, e := range entries {
		if e.Name() != "state" {
			t.Errorf("orphaned workdir after rejected create: %s", e.Name())
		}
	}
}

func TestCreateSpawnFailureMarksFailed(t *testing.T) {
	m := newTestManager(t)
	m.launchWorker = func(id, requestFile, workdir string) (int, error) {
		return 0, errors.New("fork failed")
	}
	if _, err := m.Create(validRequest()); err == nil {
		t.Fatal("Create succeeded despite spawn failure")
	}
	all, _ := m.States().List()
	if len(all) != 1 {
		t.Fatalf("expected one record, got %d", len(all))
	}
	for _, rec := range all {
		if rec.Status != state.StatusFailed {
			t.Errorf("status = %q, want failed", rec.Status)
		}
		if rec.ErrorMessage == "" {
			t.Error("error_message empty")
		}
	}
}

func TestGetMissing(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create(validRequest()); err != nil {
		t.Fatal(err)
	}
	mockReq := validRequest()
	mockReq.Mode = "replica_mock"
	mockReq.ModelName = "other-model"
	if _, err := m.Create(mockReq); err != nil {
		t.Fatal(err)
	}

	all, err := m.List(ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List = %d records, want 2", len(all))
	}

	byMode, _ := m.List(ListFilter{Mode: "replica_mock"})
	if len(byMode) != 1 || byMode[0].Mode != "replica_mock" {
		t.Errorf("mode filter: %+v", byMode)
	}
	byModel, _ := m.List(ListFilter{Model: "test-model"})
	if len(byModel) != 1 || byModel[0].ModelName != "test-model" {
		t.Errorf("model filter: %+v", byModel)
	}
	byStatus, _ := m.List(ListFilter{Status: "ready"})
	if len(byStatus) != 0 {
		t.Errorf("status filter: %+v", byStatus)
	}
}

func TestStopMarksStopped(t *testing.T) {
	m := newTestManager(t)
	// No live processes to signal: spawn stub records a pid that is our own
	// process, so clear the worker pid before stopping.
	m.launchWorker = func(id, requestFile, workdir string) (int, error) { return 0, nil }
	rec, err := m.Create(validRequest())
	if err != nil {
		t.Fatal(err)
	}
	out, err := m.Stop(rec.ReplicaID, false)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if out.Status != state.StatusStopped {
		t.Errorf("status = %q, want stopped", out.Status)
	}
	if out.DisplayStatus != state.DisplayFailed {
		t.Errorf("display = %q, want Failed", out.DisplayStatus)
	}
	if out.Endpoint != state.EndpointNA {
		t.Errorf("endpoint = %q, want NA", out.Endpoint)
	}

	// Stop is idempotent.
	if _, err := m.Stop(rec.ReplicaID, false); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestStopUnknown(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Stop("ghost", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Stop missing = %v, want ErrNotFound", err)
	}
}

func TestStopKillsLiveWorkload(t *testing.T) {
	m := newTestManager(t)
	m.launchWorker = func(id, requestFile, workdir string) (int, error) { return 0, nil }
	rec, err := m.Create(validRequest())
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a running workload with a real process.
	pid := startSleeper(t)
	if err := m.States().Update(rec.ReplicaID, state.Fields{
		"status":      string(state.StatusReady),
		"replica_pid": pid,
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Stop(rec.ReplicaID, false); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !waitDead(pid, 3*time.Second) {
		t.Errorf("workload pid %d still alive after stop", pid)
	}
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)
	m.launchWorker = func(id, requestFile, workdir string) (int, error) { return 0, nil }
	rec, err := m.Create(validRequest())
	if err != nil {
		t.Fatal(err)
	}
	deleted, err := m.Delete(rec.ReplicaID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !deleted {
		t.Fatal("Delete returned false for existing replica")
	}
	if _, err := m.Get(rec.ReplicaID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record survived delete: %v", err)
	}

	deleted, err = m.Delete(rec.ReplicaID)
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if deleted {
		t.Error("second Delete reported true")
	}
}

func TestHealthCheck(t *testing.T) {
	m := newTestManager(t)
	m.launchWorker = func(id, requestFile, workdir string) (int, error) { return 0, nil }
	rec, err := m.Create(validRequest())
	if err != nil {
		t.Fatal(err)
	}
	healthy, err := m.HealthCheck(rec.ReplicaID)
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if healthy {
		t.Error("pending replica reported healthy")
	}
	if err := m.States().Update(rec.ReplicaID, state.Fields{"status": string(state.StatusReady)}); err != nil {
		t.Fatal(err)
	}
	healthy, err = m.HealthCheck(rec.ReplicaID)
	if err != nil || !healthy {
		t.Errorf("ready replica: healthy=%v err=%v", healthy, err)
	}
}

func TestNewIDShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newID()
		if len(id) != 12 {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestWorkerRequestFilePlacement(t *testing.T) {
	m := newTestManager(t)
	var gotWorkdir, gotRequestFile string
	m.launchWorker = func(id, requestFile, workdir string) (int, error) {
		gotWorkdir, gotRequestFile = workdir, requestFile
		return 0, nil
	}
	rec, err := m.Create(validRequest())
	if err != nil {
		t.Fatal(err)
	}
	if gotWorkdir != filepath.Join(m.cfg.WorkdirRoot, rec.ReplicaID) {
		t.Errorf("workdir = %q", gotWorkdir)
	}
	if gotRequestFile != filepath.Join(gotWorkdir, "request.json") {
		t.Errorf("request file = %q", gotRequestFile)
	}
	req, err := workload.LoadRequest(gotRequestFile)
	if err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	if req.ModelName != "test-model" || req.RequestID != "req-1" {
		t.Errorf("hand-off request mismatch: %+v", req)
	}
}
