// Package state is the file-backed record store shared by the coordinator,
// the worker processes and the monitor. Each replica owns one JSON record
// file plus one worker PID side file; there is no channel between the
// processes besides this directory.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/loykin/replicad/internal/detector"
)

// ErrNotFound is returned when no record exists for a replica ID. Corrupt
// records are reported the same way since state directories may be inspected
// or modified out-of-band.
var ErrNotFound = errors.New("replica state not found")

// Manager reads and writes replica records under a single state directory.
// Locks are per-record; operations on different IDs never contend.
type Manager struct {
	dir    string
	logger *slog.Logger
}

func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", dir, err)
	}
	return &Manager{dir: dir, logger: slog.Default().With("subsystem", "state")}, nil
}

func (m *Manager) Dir() string { return m.dir }

func (m *Manager) recordPath(id string) string { return filepath.Join(m.dir, id+".json") }

func (m *Manager) workerPIDPath(id string) string {
	return filepath.Join(m.dir, id+".worker.pid")
}

// Create writes the initial record for a new replica. It fails if a record
// already exists for id. Status starts as pending; created_at/updated_at are
// set to now.
func (m *Manager) Create(id string, initial Fields) error {
	doc := Fields{
		"replica_id": id,
		"status":     string(StatusPending),
		"created_at": time.Now().UTC(),
		"updated_at": time.Now().UTC(),
	}
	for k, v := range initial {
		doc[k] = v
	}

	f, err := os.OpenFile(m.recordPath(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create state for %s: %w", id, err)
	}
	defer func() { _ = f.Close() }()
	if err := lockExclusive(f); err != nil {
		return fmt.Errorf("lock state for %s: %w", id, err)
	}
	defer func() { _ = unlock(f) }()

	if err := writeDoc(f, doc); err != nil {
		return fmt.Errorf("write state for %s: %w", id, err)
	}
	m.logger.Info("created state file", "replica", id)
	return nil
}

// Update merges updates into the existing record under an exclusive lock and
// refreshes updated_at. A missing record is logged and ignored: the worker
// and the monitor may race against deletion during teardown.
func (m *Manager) Update(id string, updates Fields) error {
	f, err := os.OpenFile(m.recordPath(id), os.O_RDWR, 0o600)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Warn("state file not found, skipping update", "replica", id)
			return nil
		}
		return fmt.Errorf("open state for %s: %w", id, err)
	}
	defer func() { _ = f.Close() }()
	if err := lockExclusive(f); err != nil {
		return fmt.Errorf("lock state for %s: %w", id, err)
	}
	defer func() { _ = unlock(f) }()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read state for %s: %w", id, err)
	}
	doc := Fields{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode state for %s: %w", id, err)
		}
	}
	for k, v := range updates {
		doc[k] = v
	}
	doc["updated_at"] = time.Now().UTC()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if err := writeDoc(f, doc); err != nil {
		return fmt.Errorf("write state for %s: %w", id, err)
	}
	m.logger.Debug("updated state", "replica", id, "fields", len(updates))
	return nil
}

// Get returns the current record for id under a shared lock.
func (m *Manager) Get(id string) (Record, error) {
	f, err := os.Open(m.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("open state for %s: %w", id, err)
	}
	defer func() { _ = f.Close() }()
	if err := lockShared(f); err != nil {
		return Record{}, fmt.Errorf("lock state for %s: %w", id, err)
	}
	defer func() { _ = unlock(f) }()

	var rec Record
	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		m.logger.Error("failed to decode state", "replica", id, "error", err)
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List enumerates all records in the state directory. Individual read
// failures are logged and the record omitted; the listing never fails as a
// whole once the directory is readable.
func (m *Manager) List() (map[string]Record, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("list state dir: %w", err)
	}
	out := make(map[string]Record)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		rec, err := m.Get(id)
		if err != nil {
			m.logger.Warn("skipping unreadable record", "replica", id, "error", err)
			continue
		}
		out[id] = rec
	}
	return out, nil
}

// Delete removes the record file and the worker PID file. Idempotent.
func (m *Manager) Delete(id string) error {
	if err := os.Remove(m.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete state for %s: %w", id, err)
	}
	if err := os.Remove(m.workerPIDPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete worker pid for %s: %w", id, err)
	}
	return nil
}

// SetWorkerPID records the supervising worker's own PID in a side file,
// separate from the record the worker writes.
func (m *Manager) SetWorkerPID(id string, pid int) error {
	if err := os.WriteFile(m.workerPIDPath(id), []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return fmt.Errorf("write worker pid for %s: %w", id, err)
	}
	m.logger.Info("recorded worker pid", "replica", id, "pid", pid)
	return nil
}

// GetWorkerPID returns the recorded worker PID, or 0 when absent.
func (m *Manager) GetWorkerPID(id string) int {
	data, err := os.ReadFile(m.workerPIDPath(id))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		m.logger.Error("invalid worker pid file", "replica", id, "error", err)
		return 0
	}
	return pid
}

// IsWorkerAlive reports whether the recorded worker process still exists.
func (m *Manager) IsWorkerAlive(id string) bool {
	ok, _ := detector.PIDFileDetector{Path: m.workerPIDPath(id)}.Alive()
	return ok
}

// writeDoc marshals doc and flushes it to disk before the caller releases the
// lock, so a crash immediately after unlock cannot lose the update.
func writeDoc(f *os.File, doc Fields) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
