package state

import "time"

// Status is the fine-grained lifecycle state of a replica. Transitions only
// move forward through the bring-up machine; stopped and failed are terminal.
type Status string

const (
	StatusPending         Status = "pending"
	StatusCreating        Status = "creating"
	StatusStarting        Status = "starting"
	StatusWaitingForReady Status = "waiting_for_ready"
	StatusReady           Status = "ready"
	StatusUnhealthy       Status = "unhealthy"
	StatusStopping        Status = "stopping"
	StatusStopped         Status = "stopped"
	StatusFailed          Status = "failed"
)

// Display status values, the coarse projection served to external consumers.
const (
	DisplayPending = "Pending"
	DisplayActive  = "Active"
	DisplayFailed  = "Failed"
)

// EndpointNA is the sentinel endpoint for replicas without a reachable URL.
const EndpointNA = "NA"

// Terminal reports whether s may never be regressed to a non-terminal state.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusFailed || s == StatusUnhealthy
}

// ShouldBeRunning reports whether the workload process behind s is expected
// to be alive; the monitor only reconciles liveness for these states.
func (s Status) ShouldBeRunning() bool {
	switch s {
	case StatusStarting, StatusWaitingForReady, StatusReady:
		return true
	}
	return false
}

// Display maps a status to its coarse projection.
func (s Status) Display() string {
	switch s {
	case StatusReady:
		return DisplayActive
	case StatusUnhealthy, StatusStopped, StatusFailed:
		return DisplayFailed
	default:
		return DisplayPending
	}
}

// Fields is a partial record update merged field-by-field into the stored
// document. New keys are added, existing keys overwritten.
type Fields map[string]any

// Record is the full persisted view of one replica. It is written by the
// coordinator (creation, stop), the worker (bring-up transitions) and the
// monitor (liveness reconciliation, job-ID scraping), always through the
// per-record file lock.
type Record struct {
	ReplicaID     string `json:"replica_id"`
	Mode          string `json:"server_mode"`
	ModelName     string `json:"model_name"`
	Status        Status `json:"status"`
	DisplayStatus string `json:"display_status"`
	Endpoint      string `json:"endpoint"`
	BaseURL       string `json:"base_url,omitempty"`
	Port          int    `json:"port,omitempty"`
	Cluster       string `json:"cluster,omitempty"`
	Namespace     string `json:"namespace,omitempty"`
	Workdir       string `json:"workdir"`
	RuntimePath   string `json:"runtime_path,omitempty"`

	// PID of the workload process, set once by the worker during bring-up.
	// The start time guards against PID reuse when reconciling liveness.
	ReplicaPID      int   `json:"replica_pid,omitempty"`
	ReplicaPIDStart int64 `json:"replica_pid_started_at,omitempty"`

	CompileJobs []string `json:"compile_jobs"`
	ExecuteJobs []string `json:"execute_jobs"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ReadyAt   *time.Time `json:"ready_at,omitempty"`
	DiedAt    *time.Time `json:"died_at,omitempty"`

	ErrorMessage string         `json:"error_message,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Diagnostics  map[string]any `json:"diagnostics,omitempty"`
}
