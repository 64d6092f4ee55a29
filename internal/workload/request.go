package workload

import (
	"encoding/json"
	"fmt"
	"os"
)

// Placement describes where the workload runs.
type Placement struct {
	Cluster   string `json:"cluster"`
	Node      string `json:"node,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	AppTag    string `json:"app_tag,omitempty"`
}

// JobSettings carries scheduling knobs passed through to the workload.
type JobSettings struct {
	Priority         string `json:"job_priority,omitempty"`
	TimeoutS         int    `json:"job_timeout_s,omitempty"`
	DisableScheduler bool   `json:"disable_scheduler,omitempty"`
}

// Timeouts overrides the service-wide startup timeouts for one replica.
type Timeouts struct {
	ReadinessTimeoutS int `json:"readiness_timeout_s,omitempty"`
	PollIntervalS     int `json:"poll_interval_s,omitempty"`
}

// PlatformSettings is required for the platform_workload modes.
type PlatformSettings struct {
	ReleaseLabel          string `json:"release_label,omitempty"`
	ControlPlaneNamespace string `json:"control_plane_namespace,omitempty"`
	JobNamespace          string `json:"job_namespace,omitempty"`
	DeploymentHost        string `json:"deployment_host,omitempty"`
	WorkloadName          string `json:"workload_name,omitempty"`
}

// CreateRequest is the complete payload for creating a replica. The
// coordinator writes it to request.json inside the replica workdir; the
// worker reads it exactly once at startup. That file, plus the state store,
// is the entire contract between the two processes.
type CreateRequest struct {
	Mode      string         `json:"server_mode"`
	ModelName string         `json:"model_name"`
	Config    map[string]any `json:"full_config"`

	Placement Placement         `json:"placement"`
	Platform  *PlatformSettings `json:"platform_config,omitempty"`
	Job       JobSettings       `json:"job,omitempty"`
	Timeouts  Timeouts          `json:"timeouts,omitempty"`

	// WaitForReady defaults to true when omitted.
	WaitForReady   *bool `json:"wait_for_ready,omitempty"`
	RunDiagnostics bool  `json:"run_diagnostics,omitempty"`

	InvokingUser string `json:"invoking_user,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

func (r *CreateRequest) ShouldWaitForReady() bool {
	return r.WaitForReady == nil || *r.WaitForReady
}

// Validate checks the mode label and the per-mode required parameters. It is
// called by the coordinator before any workdir or record exists, so an
// invalid request leaves no orphaned state behind.
func (r *CreateRequest) Validate() (Mode, error) {
	mode, err := ParseMode(r.Mode)
	if err != nil {
		return "", err
	}
	var missing []string
	if r.ModelName == "" {
		missing = append(missing, "model_name")
	}
	if r.Placement.Cluster == "" {
		missing = append(missing, "placement.cluster")
	}
	if len(r.Config) == 0 {
		missing = append(missing, "full_config")
	}
	if mode.IsPlatform() && r.Platform == nil {
		missing = append(missing, "platform_config")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing required parameters for mode %s: %v", mode, missing)
	}
	return mode, nil
}

// LoadRequest reads a request file previously written by the coordinator.
func LoadRequest(path string) (*CreateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	var req CreateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request file: %w", err)
	}
	return &req, nil
}

// WriteRequest drops the request into path as indented JSON.
func WriteRequest(path string, req *CreateRequest) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
