package client

import "time"

// CreateRequest mirrors the daemon's replica creation payload.
type CreateRequest struct {
	Mode      string         `json:"server_mode"`
	ModelName string         `json:"model_name"`
	Config    map[string]any `json:"full_config"`

	Placement Placement         `json:"placement"`
	Platform  *PlatformSettings `json:"platform_config,omitempty"`
	Timeouts  *Timeouts         `json:"timeouts,omitempty"`

	WaitForReady   *bool `json:"wait_for_ready,omitempty"`
	RunDiagnostics bool  `json:"run_diagnostics,omitempty"`

	InvokingUser string `json:"invoking_user,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

type Placement struct {
	Cluster   string `json:"cluster"`
	Node      string `json:"node,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	AppTag    string `json:"app_tag,omitempty"`
}

type PlatformSettings struct {
	ReleaseLabel          string `json:"release_label,omitempty"`
	ControlPlaneNamespace string `json:"control_plane_namespace,omitempty"`
	JobNamespace          string `json:"job_namespace,omitempty"`
	DeploymentHost        string `json:"deployment_host,omitempty"`
	WorkloadName          string `json:"workload_name,omitempty"`
}

type Timeouts struct {
	ReadinessTimeoutS int `json:"readiness_timeout_s,omitempty"`
	PollIntervalS     int `json:"poll_interval_s,omitempty"`
}

// Replica is the daemon's wire representation of one replica.
type Replica struct {
	ReplicaID     string `json:"replica_id"`
	Mode          string `json:"server_mode"`
	ModelName     string `json:"model_name"`
	Status        string `json:"status"`
	DisplayStatus string `json:"display_status"`
	Endpoint      string `json:"endpoint"`
	Cluster       string `json:"cluster,omitempty"`
	Namespace     string `json:"namespace,omitempty"`
	PID           int    `json:"pid,omitempty"`

	CompileJobs []string `json:"compile_jobs"`
	ExecuteJobs []string `json:"execute_jobs"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ReadyAt   *time.Time `json:"ready_at,omitempty"`

	ErrorMessage string         `json:"error_message,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Diagnostics  map[string]any `json:"diagnostics,omitempty"`
}

type ListResponse struct {
	Replicas []Replica `json:"replicas"`
	Count    int       `json:"count"`
}

type Health struct {
	ReplicaID string `json:"replica_id"`
	Healthy   bool   `json:"healthy"`
	Status    string `json:"status"`
	Endpoint  string `json:"endpoint"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
