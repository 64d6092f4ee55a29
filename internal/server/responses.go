package server

import (
	"time"

	"github.com/loykin/replicad/internal/state"
)

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

// replicaResp is the wire representation of one replica.
type replicaResp struct {
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

type listResp struct {
	Replicas []replicaResp `json:"replicas"`
	Count    int           `json:"count"`
}

type healthResp struct {
	ReplicaID string `json:"replica_id"`
	Healthy   bool   `json:"healthy"`
	Status    string `json:"status"`
	Endpoint  string `json:"endpoint"`
}

func newReplicaResp(rec state.Record) replicaResp {
	resp := replicaResp{
		ReplicaID:     rec.ReplicaID,
		Mode:          rec.Mode,
		ModelName:     rec.ModelName,
		Status:        string(rec.Status),
		DisplayStatus: rec.DisplayStatus,
		Endpoint:      rec.Endpoint,
		Cluster:       rec.Cluster,
		Namespace:     rec.Namespace,
		PID:           rec.ReplicaPID,
		CompileJobs:   rec.CompileJobs,
		ExecuteJobs:   rec.ExecuteJobs,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		ReadyAt:       rec.ReadyAt,
		ErrorMessage:  rec.ErrorMessage,
		RequestID:     rec.RequestID,
		Diagnostics:   rec.Diagnostics,
	}
	if resp.DisplayStatus == "" {
		resp.DisplayStatus = rec.Status.Display()
	}
	if resp.Endpoint == "" {
		resp.Endpoint = state.EndpointNA
	}
	if resp.CompileJobs == nil {
		resp.CompileJobs = []string{}
	}
	if resp.ExecuteJobs == nil {
		resp.ExecuteJobs = []string{}
	}
	return resp
}
