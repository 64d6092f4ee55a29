// Package workload holds the boundary with the launched server processes:
// the supported deployment modes, the creation request payload handed off to
// worker processes, per-mode command resolution and runtime provisioning.
package workload

import "fmt"

// Mode is a supported server deployment mode.
type Mode string

const (
	ModeReplica      Mode = "replica"
	ModeReplicaMock  Mode = "replica_mock"
	ModeGateway      Mode = "api_gateway"
	ModeGatewayMock  Mode = "api_gateway_mock"
	ModePlatform     Mode = "platform_workload"
	ModePlatformMock Mode = "platform_workload_mock"
)

// ParseMode validates a mode label. Unrecognized modes are a hard error.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReplica, ModeReplicaMock, ModeGateway, ModeGatewayMock, ModePlatform, ModePlatformMock:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unsupported server mode: %q", s)
}

func (m Mode) IsMock() bool {
	return m == ModeReplicaMock || m == ModeGatewayMock || m == ModePlatformMock
}

func (m Mode) IsReplica() bool { return m == ModeReplica || m == ModeReplicaMock }

func (m Mode) IsGateway() bool { return m == ModeGateway || m == ModeGatewayMock }

func (m Mode) IsPlatform() bool { return m == ModePlatform || m == ModePlatformMock }

// HasLocalEndpoint reports whether the workload binds a locally reachable
// HTTP endpoint. Platform workloads manage their own external exposure, so
// they are never probed and are trusted to self-report readiness.
func (m Mode) HasLocalEndpoint() bool { return !m.IsPlatform() }
