package workload

import "testing"

func TestParseMode(t *testing.T) {
	valid := []string{
		"replica", "replica_mock",
		"api_gateway", "api_gateway_mock",
		"platform_workload", "platform_workload_mock",
	}
	for _, s := range valid {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"", "Replica", "replica ", "unknown", "gateway"} {
		if _, err := ParseMode(s); err == nil {
			t.Errorf("ParseMode(%q) succeeded, want error", s)
		}
	}
}

func TestModePredicates(t *testing.T) {
	if !ModeReplicaMock.IsMock() || ModeReplica.IsMock() {
		t.Error("IsMock wrong")
	}
	if !ModeReplica.IsReplica() || ModeGateway.IsReplica() {
		t.Error("IsReplica wrong")
	}
	if !ModeGatewayMock.IsGateway() || ModePlatform.IsGateway() {
		t.Error("IsGateway wrong")
	}
	if !ModePlatformMock.IsPlatform() || ModeReplica.IsPlatform() {
		t.Error("IsPlatform wrong")
	}
}

func TestHasLocalEndpoint(t *testing.T) {
	for _, m := range []Mode{ModeReplica, ModeReplicaMock, ModeGateway, ModeGatewayMock} {
		if !m.HasLocalEndpoint() {
			t.Errorf("%s should have a local endpoint", m)
		}
	}
	for _, m := range []Mode{ModePlatform, ModePlatformMock} {
		if m.HasLocalEndpoint() {
			t.Errorf("%s should not have a local endpoint", m)
		}
	}
}
