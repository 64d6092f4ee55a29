package workload

import (
	"path/filepath"
	"strings"
	"testing"
)

func validRequest() *CreateRequest {
	return &CreateRequest{
		Mode:      "replica",
		ModelName: "test-model",
		Config:    map[string]any{"batch_size": 8},
		Placement: Placement{Cluster: "dev"},
	}
}

func TestValidateOK(t *testing.T) {
	mode, err := validRequest().Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if mode != ModeReplica {
		t.Errorf("mode = %q", mode)
	}
}

func TestValidateUnknownMode(t *testing.T) {
	req := validRequest()
	req.Mode = "bogus"
	if _, err := req.Validate(); err == nil {
		t.Fatal("Validate accepted unknown mode")
	}
}

func TestValidateMissingParameters(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*CreateRequest)
		field string
	}{
		{"model", func(r *CreateRequest) { r.ModelName = "" }, "model_name"},
		{"cluster", func(r *CreateRequest) { r.Placement.Cluster = "" }, "placement.cluster"},
		{"config", func(r *CreateRequest) { r.Config = nil }, "full_config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mut(req)
			_, err := req.Validate()
			if err == nil {
				t.Fatal("Validate succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not name %s", err, tc.field)
			}
		})
	}
}

func TestValidatePlatformRequiresPlatformConfig(t *testing.T) {
	req := validRequest()
	req.Mode = "platform_workload"
	if _, err := req.Validate(); err == nil {
		t.Fatal("platform mode accepted without platform_config")
	}
	req.Platform = &PlatformSettings{ReleaseLabel: "r1"}
	if _, err := req.Validate(); err != nil {
		t.Fatalf("Validate with platform_config: %v", err)
	}
}

func TestShouldWaitForReadyDefaultsTrue(t *testing.T) {
	req := validRequest()
	if !req.ShouldWaitForReady() {
		t.Error("default should be wait-for-ready")
	}
	f := false
	req.WaitForReady = &f
	if req.ShouldWaitForReady() {
		t.Error("explicit false ignored")
	}
}

func TestRequestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.json")
	req := validRequest()
	req.RequestID = "req-1"
	if err := WriteRequest(path, req); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	got, err := LoadRequest(path)
	if err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	if got.Mode != req.Mode || got.ModelName != req.ModelName || got.RequestID != "req-1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Placement.Cluster != "dev" {
		t.Errorf("placement lost: %+v", got.Placement)
	}
}

func TestLoadRequestMissing(t *testing.T) {
	if _, err := LoadRequest(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("LoadRequest succeeded for missing file")
	}
}
