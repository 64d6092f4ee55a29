package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/replicas", func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid JSON"})
			return
		}
		if req.Mode == "bogus" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "unsupported server mode"})
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(Replica{ReplicaID: "abc123def456", Mode: req.Mode, Status: "pending"})
	})
	mux.HandleFunc("GET /api/v1/replicas", func(w http.ResponseWriter, r *http.Request) {
		out := ListResponse{Replicas: []Replica{{ReplicaID: "abc123def456", Status: "ready"}}, Count: 1}
		if r.URL.Query().Get("status") == "failed" {
			out = ListResponse{Replicas: []Replica{}}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("GET /api/v1/replicas/abc123def456", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Replica{ReplicaID: "abc123def456", Status: "ready", Endpoint: "http://h:9"})
	})
	mux.HandleFunc("GET /api/v1/replicas/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "replica not found: missing"})
	})
	mux.HandleFunc("POST /api/v1/replicas/abc123def456/stop", func(w http.ResponseWriter, r *http.Request) {
		rec := Replica{ReplicaID: "abc123def456", Status: "stopped"}
		if r.URL.Query().Get("force") == "true" {
			rec.ErrorMessage = "forced"
		}
		_ = json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("DELETE /api/v1/replicas/abc123def456", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	mux.HandleFunc("GET /api/v1/replicas/abc123def456/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Health{ReplicaID: "abc123def456", Healthy: true, Status: "ready"})
	})
	return httptest.NewServer(mux)
}

func testClient(srv *httptest.Server) *Client {
	return New(Config{BaseURL: srv.URL + "/api/v1"})
}

func TestCreate(t *testing.T) {
	srv := fakeDaemon(t)
	defer srv.Close()
	c := testClient(srv)

	rec, err := c.Create(context.Background(), CreateRequest{
		Mode:      "replica",
		ModelName: "m",
		Config:    map[string]any{"k": "v"},
		Placement: Placement{Cluster: "dev"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ReplicaID != "abc123def456" || rec.Status != "pending" {
		t.Errorf("rec = %+v", rec)
	}
}

func TestCreateAPIError(t *testing.T) {
	srv := fakeDaemon(t)
	defer srv.Close()
	c := testClient(srv)

	_, err := c.Create(context.Background(), CreateRequest{Mode: "bogus"})
	if err == nil {
		t.Fatal("Create succeeded for rejected mode")
	}
	if !strings.Contains(err.Error(), "unsupported server mode") {
		t.Errorf("error does not carry API message: %v", err)
	}
}

func TestListAndFilters(t *testing.T) {
	srv := fakeDaemon(t)
	defer srv.Close()
	c := testClient(srv)

	recs, err := c.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("List = %d replicas", len(recs))
	}

	recs, err = c.List(context.Background(), ListFilter{Status: "failed"})
	if err != nil {
		t.Fatalf("filtered List: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("filtered List = %d replicas", len(recs))
	}
}

func TestGet(t *testing.T) {
	srv := fakeDaemon(t)
	defer srv.Close()
	c := testClient(srv)

	rec, err := c.Get(context.Background(), "abc123def456")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Endpoint != "http://h:9" {
		t.Errorf("rec = %+v", rec)
	}

	if _, err := c.Get(context.Background(), "missing"); err == nil {
		t.Fatal("Get succeeded for missing replica")
	}
}

func TestStopDeleteHealth(t *testing.T) {
	srv := fakeDaemon(t)
	defer srv.Close()
	c := testClient(srv)
	ctx := context.Background()

	rec, err := c.Stop(ctx, "abc123def456", true)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.Status != "stopped" || rec.ErrorMessage != "forced" {
		t.Errorf("stop rec = %+v", rec)
	}

	if err := c.Delete(ctx, "abc123def456"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	h, err := c.Health(ctx, "abc123def456")
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !h.Healthy {
		t.Errorf("health = %+v", h)
	}
}

func TestIsReachable(t *testing.T) {
	srv := fakeDaemon(t)
	c := testClient(srv)
	if !c.IsReachable(context.Background()) {
		t.Error("running daemon reported unreachable")
	}
	srv.Close()
	if c.IsReachable(context.Background()) {
		t.Error("closed daemon reported reachable")
	}
}
