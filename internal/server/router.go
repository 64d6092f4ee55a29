package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	mng "github.com/loykin/replicad/internal/manager"
	"github.com/loykin/replicad/internal/workload"
)

// Router provides embeddable HTTP handlers for replica lifecycle management.
// Endpoints (under {basePath}, default "/api/v1"):
//   POST   /replicas              body: CreateRequest JSON
//   GET    /replicas              query: mode=...&status=...&model=...
//   GET    /replicas/:id
//   POST   /replicas/:id/stop     query: force=true (optional)
//   DELETE /replicas/:id
//   GET    /replicas/:id/health
//   GET    /healthz
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	mgr      *mng.Manager
	basePath string
}

// NewRouter constructs a Router with configurable basePath.
func NewRouter(mgr *mng.Manager, basePath string) *Router {
	return &Router{mgr: mgr, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/replicas", r.handleCreate)
	group.GET("/replicas", r.handleList)
	group.GET("/replicas/:id", r.handleGet)
	group.POST("/replicas/:id/stop", r.handleStop)
	group.DELETE("/replicas/:id", r.handleDelete)
	group.GET("/replicas/:id/health", r.handleHealth)
	g.GET("/healthz", r.handleServiceHealth)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router. Shut
// it down via the returned http.Server.
func NewServer(addr, basePath string, mgr *mng.Manager) (*http.Server, error) {
	r := NewRouter(mgr, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

func (r *Router) handleCreate(c *gin.Context) {
	var req workload.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	rec, err := r.mgr.Create(&req)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusAccepted, newReplicaResp(rec))
}

func (r *Router) handleList(c *gin.Context) {
	recs, err := r.mgr.List(mng.ListFilter{
		Mode:   c.Query("mode"),
		Status: c.Query("status"),
		Model:  c.Query("model"),
	})
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	out := listResp{Replicas: make([]replicaResp, 0, len(recs))}
	for _, rec := range recs {
		out.Replicas = append(out.Replicas, newReplicaResp(rec))
	}
	out.Count = len(out.Replicas)
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleGet(c *gin.Context) {
	id := c.Param("id")
	if !isSafeID(id) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid replica id"})
		return
	}
	rec, err := r.mgr.Get(id)
	if errors.Is(err, mng.ErrNotFound) {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "replica not found: " + id})
		return
	}
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, newReplicaResp(rec))
}

func (r *Router) handleStop(c *gin.Context) {
	id := c.Param("id")
	if !isSafeID(id) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid replica id"})
		return
	}
	force := c.Query("force") == "true" || c.Query("force") == "1"
	rec, err := r.mgr.Stop(id, force)
	if errors.Is(err, mng.ErrNotFound) {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "replica not found: " + id})
		return
	}
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, newReplicaResp(rec))
}

func (r *Router) handleDelete(c *gin.Context) {
	id := c.Param("id")
	if !isSafeID(id) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid replica id"})
		return
	}
	deleted, err := r.mgr.Delete(id)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if !deleted {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "replica not found: " + id})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleHealth(c *gin.Context) {
	id := c.Param("id")
	if !isSafeID(id) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid replica id"})
		return
	}
	rec, err := r.mgr.Get(id)
	if errors.Is(err, mng.ErrNotFound) {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "replica not found: " + id})
		return
	}
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	healthy, _ := r.mgr.HealthCheck(id)
	writeJSON(c, http.StatusOK, healthResp{
		ReplicaID: id,
		Healthy:   healthy,
		Status:    string(rec.Status),
		Endpoint:  rec.Endpoint,
	})
}

func (r *Router) handleServiceHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
