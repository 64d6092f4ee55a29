package replicad

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/replicad/internal/config"
	"github.com/loykin/replicad/internal/history"
	"github.com/loykin/replicad/internal/history/factory"
	"github.com/loykin/replicad/internal/manager"
	"github.com/loykin/replicad/internal/metrics"
	iapi "github.com/loykin/replicad/internal/server"
	"github.com/loykin/replicad/internal/state"
	"github.com/loykin/replicad/internal/workload"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type CreateRequest = workload.CreateRequest

type Placement = workload.Placement

type Record = state.Record

type Status = state.Status

type ListFilter = manager.ListFilter

type Config = manager.Config

type HistorySink = history.Sink

// Manager is a thin facade over internal/manager.Manager.
// It provides a stable public API for embedding.
type Manager struct{ inner *manager.Manager }

func New(c Config) (*Manager, error) {
	inner, err := manager.New(c)
	if err != nil {
		return nil, err
	}
	return &Manager{inner: inner}, nil
}

func (m *Manager) Create(req *CreateRequest) (Record, error) { return m.inner.Create(req) }
func (m *Manager) Get(id string) (Record, error)             { return m.inner.Get(id) }
func (m *Manager) List(f ListFilter) ([]Record, error)       { return m.inner.List(f) }
func (m *Manager) Stop(id string, force bool) (Record, error) {
	return m.inner.Stop(id, force)
}
func (m *Manager) Delete(id string) (bool, error)     { return m.inner.Delete(id) }
func (m *Manager) HealthCheck(id string) (bool, error) { return m.inner.HealthCheck(id) }
func (m *Manager) StartMonitoring()                    { m.inner.StartMonitoring() }
func (m *Manager) StopMonitoring()                     { m.inner.StopMonitoring() }
func (m *Manager) CleanupAll()                         { m.inner.CleanupAll() }
func (m *Manager) SetHistorySinks(sinks ...HistorySink) {
	m.inner.SetHistorySinks(sinks...)
}
func (m *Manager) SetWorkerLauncher(fn func(id, requestFile, workdir string) (int, error)) {
	m.inner.SetWorkerLauncher(fn)
}
func (m *Manager) Close() { m.inner.Close() }

func LoadConfig(path string) (cfg.FileConfig, error) { return cfg.Load(path) }

// NewHistorySink builds a lifecycle-event sink from a DSN
// (sqlite://, postgres://, clickhouse://).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewHTTPServer starts an HTTP server exposing the replica API using the
// given manager.
func NewHTTPServer(addr, basePath string, m *Manager) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, m.inner)
}

// NewHTTPHandler returns the replica API as an http.Handler for mounting in
// an existing server or mux.
func NewHTTPHandler(basePath string, m *Manager) http.Handler {
	return iapi.NewRouter(m.inner, basePath).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It blocks in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
