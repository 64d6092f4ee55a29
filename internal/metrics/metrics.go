package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	replicaCreates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "replicad",
			Subsystem: "replica",
			Name:      "creates_total",
			Help:      "Number of replica creation requests accepted.",
		}, []string{"mode"},
	)
	replicaStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "replicad",
			Subsystem: "replica",
			Name:      "stops_total",
			Help:      "Number of replica stop requests (graceful or forced).",
		}, []string{"forced"},
	)
	replicaDeletes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "replicad",
			Subsystem: "replica",
			Name:      "deletes_total",
			Help:      "Number of replica deletions.",
		},
	)
	deadReplicas = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "replicad",
			Subsystem: "monitor",
			Name:      "dead_replicas_total",
			Help:      "Replicas the monitor found dead and marked failed.",
		},
	)
	monitorTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "replicad",
			Subsystem: "monitor",
			Name:      "ticks_total",
			Help:      "Completed monitor reconciliation ticks.",
		},
	)
	replicasByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "replicad",
			Subsystem: "replica",
			Name:      "current",
			Help:      "Current number of replicas per status.",
		}, []string{"status"},
	)
)

// Register registers all metrics with the provided registerer. It is safe to
// call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		replicaCreates, replicaStops, replicaDeletes, deadReplicas, monitorTicks, replicasByStatus,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an HTTP handler serving the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func IncCreate(mode string) { replicaCreates.WithLabelValues(mode).Inc() }

func IncStop(forced bool) {
	v := "false"
	if forced {
		v = "true"
	}
	replicaStops.WithLabelValues(v).Inc()
}

func IncDelete() { replicaDeletes.Inc() }

func IncDeadReplica() { deadReplicas.Inc() }

func IncMonitorTick() { monitorTicks.Inc() }

func SetReplicasByStatus(status string, n int) {
	replicasByStatus.WithLabelValues(status).Set(float64(n))
}
