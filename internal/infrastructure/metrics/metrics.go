// Package metrics expone los contadores del motor de inventario en Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

// Nombres de las métricas.
const (
	MetricMovementsTotal       = "labstock_movements_applied_total"
	MetricLotOperationsTotal   = "labstock_lot_operations_total"
	MetricLotOperationDuration = "labstock_lot_operation_duration_seconds"
	MetricRecomputesTotal      = "labstock_snapshot_recomputes_total"
)

var _ inventory.Recorder = (*Recorder)(nil)

// Recorder implementa inventory.Recorder sobre un registro Prometheus propio.
type Recorder struct {
	registry    *prometheus.Registry
	movements   *prometheus.CounterVec
	lotOps      *prometheus.CounterVec
	lotDuration *prometheus.HistogramVec
	recomputes  *prometheus.CounterVec
}

// New crea el registro con las métricas del motor y las del runtime de Go.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMovementsTotal,
			Help: "Asientos aplicados al libro por tipo de movimiento.",
		}, []string{"kind"}),
		lotOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricLotOperationsTotal,
			Help: "Operaciones de lote (allocate, rollback, simulate) por resultado.",
		}, []string{"op", "outcome"}),
		lotDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricLotOperationDuration,
			Help:    "Duración de las operaciones de lote.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecomputesTotal,
			Help: "Reconstrucciones del snapshot desde el libro; drift=true si el snapshot persistido difería.",
		}, []string{"drift"}),
	}
	registry.MustRegister(
		r.movements, r.lotOps, r.lotDuration, r.recomputes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// MovementApplied cuenta un asiento aplicado.
func (r *Recorder) MovementApplied(kind entity.MovementKind) {
	r.movements.WithLabelValues(string(kind)).Inc()
}

// LotOperation cuenta una operación de lote y registra su duración.
func (r *Recorder) LotOperation(op, outcome string, elapsed time.Duration) {
	r.lotOps.WithLabelValues(op, outcome).Inc()
	r.lotDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SnapshotRecomputed cuenta una reconstrucción del snapshot.
func (r *Recorder) SnapshotRecomputed(drift bool) {
	label := "false"
	if drift {
		label = "true"
	}
	r.recomputes.WithLabelValues(label).Inc()
}

// Registry registro subyacente.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler expone el registro en formato Prometheus.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
