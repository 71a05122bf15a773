package pipeline

import (
	"strconv"
	"time"

	"github.com/farxc/cuipo/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cuipo_stage_runs_total",
			Help: "Stage and snapshot executions by outcome.",
		}, []string{"stage", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cuipo_stage_duration_seconds",
			Help:    "Wall time of stage executions, including rolled back ones.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cuipo_stage_rows_affected_total",
			Help: "Rows changed by committed stage steps.",
		}, []string{"stage", "step"}),
	}
	reg.MustRegister(m.runs, m.duration, m.rows)
	return m
}

func (m *Metrics) observe(stage int, status string, elapsed time.Duration, steps store.StepCounts) {
	if m == nil {
		return
	}
	label := strconv.Itoa(stage)
	m.runs.WithLabelValues(label, status).Inc()
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
	for _, s := range steps {
		m.rows.WithLabelValues(label, s.Step).Add(float64(s.Rows))
	}
}
