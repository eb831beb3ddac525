package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sarchlab/cohortsim/cycle"
	"github.com/sarchlab/cohortsim/ledger"
)

// Metrics exports the progress and the totals of a run to Prometheus.
type Metrics struct {
	registry *prometheus.Registry

	year          prometheus.Gauge
	yearsDone     prometheus.Counter
	yearDuration  prometheus.Histogram
	stageDuration *prometheus.HistogramVec
	totals        *prometheus.GaugeVec

	mu         sync.Mutex
	yearStart  time.Time
	stageStart time.Time
}

// NewMetrics creates the metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		year: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cohortsim",
			Name:      "year",
			Help:      "Year being processed.",
		}),
		yearsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cohortsim",
			Name:      "years_processed_total",
			Help:      "Number of years emitted.",
		}),
		yearDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cohortsim",
			Name:      "year_duration_seconds",
			Help:      "Time spent processing a year.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cohortsim",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each stage of a year.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"stage"}),
		totals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cohortsim",
			Name:      "ledger_total",
			Help:      "Sum of a ledger field in the last emitted year.",
		}, []string{"field", "year"}),
	}

	m.registry.MustRegister(
		m.year,
		m.yearsDone,
		m.yearDuration,
		m.stageDuration,
		m.totals,
	)

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Func records the hook site.
func (m *Metrics) Func(ctx cycle.HookCtx) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	switch ctx.Pos {
	case cycle.HookPosBeforeYear:
		m.year.Set(float64(ctx.Year))
		m.yearStart = now
		m.stageStart = now
	case cycle.HookPosAfterStage:
		if stage, ok := ctx.Detail.(cycle.Stage); ok {
			m.stageDuration.WithLabelValues(string(stage)).
				Observe(now.Sub(m.stageStart).Seconds())
		}

		m.stageStart = now
	case cycle.HookPosAfterYear:
		m.yearsDone.Inc()
		m.yearDuration.Observe(now.Sub(m.yearStart).Seconds())

		if l, ok := ctx.Item.(*ledger.Ledger); ok {
			year := strconv.Itoa(ctx.Year)
			for _, info := range ledger.Catalogue {
				m.totals.WithLabelValues(info.Name, year).
					Set(float64(l.Total(info.Field)))
			}
		}
	}
}
