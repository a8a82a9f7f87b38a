package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics сервиса статистики: откуда пришел снимок и как ведет себя база.
type Metrics struct {
	// Latency БД-агрегации
	QueryDuration *prometheus.HistogramVec

	// Источники ответов: db, cache, last_good, fallback
	SnapshotTotal *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило)
	BreakerOpen prometheus.Gauge
}

func NewServiceMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern: без регистратора метрики летят в никуда
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		QueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phishguard_stats_query_duration_seconds",
			Help:    "Histogram of stats aggregation latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"status"}),

		SnapshotTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "phishguard_stats_snapshots_total",
			Help: "Total snapshots served by source.",
		}, []string{"source"}), // db, cache, last_good, fallback

		BreakerOpen: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "phishguard_stats_breaker_open",
			Help: "Database circuit breaker state (0=closed, 1=open).",
		}),
	}
}
