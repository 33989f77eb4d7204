package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bars_total", Help: "Closed bars produced by the aggregator"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Strategy entry signals emitted"},
		[]string{"strategy", "direction"},
	)
	SkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "admission_skips_total", Help: "Signals rejected by the admission gate"},
		[]string{"reason"},
	)
	FlipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "flips_total", Help: "Applied position flips"},
	)
	ExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "protective_exits_total", Help: "Protective exit closes by reason"},
		[]string{"reason"},
	)
	ReconcileFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "reconcile_failures_total", Help: "Genuine local/authoritative position mismatches"},
	)
	FrozenGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "reconcile_frozen", Help: "1 while trading is frozen after reconcile failures"},
	)
	PositionSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "position_size", Help: "Absolute size of the held position"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, BarsTotal, SignalsTotal, SkipsTotal,
		FlipsTotal, ExitsTotal, ReconcileFailures, FrozenGauge, PositionSize,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
