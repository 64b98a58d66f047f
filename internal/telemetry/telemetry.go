// Package telemetry provides opt-in, low-overhead live metrics for long
// benchmark sweeps. When disabled, all public functions are no-ops, so
// callers can instrument unconditionally.
package telemetry

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the telemetry module.
//
// MetricsAddr, when non-empty, starts a dedicated HTTP server serving
// /metrics. Leave it empty if Prometheus is already exposed elsewhere.
type Config struct {
	Enabled     bool
	MetricsAddr string // e.g. ":9090"; empty disables the endpoint
}

var enabled atomic.Bool

var (
	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "histotune_runs_total",
		Help: "Benchmark configurations executed, by outcome",
	}, []string{"status"})

	lastLatencyUS = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "histotune_last_latency_us",
		Help: "Mean latency of the most recently completed configuration, microseconds",
	})

	latencyUS = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "histotune_latency_us",
		Help:    "Distribution of per-configuration mean latencies, microseconds",
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	})
)

// Enable turns telemetry on and, if configured, binds the metrics endpoint
func Enable(cfg Config) error {
	if !cfg.Enabled {
		return nil
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(runsTotal); err != nil {
		return err
	}
	if err := reg.Register(lastLatencyUS); err != nil {
		return err
	}
	if err := reg.Register(latencyUS); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			// Sweep keeps running if the endpoint cannot bind
			_ = http.ListenAndServe(cfg.MetricsAddr, mux)
		}()
	}

	enabled.Store(true)
	return nil
}

// ObserveRun records the outcome of one benchmark configuration
func ObserveRun(meanUS float64, ok bool) {
	if !enabled.Load() {
		return
	}
	if ok {
		runsTotal.WithLabelValues("pass").Inc()
		lastLatencyUS.Set(meanUS)
		latencyUS.Observe(meanUS)
	} else {
		runsTotal.WithLabelValues("fail").Inc()
	}
}
