// Package metrics records per-run counters and pushes them to a Prometheus
// Pushgateway. A batch job exits before any scrape, so metrics are pushed.
package metrics

import (
	"context"
	"fmt"
	"time"

	"signal-trader/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

type Recorder struct {
	registry    *prometheus.Registry
	orders      *prometheus.CounterVec
	skips       *prometheus.CounterVec
	signals     prometheus.Gauge
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	lastFailure prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signal_trader_orders_total", Help: "Orders handed to the broker"},
			[]string{"side", "result"},
		),
		skips: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signal_trader_skips_total", Help: "Tickers skipped without an order"},
			[]string{"reason"},
		),
		signals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_trader_signals", Help: "Signal rows for the target date",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_trader_run_duration_seconds", Help: "Wall time of the last run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_trader_last_success_timestamp_seconds", Help: "Unix time of the last run that fetched signals and positions",
		}),
		lastFailure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_trader_last_failure_timestamp_seconds", Help: "Unix time of the last aborted run",
		}),
	}
	r.registry.MustRegister(r.orders, r.skips, r.signals, r.duration, r.lastSuccess, r.lastFailure)
	return r
}

// Observe folds a finished run into the metrics. report may be nil when the
// run aborted before producing one.
func (r *Recorder) Observe(report *types.RunReport, elapsed time.Duration, runErr error) {
	r.duration.Set(elapsed.Seconds())
	if runErr != nil {
		r.lastFailure.SetToCurrentTime()
	} else {
		r.lastSuccess.SetToCurrentTime()
	}
	if report == nil {
		return
	}

	r.signals.Set(float64(report.SignalCount))
	for _, o := range report.Orders {
		result := "ok"
		if o.Failed() {
			result = "error"
		}
		r.orders.WithLabelValues(string(o.Intent.Side), result).Inc()
	}
	for _, s := range report.Skips {
		r.skips.WithLabelValues(string(s.Reason)).Inc()
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Push replaces this job's metric group on the gateway at url.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
