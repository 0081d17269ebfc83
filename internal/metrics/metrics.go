// Package metrics holds the Prometheus collectors for the controller and
// the per-channel prober. Each process registers its own set on a private
// registry; nothing is registered globally.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "hlsfleet"

type Controller struct {
	Reconciles     *prometheus.CounterVec
	RuntimeActions *prometheus.CounterVec
	Workers        *prometheus.GaugeVec
}

func NewController(reg prometheus.Registerer) *Controller {
	m := &Controller{
		Reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Reconciliation passes by result (ok, partial, skipped).",
		}, []string{"result"}),
		RuntimeActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runtime_actions_total",
			Help:      "Runtime create/remove calls by result.",
		}, []string{"action", "result"}),
		Workers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Desired and actual worker counts seen by the last pass.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Reconciles, m.RuntimeActions, m.Workers)
	}
	return m
}

type Prober struct {
	Probes       *prometheus.CounterVec
	BreakerState prometheus.Gauge
	Duration     prometheus.Histogram
}

func NewProber(reg prometheus.Registerer, channelID string) *Prober {
	labels := prometheus.Labels{"channel_id": channelID}
	m := &Prober{
		Probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "probes_total",
			Help:        "Probe cycles by resulting phase.",
			ConstLabels: labels,
		}, []string{"phase"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "breaker_state",
			Help:        "Circuit breaker state (0 closed, 1 open, 2 half-open).",
			ConstLabels: labels,
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "probe_duration_seconds",
			Help:        "Wall time of one probe cycle including retries.",
			ConstLabels: labels,
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Probes, m.BreakerState, m.Duration)
	}
	return m
}

// Serve exposes reg on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, log *zap.Logger) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
