// internal/metrics/collector.go
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "raydium_sniper"

// Collector owns the process metrics. A nil *Collector is valid and records
// nothing, so components can take one unconditionally.
type Collector struct {
	registry *prometheus.Registry

	transactionCounter  *prometheus.CounterVec
	transactionDuration *prometheus.HistogramVec
	rpcLatency          *prometheus.HistogramVec
	rpcErrors           *prometheus.CounterVec
	poolsSeen           prometheus.Counter
	admissions          *prometheus.CounterVec
	openPositions       prometheus.Gauge
	exitTriggers        *prometheus.CounterVec
	websocketReconnects *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transactionCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of swap transactions by side and outcome",
			},
			[]string{"side", "status"},
		),
		transactionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_duration_seconds",
				Help:      "Time from build to confirmation",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"side"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds, including rate limiter wait",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method"},
		),
		rpcErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_errors_total",
				Help:      "RPC requests that returned an error",
			},
			[]string{"method"},
		),
		poolsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pools_seen_total",
			Help:      "New pools forwarded by the pool listener",
		}),
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admission_decisions_total",
				Help:      "Admission filter decisions by result and reason",
			},
			[]string{"result", "reason"},
		),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Number of positions currently held",
		}),
		exitTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exit_triggers_total",
				Help:      "Sells triggered by the exit monitor",
			},
			[]string{"reason"},
		),
		websocketReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "websocket_reconnects_total",
				Help:      "Subscription re-establishments by stream",
			},
			[]string{"stream"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.transactionCounter,
		c.transactionDuration,
		c.rpcLatency,
		c.rpcErrors,
		c.poolsSeen,
		c.admissions,
		c.openPositions,
		c.exitTriggers,
		c.websocketReconnects,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns the scrape handler for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
