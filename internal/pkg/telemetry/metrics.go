package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	commandsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "disqueria",
			Subsystem: "registry",
			Name:      "commands_handled_total",
			Help:      "Commands dispatched by the service handler registry.",
		},
		[]string{"command", "status"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "disqueria",
			Subsystem: "registry",
			Name:      "command_duration_seconds",
			Help:      "Time spent inside command handlers.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"command"},
	)

	channelCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "disqueria",
			Subsystem: "channel",
			Name:      "calls_total",
			Help:      "Commands sent over transport channels by outcome.",
		},
		[]string{"target", "command", "outcome"},
	)

	channelInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "disqueria",
			Subsystem: "channel",
			Name:      "inflight_calls",
			Help:      "Calls waiting for a reply, per target.",
		},
		[]string{"target"},
	)

	workflowOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "disqueria",
			Subsystem: "orders",
			Name:      "workflow_outcomes_total",
			Help:      "Terminal states reached by the order workflow.",
		},
		[]string{"state"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		commandsHandled,
		commandDuration,
		channelCalls,
		channelInFlight,
		workflowOutcomes,
	)
}

// MetricsHandler exposes Registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ServeMetrics exposes MetricsHandler on addr until ctx is done. An empty
// addr disables it.
func ServeMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// RecordCommand records one handler invocation.
func RecordCommand(command string, status int, d time.Duration) {
	commandsHandled.WithLabelValues(command, statusLabel(status)).Inc()
	commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ChannelCallStarted marks a call as in flight and returns the func that
// records its outcome.
func ChannelCallStarted(target, command string) func(outcome string) {
	g := channelInFlight.WithLabelValues(target)
	g.Inc()
	return func(outcome string) {
		g.Dec()
		channelCalls.WithLabelValues(target, command, outcome).Inc()
	}
}

// RecordWorkflow records the terminal state of one order workflow run.
func RecordWorkflow(state string) {
	workflowOutcomes.WithLabelValues(state).Inc()
}

func statusLabel(status int) string {
	switch {
	case status == 0 || status < 400:
		return "ok"
	case status < 500:
		return "rejected"
	default:
		return "error"
	}
}
