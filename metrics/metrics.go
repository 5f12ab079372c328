// Package metrics exposes the APRS-IS session counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"sagebot/log"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every sagebot collector.
var Registry = prometheus.NewRegistry()

var (
	// SessionState is 1 for the current connection state, 0 for the others.
	SessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sagebot_aprsis_session_state",
			Help: "Current APRS-IS connection state (1 for the active state).",
		},
		[]string{"state"},
	)

	// ConnectsTotal counts successful TCP connects.
	ConnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sagebot_aprsis_connects_total",
			Help: "Total number of TCP connections opened to the APRS-IS server.",
		},
	)

	// LogonsTotal counts finished logons by result.
	LogonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagebot_aprsis_logons_total",
			Help: "Total number of logon attempts by result.",
		},
		[]string{"result"}, // verified/unverified/timed out/connection dropped
	)

	// LinesReceivedTotal counts inbound lines by classification.
	LinesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagebot_aprsis_lines_received_total",
			Help: "Total number of lines received while verified, by kind.",
		},
		[]string{"kind"},
	)

	// LinesSentTotal counts outbound frames by status.
	LinesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagebot_aprsis_lines_sent_total",
			Help: "Total number of frames written to the server.",
		},
		[]string{"status"}, // success/failed/rejected
	)
)

func init() {
	Registry.MustRegister(SessionState)
	Registry.MustRegister(ConnectsTotal)
	Registry.MustRegister(LogonsTotal)
	Registry.MustRegister(LinesReceivedTotal)
	Registry.MustRegister(LinesSentTotal)
	Registry.MustRegister(collectors.NewGoCollector())
}

// SetState marks state as the active one among all.
func SetState(state string, all ...string) {
	for _, s := range all {
		SessionState.WithLabelValues(s).Set(0)
	}
	SessionState.WithLabelValues(state).Set(1)
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger log.Logger) error {
	logger = log.OrNop(logger).WithName("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Annotatef(err, "metrics listener %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return errors.Trace(srv.Shutdown(shutdownCtx))
	}
}
