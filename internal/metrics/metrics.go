// Package metrics exposes the Prometheus metrics gamecored tracks
// across every Session Runtime actor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamecore_active_sessions",
		Help: "Number of sessions currently Active on this node",
	})

	RoundsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamecore_rounds_resolved_total",
		Help: "Total number of rounds resolved across all sessions on this node",
	})

	SessionsConcluded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamecore_sessions_concluded_total",
		Help: "Total number of sessions that reached Concluded on this node",
	})

	CommandDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gamecore_command_duration_seconds",
		Help:    "Duration of a Session Runtime command from submit to reply",
		Buckets: prometheus.DefBuckets,
	})

	DSSWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamecore_dss_write_failures_total",
		Help: "Total number of DSS upsert failures, retried at the next round boundary",
	})
)
