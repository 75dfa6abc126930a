// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter
	PushSignals       prometheus.Counter
	ActiveSockets     prometheus.Gauge

	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// New registers the server's collectors on reg. Pass
// prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "nachtrat_sessions_created_total",
			Help: "Sessions created since process start.",
		}),
		SessionsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "nachtrat_sessions_destroyed_total",
			Help: "Sessions destroyed, by end_game or the janitor.",
		}),
		PushSignals: factory.NewCounter(prometheus.CounterOpts{
			Name: "nachtrat_push_signals_total",
			Help: "Dirty signals fanned out to session subscribers.",
		}),
		ActiveSockets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nachtrat_active_websockets",
			Help: "Currently connected websocket subscribers.",
		}),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nachtrat_commands_total",
			Help: "Commands executed, by action and result kind.",
		}, []string{"action", "result"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nachtrat_command_duration_seconds",
			Help:    "End-to-end command execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
	}
}

// ObserveCommand records one executed command.
func (m *Metrics) ObserveCommand(action, result string, d time.Duration) {
	m.commandsTotal.WithLabelValues(action, result).Inc()
	m.commandDuration.WithLabelValues(action).Observe(d.Seconds())
}
