package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"garagepro/internal/events"
)

var (
	SessionsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "garage_sessions_active",
		Help: "Open sessions per role",
	}, []string{"role"})

	SessionsOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_sessions_opened_total",
		Help: "Sessions opened per role",
	}, []string{"role"})

	SessionsClosedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_sessions_closed_total",
		Help: "Sessions closed per role and reason",
	}, []string{"role", "reason"})

	SessionTimeoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_session_timeouts_total",
		Help: "Idle timeouts fired per role",
	}, []string{"role"})

	ActivitySignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_activity_signals_total",
		Help: "Activity signals received per kind",
	}, []string{"kind"})

	PolicyFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "garage_policy_fallback_total",
		Help: "Times the default session timeout was used because the policy lookup failed",
	})
)

func init() {
	prometheus.MustRegister(
		SessionsActive,
		SessionsOpenedTotal,
		SessionsClosedTotal,
		SessionTimeoutsTotal,
		ActivitySignalsTotal,
		PolicyFallbackTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RegisterEventHandler wires metric updates to the event emitter.
func RegisterEventHandler(emitter *events.Emitter) {
	emitter.OnEvent(func(ev events.Event) {
		switch ev.Type {
		case events.SessionOpened:
			SessionsActive.WithLabelValues(ev.Role).Inc()
			SessionsOpenedTotal.WithLabelValues(ev.Role).Inc()
		case events.SessionClosed:
			SessionsActive.WithLabelValues(ev.Role).Dec()
			SessionsClosedTotal.WithLabelValues(ev.Role, ev.Fields["reason"]).Inc()
		case events.SessionTimeout:
			SessionTimeoutsTotal.WithLabelValues(ev.Role).Inc()
		case events.SessionActivity:
			ActivitySignalsTotal.WithLabelValues(ev.Fields["kind"]).Inc()
		case events.PolicyFallback:
			PolicyFallbackTotal.Inc()
		}
	})
}
