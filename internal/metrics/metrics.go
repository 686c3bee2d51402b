// Package metrics exposes wristd's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll outcome label values.
const (
	PollResultEvents       = "events"
	PollResultTimeout      = "timeout"
	PollResultStale        = "stale"
	PollResultNeedEntities = "need_entities"
)

// Redemption outcome label values.
const (
	RedeemResultOK              = "ok"
	RedeemResultNotFound        = "not_found"
	RedeemResultExpired         = "expired"
	RedeemResultAlreadyRedeemed = "already_redeemed"
	RedeemResultError           = "error"
)

// Metrics bundles all wristd collectors behind one registry.
type Metrics struct {
	registry *prometheus.Registry

	EventsAppended     prometheus.Counter
	EventsDelivered    prometheus.Counter
	PollRequests       *prometheus.CounterVec
	ActiveWaiters      prometheus.Gauge
	ActiveSessions     prometheus.Gauge
	BufferUsed         prometheus.Gauge
	PairingRedemptions *prometheus.CounterVec
	PairingCreated     prometheus.Counter
	SourceReconnects   prometheus.Counter
}

// New creates a Metrics with its own registry, including the standard Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "wristd_events_appended_total",
			Help: "Change events appended to the delta log.",
		}),
		EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "wristd_events_delivered_total",
			Help: "Delta events delivered in long-poll responses.",
		}),
		PollRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wristd_poll_requests_total",
			Help: "Long-poll requests by outcome.",
		}, []string{"result"}),
		ActiveWaiters: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wristd_active_waiters",
			Help: "Long-poll requests currently parked.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wristd_active_sessions",
			Help: "Live watch sessions.",
		}),
		BufferUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wristd_event_buffer_used",
			Help: "Events currently retained in the delta log.",
		}),
		PairingRedemptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wristd_pairing_redemptions_total",
			Help: "Pairing code redemption attempts by outcome.",
		}, []string{"result"}),
		PairingCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "wristd_pairing_codes_created_total",
			Help: "Pairing codes created.",
		}),
		SourceReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "wristd_source_reconnects_total",
			Help: "Reconnect attempts of the upstream change-event source.",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
