package metrics

import (
	"matchlobby/internal/services/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "matchlobby"

// Metrics exposes registry and connection counts to Prometheus.
type Metrics struct {
	openSessions prometheus.Gauge
	sessions     prometheus.Gauge
	connections  prometheus.Gauge
	moves        *prometheus.CounterVec
	closed       *prometheus.CounterVec
	created      prometheus.Counter
}

var _ session.Recorder = (*Metrics)(nil)

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		openSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_sessions",
			Help:      "Sessions with a free seat.",
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Sessions held by the registry.",
		}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live websocket connections.",
		}),
		moves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Moves submitted, by result.",
		}, []string{"result"}),
		closed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Sessions removed from the registry, by reason.",
		}, []string{"reason"}),
		created: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created.",
		}),
	}
}

func (m *Metrics) Record(ev session.Event) {
	m.openSessions.Set(float64(ev.Open))
	m.sessions.Set(float64(ev.Total))

	switch ev.Kind {
	case session.KindCreated:
		m.created.Inc()
	case session.KindMove:
		m.moves.WithLabelValues("accepted").Inc()
	case session.KindMoveRejected:
		m.moves.WithLabelValues("rejected").Inc()
	case session.KindClosed:
		m.closed.WithLabelValues(ev.Reason).Inc()
	}
}

func (m *Metrics) ConnOpened() { m.connections.Inc() }
func (m *Metrics) ConnClosed() { m.connections.Dec() }
