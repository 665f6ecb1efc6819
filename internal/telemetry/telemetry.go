package telemetry

import "github.com/prometheus/client_golang/prometheus"

const meetNamespace string = "meet"

var (
	promConnectionsActive  prometheus.Gauge
	promParticipantsActive prometheus.Gauge
	MembershipCounter      *prometheus.CounterVec
	RelayCounter           *prometheus.CounterVec
)

func init() {
	promConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: meetNamespace,
		Subsystem: "signal",
		Name:      "connections_active",
	})

	promParticipantsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: meetNamespace,
		Subsystem: "membership",
		Name:      "participants_active",
	})

	MembershipCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: meetNamespace,
			Subsystem: "membership",
			Name:      "operations_total",
		},
		[]string{"op", "status"},
	)

	RelayCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: meetNamespace,
			Subsystem: "relay",
			Name:      "messages_total",
		},
		[]string{"kind", "status"},
	)

	prometheus.MustRegister(promConnectionsActive)
	prometheus.MustRegister(promParticipantsActive)
	prometheus.MustRegister(MembershipCounter)
	prometheus.MustRegister(RelayCounter)
}

func ConnectionOpened() { promConnectionsActive.Inc() }

func ConnectionClosed() { promConnectionsActive.Dec() }

func ParticipantAdded() { promParticipantsActive.Inc() }

func ParticipantRemoved() { promParticipantsActive.Dec() }

func Membership(op, status string) {
	MembershipCounter.WithLabelValues(op, status).Inc()
}

// Relayed records the outcome of one fan-out or targeted send.
func Relayed(kind string, sent, dropped int) {
	if sent > 0 {
		RelayCounter.WithLabelValues(kind, "sent").Add(float64(sent))
	}
	if dropped > 0 {
		RelayCounter.WithLabelValues(kind, "dropped").Add(float64(dropped))
	}
}

func RelayStale(kind string) {
	RelayCounter.WithLabelValues(kind, "stale").Inc()
}
