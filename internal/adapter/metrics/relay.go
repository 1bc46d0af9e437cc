package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics covers cross-instance fan-out through Redis.
type RelayMetrics struct {
	Published       prometheus.Counter
	Received        prometheus.Counter
	PublishFailures prometheus.Counter
	DecodeFailures  prometheus.Counter
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "published_total",
			Help:      "Messages published to the relay channel.",
		}),
		Received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "received_total",
			Help:      "Messages received from the relay channel.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "publish_failures_total",
			Help:      "Publishes that failed and fell back to local fan-out.",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "decode_failures_total",
			Help:      "Relay payloads that could not be decoded.",
		}),
	}

	reg.MustRegister(m.Published, m.Received, m.PublishFailures, m.DecodeFailures)
	return m
}
