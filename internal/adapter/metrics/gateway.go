package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics covers the WebSocket broadcast gateway.
type GatewayMetrics struct {
	ActiveConnections   prometheus.Gauge
	ConnectionsTotal    prometheus.Counter
	ConnectionsRejected *prometheus.CounterVec
	Broadcasts          prometheus.Counter
	Deliveries          prometheus.Counter
	DroppedDeliveries   prometheus.Counter
	SlowClientsEvicted  prometheus.Counter
	IdleDisconnects     prometheus.Counter
	PingFailures        prometheus.Counter
	InboundEvents       *prometheus.CounterVec
	PostFailures        *prometheus.CounterVec
	CommandQueueDepth   prometheus.Gauge
	SendDuration        prometheus.Histogram
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "active_connections",
			Help:      "Number of open WebSocket connections in the fan-out set.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "connections_total",
			Help:      "Total number of registered WebSocket connections.",
		}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "connections_rejected_total",
			Help:      "WebSocket upgrades rejected before registration, by reason.",
		}, []string{"reason"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "broadcasts_total",
			Help:      "Total number of messages fanned out to the connection set.",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "deliveries_total",
			Help:      "Total number of frames enqueued to connections.",
		}),
		DroppedDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "dropped_deliveries_total",
			Help:      "Frames addressed to connections that were already gone.",
		}),
		SlowClientsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "slow_clients_evicted_total",
			Help:      "Connections dropped because their send buffer was full.",
		}),
		IdleDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "idle_disconnects_total",
			Help:      "Connections closed after the idle timeout.",
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "ping_failures_total",
			Help:      "Ping frames that could not be written.",
		}),
		InboundEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "inbound_events_total",
			Help:      "Inbound frames by decoded event type.",
		}, []string{"type"}),
		PostFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "post_failures_total",
			Help:      "post-message events answered with an error event, by reason.",
		}, []string{"reason"}),
		CommandQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "command_queue_depth",
			Help:      "Pending commands in the gateway actor queue.",
		}),
		SendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "send_duration_seconds",
			Help:      "Time spent writing a single frame to a socket.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
	}

	reg.MustRegister(
		m.ActiveConnections, m.ConnectionsTotal, m.ConnectionsRejected,
		m.Broadcasts, m.Deliveries, m.DroppedDeliveries, m.SlowClientsEvicted,
		m.IdleDisconnects, m.PingFailures, m.InboundEvents, m.PostFailures,
		m.CommandQueueDepth, m.SendDuration,
	)
	return m
}
