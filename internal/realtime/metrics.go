package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	// liveConnections gauges websocket connections currently registered.
	liveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_live_connections",
			Help: "Current number of registered websocket connections.",
		},
	)

	// inboundEvents counts client events by type and outcome (ok|error|rejected).
	inboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_inbound_events_total",
			Help: "Total number of client events processed.",
		},
		[]string{"type", "outcome"},
	)

	// outboundEvents counts pushes by event type and result (sent|dropped).
	outboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_outbound_events_total",
			Help: "Total number of server events pushed to connections.",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(liveConnections, inboundEvents, outboundEvents)
}

// ObserveInbound records the outcome of one processed client event.
func ObserveInbound(eventType, outcome string) {
	inboundEvents.WithLabelValues(eventType, outcome).Inc()
}

func observeOutbound(eventType string, err error) {
	result := "sent"
	if err != nil {
		result = "dropped"
	}
	outboundEvents.WithLabelValues(eventType, result).Inc()
}
