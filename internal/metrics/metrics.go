// Package metrics registers the ambient prometheus collectors for the
// service: frame throughput, active subscriber count, and dropped
// mailbox deliveries. Nothing in the rest of the module reads these
// back; they exist purely for export via the server's /metrics endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FramesSent counts frames written to any substream.
	FramesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kvbroker",
		Name:      "frames_sent_total",
		Help:      "Total number of wire frames written.",
	})
	// FramesReceived counts frames read from any substream.
	FramesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kvbroker",
		Name:      "frames_received_total",
		Help:      "Total number of wire frames read.",
	})
	// ActiveSubscribers gauges the broadcaster's current subscription count.
	ActiveSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvbroker",
		Name:      "active_subscribers",
		Help:      "Current number of subscriber mailboxes.",
	})
	// MailboxDrops counts publishes dropped due to a full subscriber mailbox.
	MailboxDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kvbroker",
		Name:      "mailbox_drops_total",
		Help:      "Total number of publishes dropped because a subscriber mailbox was full.",
	})
)

// Registry returns a private registry with all collectors registered,
// for use by a /metrics HTTP handler set up by the server's caller.
func Registry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(FramesSent, FramesReceived, ActiveSubscribers, MailboxDrops)
	return r
}
