// Package metrics holds the Prometheus collectors of the feed service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values.
const (
	KindRoot  = "root"
	KindReply = "reply"

	ResultAdded   = "added"
	ResultRemoved = "removed"
)

// FeedMetrics contains Prometheus metrics for the message feed.
// It implements message.Metrics and gate.Recorder.
type FeedMetrics struct {
	PagesServed      prometheus.Counter
	PageSize         prometheus.Histogram
	MessagesCreated  *prometheus.CounterVec
	ReactionToggles  *prometheus.CounterVec
	GateRejections   *prometheus.CounterVec
	SocketClients    prometheus.Gauge
	EventsBroadcasts *prometheus.CounterVec
}

// NewFeedMetrics creates and registers feed metrics with the given registerer.
func NewFeedMetrics(registerer prometheus.Registerer) *FeedMetrics {
	metrics := &FeedMetrics{
		PagesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadline_feed_pages_served_total",
			Help: "Total number of message pages served",
		}),
		PageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "threadline_feed_page_size",
			Help:    "Number of messages returned per page",
			Buckets: []float64{0, 1, 5, 10, 20, 30, 50, 100},
		}),
		MessagesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadline_messages_created_total",
				Help: "Total number of created messages",
			},
			[]string{"kind"}, // kind: root/reply
		),
		ReactionToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadline_reaction_toggles_total",
				Help: "Total number of reaction toggles",
			},
			[]string{"result"}, // result: added/removed
		),
		GateRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadline_gate_rejections_total",
				Help: "Total number of mutations rejected by the write gate",
			},
			[]string{"reason"},
		),
		SocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "threadline_websocket_clients",
			Help: "Current number of connected websocket clients",
		}),
		EventsBroadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadline_events_broadcast_total",
				Help: "Total number of events pushed to websocket subscribers",
			},
			[]string{"event_type"},
		),
	}

	registerer.MustRegister(
		metrics.PagesServed,
		metrics.PageSize,
		metrics.MessagesCreated,
		metrics.ReactionToggles,
		metrics.GateRejections,
		metrics.SocketClients,
		metrics.EventsBroadcasts,
	)

	return metrics
}

// PageServed records one served page.
func (m *FeedMetrics) PageServed(size int) {
	m.PagesServed.Inc()
	m.PageSize.Observe(float64(size))
}

// MessageCreated records a new root message or reply.
func (m *FeedMetrics) MessageCreated(reply bool) {
	kind := KindRoot
	if reply {
		kind = KindReply
	}
	m.MessagesCreated.WithLabelValues(kind).Inc()
}

// ReactionToggled records the direction of a toggle.
func (m *FeedMetrics) ReactionToggled(added bool) {
	result := ResultRemoved
	if added {
		result = ResultAdded
	}
	m.ReactionToggles.WithLabelValues(result).Inc()
}

// GateRejected records a gate rejection.
func (m *FeedMetrics) GateRejected(reason string) {
	m.GateRejections.WithLabelValues(reason).Inc()
}

// ClientConnected tracks websocket connections.
func (m *FeedMetrics) ClientConnected() { m.SocketClients.Inc() }

// ClientDisconnected tracks websocket disconnections.
func (m *FeedMetrics) ClientDisconnected() { m.SocketClients.Dec() }

// EventBroadcast records one event fan-out.
func (m *FeedMetrics) EventBroadcast(eventType string) {
	m.EventsBroadcasts.WithLabelValues(eventType).Inc()
}
