// Package metrics exposes Prometheus collectors for the canvas server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sharedcanvas"

// Collectors holds every metric the server updates. All fields are safe for
// concurrent use.
type Collectors struct {
	Connections  prometheus.Gauge
	HistoryDepth prometheus.Gauge
	RedoDepth    prometheus.Gauge
	Events       *prometheus.CounterVec
	Rejected     *prometheus.CounterVec
	Dropped      prometheus.Counter
	Broadcasts   prometheus.Counter
}

// New registers the collectors with reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	return &Collectors{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of connected participants",
		}),
		HistoryDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_strokes",
			Help:      "Number of strokes in the shared history",
		}),
		RedoDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redo_strokes",
			Help:      "Number of strokes waiting on the redo stack",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events received from participants, by type",
		}, []string{"type"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Inbound events dropped, by reason",
		}, []string{"reason"}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_dropped_total",
			Help:      "Participants disconnected because their send queue was full",
		}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Messages fanned out to every participant",
		}),
	}
}

// ObserveBoard records the current depth of the history and redo stack.
func (c *Collectors) ObserveBoard(history, redo int) {
	c.HistoryDepth.Set(float64(history))
	c.RedoDepth.Set(float64(redo))
}
