package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Per-message outcomes reported by the subscription task.
const (
	OutcomePersisted = "persisted"
	OutcomeSkipped   = "skipped"
	OutcomeRequeued  = "requeued"
	OutcomeDropped   = "dropped"
)

var (
	SyncMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_messages_total",
			Help: "Total number of sync event deliveries processed, by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	SyncMessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_message_duration_seconds",
			Help:    "Duration of sync event processing",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"event"},
	)

	ConnectionUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "connection_up",
			Help: "Whether the named transport connection is currently established (1) or not (0)",
		},
		[]string{"component"},
	)
)
