package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ReminderOutcomeSent      = "sent"
	ReminderOutcomeFailed    = "failed"
	ReminderOutcomeClaimLost = "claim_lost"
)

// CollectionMetrics tracks the reminder queue and its dispatch outcomes.
type CollectionMetrics struct {
	reminders *prometheus.CounterVec
	queueSize prometheus.Gauge
}

// NewCollectionMetrics registers the collection instruments on the default registry.
func NewCollectionMetrics(cfg Config) *CollectionMetrics {
	return newCollectionMetrics(prometheus.DefaultRegisterer, cfg)
}

func newCollectionMetrics(registerer prometheus.Registerer, cfg Config) *CollectionMetrics {
	constLabels := serviceLabels(cfg)
	return &CollectionMetrics{
		reminders: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mensalidade_collection_reminders_total",
			Help:        "Reminder dispatch attempts by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"})),
		queueSize: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mensalidade_collection_queue_size",
			Help:        "Installments selected by the last queue evaluation.",
			ConstLabels: constLabels,
		})),
	}
}

func (m *CollectionMetrics) IncReminder(outcome string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(outcome).Inc()
}

func (m *CollectionMetrics) SetQueueSize(size int) {
	if m == nil {
		return
	}
	m.queueSize.Set(float64(size))
}
