// Package metrics exposes pipeline throughput counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event consumption results.
const (
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
)

// Queue item processing results.
const (
	ResultCompleted = "completed"
	ResultRetried   = "retried"
	ResultFailed    = "failed"
)

// Metrics holds the pipeline counters. A nil *Metrics is a valid no-op sink.
type Metrics struct {
	eventsConsumed *prometheus.CounterVec
	queueItems     *prometheus.CounterVec
	messages       *prometheus.CounterVec
	batchesApplied prometheus.Counter
	recordsUpdated prometheus.Counter
}

// New registers the pipeline counters with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		eventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_order_events_consumed_total",
			Help: "Order events read from the stream, by consumption result.",
		}, []string{"result"}),
		queueItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_delivery_queue_items_total",
			Help: "Delivery queue items processed, by result.",
		}, []string{"result"}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_messages_total",
			Help: "Vendor send outcomes, by delivery status.",
		}, []string{"outcome"}),
		batchesApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "crm_batch_updates_applied_total",
			Help: "Batch updates applied to delivery records.",
		}),
		recordsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "crm_delivery_records_updated_total",
			Help: "Delivery records moved to a terminal status.",
		}),
	}
}

func (m *Metrics) EventConsumed(result string) {
	if m == nil {
		return
	}
	m.eventsConsumed.WithLabelValues(result).Inc()
}

func (m *Metrics) QueueItemProcessed(result string) {
	if m == nil {
		return
	}
	m.queueItems.WithLabelValues(result).Inc()
}

func (m *Metrics) MessageOutcome(outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BatchApplied(records int) {
	if m == nil {
		return
	}
	m.batchesApplied.Inc()
	m.recordsUpdated.Add(float64(records))
}
