package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveriesTotal         = promauto.NewCounterVec(prometheus.CounterOpts{Name: "hookrelay_deliveries_total", Help: "Delivery attempts by outcome"}, []string{"outcome"})
	DeadLetterTotal         = promauto.NewCounter(prometheus.CounterOpts{Name: "hookrelay_dead_letter_total", Help: "Jobs parked after exhausting retries"})
	RetriesScheduledTotal   = promauto.NewCounter(prometheus.CounterOpts{Name: "hookrelay_retries_scheduled_total", Help: "Retries scheduled with backoff"})
	EnqueueDroppedTotal     = promauto.NewCounter(prometheus.CounterOpts{Name: "hookrelay_enqueue_dropped_total", Help: "Jobs dropped at enqueue because the store was unavailable"})
	QueueDepth              = promauto.NewGauge(prometheus.GaugeOpts{Name: "hookrelay_queue_depth", Help: "Jobs waiting in the ready list"})
	DeliveryDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{Name: "hookrelay_delivery_duration_seconds", Help: "Webhook HTTP delivery duration", Buckets: prometheus.ExponentialBuckets(0.01, 2, 12)})
)
