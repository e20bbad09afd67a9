package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RecordsProduced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mfq_records_produced_total",
		Help: "Total number of records written by producers",
	})

	RecordsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mfq_records_consumed_total",
		Help: "Total number of records committed by consumers",
	})

	ForceFlushes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mfq_force_flushes_total",
		Help: "Total number of forced durability flushes",
	})

	FlushLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mfq_flush_latency_seconds",
		Help:    "Histogram of segment flush latency",
		Buckets: prometheus.DefBuckets,
	})

	SegmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mfq_segments_created_total",
		Help: "Total number of segment files created",
	})

	SegmentRotations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mfq_segment_rotations_total",
			Help: "Total number of segments retired after their last slot",
		},
		[]string{"role"}, // producer, consumer
	)

	ConsumerWaits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mfq_consumer_waits_total",
			Help: "Total number of consumer sleeps while waiting for data",
		},
		[]string{"state"}, // locating, sleeping
	)

	ProducerOffset = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mfq_producer_offset_bytes",
			Help: "Current producer write offset",
		},
		[]string{"store"},
	)

	ConfirmedOffset = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mfq_producer_confirmed_offset_bytes",
			Help: "Last durably flushed producer offset",
		},
		[]string{"store"},
	)

	ConsumerOffset = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mfq_consumer_offset_bytes",
			Help: "Current consumer read offset",
		},
		[]string{"store"},
	)
)
