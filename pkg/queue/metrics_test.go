package queue_test

import (
	"testing"

	"github.com/downfa11-org/mapped-queue/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func gaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	_ = g.Write(m)
	return m.GetGauge().GetValue()
}

func TestQueue_Metrics(t *testing.T) {
	store := t.TempDir()
	cfg := testConfig(store, 100)
	cfg.ProducerForceFlushIntervalCount = 3

	produced := counterValue(metrics.RecordsProduced)
	consumed := counterValue(metrics.RecordsConsumed)
	flushes := counterValue(metrics.ForceFlushes)
	created := counterValue(metrics.SegmentsCreated)
	rotations := counterValue(metrics.SegmentRotations.WithLabelValues("producer"))

	q := openQueue(t, cfg)
	defer q.Close()
	p, err := q.Producer()
	require.NoError(t, err)
	c, err := q.Consumer()
	require.NoError(t, err)

	produceRange(t, p, 0, 7)
	consumeRange(t, c, 0, 4)

	assert.Equal(t, produced+7, counterValue(metrics.RecordsProduced))
	assert.Equal(t, consumed+4, counterValue(metrics.RecordsConsumed))
	assert.Equal(t, flushes+2, counterValue(metrics.ForceFlushes))
	assert.Equal(t, created+2, counterValue(metrics.SegmentsCreated))
	assert.Equal(t, rotations+1, counterValue(metrics.SegmentRotations.WithLabelValues("producer")))

	assert.Equal(t, float64(7*17), gaugeValue(metrics.ProducerOffset.WithLabelValues(store)))
	assert.Equal(t, float64(6*17), gaugeValue(metrics.ConfirmedOffset.WithLabelValues(store)))
	assert.Equal(t, float64(4*17), gaugeValue(metrics.ConsumerOffset.WithLabelValues(store)))
}
