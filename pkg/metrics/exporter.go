package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/downfa11-org/mapped-queue/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(RecordsProduced, RecordsConsumed, ForceFlushes, FlushLatency, SegmentsCreated)
	prometheus.MustRegister(SegmentRotations, ConsumerWaits, ProducerOffset, ConfirmedOffset, ConsumerOffset)
}

func StartMetricsServer(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", port)
		util.Info("Prometheus exporter listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			util.Error("Failed to start metrics server: %v", err)
		}
	}()
}

// ObserveFlush records one forced flush that started at start.
func ObserveFlush(start time.Time) {
	ForceFlushes.Inc()
	FlushLatency.Observe(time.Since(start).Seconds())
}
