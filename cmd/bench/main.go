package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/downfa11-org/mapped-queue/pkg/bench"
	"github.com/downfa11-org/mapped-queue/pkg/config"
	"github.com/downfa11-org/mapped-queue/pkg/metrics"
	"github.com/downfa11-org/mapped-queue/util"
)

func main() {
	fs := flag.NewFlagSet("mfq-bench", flag.ExitOnError)
	records := fs.Int("records", 1000000, "number of records to produce and consume")
	payloadSize := fs.Int("payload-size", 64, "record payload size in bytes")
	concurrent := fs.Bool("concurrent", false, "consume while producing")

	cfg, err := config.LoadConfig(fs, os.Args[1:])
	if err != nil {
		util.Fatal("Failed to load config: %v", err)
	}
	if cfg.EnableExporter {
		metrics.StartMetricsServer(cfg.ExporterPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := bench.NewBenchmarkRunner(cfg, *records, *payloadSize, *concurrent)
	res, err := runner.Run(ctx)
	if err != nil {
		util.Fatal("Benchmark failed: %v", err)
	}
	res.Print(os.Stdout)
}
