package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/downfa11-org/mapped-queue/pkg/types"
	"github.com/downfa11-org/mapped-queue/util"
)

// Normalize replaces out-of-range tuning values with defaults. StorePath and SegmentSize
// are left alone; Validate reports them.
func (cfg *Config) Normalize() {
	cfg.StorePath = strings.TrimSpace(cfg.StorePath)

	// consumer polling
	if cfg.ConsumerRetryInterval <= 0 {
		cfg.ConsumerRetryInterval = DefaultConsumerRetryInterval
	}
	if cfg.ConsumerSpinWaitDuration < 0 {
		cfg.ConsumerSpinWaitDuration = 0
	}

	// producer durability
	if cfg.ProducerForceFlushIntervalCount <= 0 {
		util.Warn("Invalid ProducerForceFlushIntervalCount (%d), defaulting to %d",
			cfg.ProducerForceFlushIntervalCount, DefaultProducerForceFlushIntervalCount)
		cfg.ProducerForceFlushIntervalCount = DefaultProducerForceFlushIntervalCount
	}

	if cfg.ExporterPort <= 0 {
		cfg.ExporterPort = DefaultExporterPort
	}
}

// Validate reports options a queue cannot be opened with.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.StorePath) == "" {
		return fmt.Errorf("%w: store path must not be empty", types.ErrConfiguration)
	}
	if info, err := os.Stat(cfg.StorePath); err == nil && !info.IsDir() {
		return fmt.Errorf("%w: store path %s is an existing file", types.ErrConfiguration, cfg.StorePath)
	}
	if cfg.SegmentSize <= 0 {
		return fmt.Errorf("%w: segment size must be greater than zero, got %d", types.ErrConfiguration, cfg.SegmentSize)
	}
	return nil
}

func applyEnv(cfg *Config) {
	overrideEnvString(&cfg.StorePath, "MFQ_STORE_PATH")
	overrideEnvInt64(&cfg.SegmentSize, "MFQ_SEGMENT_SIZE")
	if v := os.Getenv("MFQ_CONSUMER_RETRY_INTERVAL"); v != "" {
		cfg.ConsumerRetryInterval = util.ParseDuration(v, cfg.ConsumerRetryInterval)
	}
	if v := os.Getenv("MFQ_CONSUMER_SPIN_WAIT"); v != "" {
		cfg.ConsumerSpinWaitDuration = util.ParseDuration(v, cfg.ConsumerSpinWaitDuration)
	}
	overrideEnvInt(&cfg.ProducerForceFlushIntervalCount, "MFQ_PRODUCER_FORCE_FLUSH_INTERVAL")
	if v := os.Getenv("MFQ_LOG_LEVEL"); v != "" {
		cfg.LogLevel = util.ParseLogLevel(v)
	}
	overrideEnvBool(&cfg.EnableExporter, "MFQ_EXPORTER")
	overrideEnvInt(&cfg.ExporterPort, "MFQ_EXPORTER_PORT")
}

func overrideEnvInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseInt(v, *target)
	}
}

func overrideEnvInt64(target *int64, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseInt64(v, *target)
	}
}

func overrideEnvBool(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseBool(v, *target)
	}
}

func overrideEnvString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
