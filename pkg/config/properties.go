package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/downfa11-org/mapped-queue/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStorePath                       = "mfq-store"
	DefaultSegmentSize                     = int64(1 << 30)
	DefaultConsumerRetryInterval           = time.Second
	DefaultConsumerSpinWaitDuration        = 100 * time.Millisecond
	DefaultProducerForceFlushIntervalCount = 1000
	DefaultExporterPort                    = 9100
)

// Config holds the options of one queue store.
type Config struct {
	// Storage
	StorePath   string `yaml:"store_path" json:"store.path"`
	SegmentSize int64  `yaml:"segment_size" json:"segment.size"`

	// Consumer polling
	ConsumerRetryInterval    time.Duration `yaml:"consumer_retry_interval" json:"consumer.retry.interval"`
	ConsumerSpinWaitDuration time.Duration `yaml:"consumer_spin_wait_duration" json:"consumer.spin.wait.duration"`

	// Producer durability
	ProducerForceFlushIntervalCount int `yaml:"producer_force_flush_interval_count" json:"producer.force.flush.interval.count"`

	LogLevel       util.LogLevel `yaml:"log_level" json:"log_level"`
	EnableExporter bool          `yaml:"enable_exporter" json:"enable.exporter"`
	ExporterPort   int           `yaml:"exporter_port" json:"exporter.port"`
}

// Default returns a Config with every option at its default value.
func Default() *Config {
	return &Config{
		StorePath:                       DefaultStorePath,
		SegmentSize:                     DefaultSegmentSize,
		ConsumerRetryInterval:           DefaultConsumerRetryInterval,
		ConsumerSpinWaitDuration:        DefaultConsumerSpinWaitDuration,
		ProducerForceFlushIntervalCount: DefaultProducerForceFlushIntervalCount,
		LogLevel:                        util.LogLevelInfo,
		ExporterPort:                    DefaultExporterPort,
	}
}

// LoadConfig builds a Config from defaults, an optional YAML/JSON file, MFQ_* environment
// variables and finally the flags in args, each layer overriding the previous one. Only
// flags given explicitly override file and environment values. The queue flags are
// registered on fs, so callers may add their own flags before calling LoadConfig.
func LoadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	configPath := fs.String("config", "", "Path to YAML/JSON config file")
	storePath := fs.String("store-path", cfg.StorePath, "Queue store directory")
	segmentSize := fs.Int64("segment-size", cfg.SegmentSize, "Nominal segment file size in bytes")
	retry := fs.Duration("consumer-retry-interval", cfg.ConsumerRetryInterval, "Consumer sleep between polls")
	spin := fs.Duration("consumer-spin-wait", cfg.ConsumerSpinWaitDuration, "Consumer busy-poll duration before sleeping")
	flushCount := fs.Int("producer-force-flush-interval", cfg.ProducerForceFlushIntervalCount, "Records between forced flushes")
	logLevelStr := fs.String("log-level", "info", "Log Level (debug, info, warn, error)")
	exporter := fs.Bool("exporter", cfg.EnableExporter, "Enable Prometheus exporter")
	exporterPort := fs.Int("exporter-port", cfg.ExporterPort, "Exporter port")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && path == "" {
		path = envPath
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store-path":
			cfg.StorePath = *storePath
		case "segment-size":
			cfg.SegmentSize = *segmentSize
		case "consumer-retry-interval":
			cfg.ConsumerRetryInterval = *retry
		case "consumer-spin-wait":
			cfg.ConsumerSpinWaitDuration = *spin
		case "producer-force-flush-interval":
			cfg.ProducerForceFlushIntervalCount = *flushCount
		case "log-level":
			cfg.LogLevel = util.ParseLogLevel(*logLevelStr)
		case "exporter":
			cfg.EnableExporter = *exporter
		case "exporter-port":
			cfg.ExporterPort = *exporterPort
		}
	})

	cfg.Normalize()
	util.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// LoadFile builds a Config from defaults, the file at path and MFQ_* environment
// variables. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	cfg.Normalize()
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
