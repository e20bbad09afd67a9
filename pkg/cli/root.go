package cli

import (
	"fmt"
	"slices"

	"github.com/downfa11-org/mapped-queue/pkg/config"
	"github.com/downfa11-org/mapped-queue/pkg/metrics"
	"github.com/downfa11-org/mapped-queue/util"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath  string
	StorePath   string
	SegmentSize int64
	PayloadSize int
	LogLevel    string
	Format      string // "json" | "text"
	Exporter    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the mfq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mfq",
		Short: "mfq - mapped file queue tool",
		Long:  "Inspect, repair and exercise mapped file queue stores on the local disk.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML/JSON config file")
	cmd.PersistentFlags().StringVarP(&opts.StorePath, "store", "s", "", "queue store directory (overrides config)")
	cmd.PersistentFlags().Int64Var(&opts.SegmentSize, "segment-size", 0, "nominal segment size in bytes (overrides config)")
	cmd.PersistentFlags().IntVarP(&opts.PayloadSize, "payload-size", "p", 0, "record payload size in bytes")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Exporter, "exporter", false, "serve Prometheus metrics while the command runs")

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewRecoverCommand(opts))
	cmd.AddCommand(NewAdjustCommand(opts))
	cmd.AddCommand(NewProduceCommand(opts))
	cmd.AddCommand(NewConsumeCommand(opts))
	cmd.AddCommand(NewBenchCommand(opts))

	return cmd
}

// loadConfig layers the global flags over the config file and environment.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.StorePath = o.StorePath
	}
	if flags.Changed("segment-size") {
		cfg.SegmentSize = o.SegmentSize
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = util.ParseLogLevel(o.LogLevel)
	}
	if flags.Changed("exporter") {
		cfg.EnableExporter = o.Exporter
	}
	util.SetLevel(cfg.LogLevel)

	if cfg.EnableExporter {
		metrics.StartMetricsServer(cfg.ExporterPort)
	}
	return cfg, nil
}

func (o *RootOptions) requirePayloadSize() error {
	if o.PayloadSize <= 0 {
		return NewExitError(ExitCommandError, "--payload-size is required and must be greater than zero")
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}
}
