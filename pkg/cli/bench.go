package cli

import (
	"io"

	"github.com/downfa11-org/mapped-queue/pkg/bench"
	"github.com/spf13/cobra"
)

// NewBenchCommand creates the bench command.
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		records    int
		concurrent bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure local produce and consume throughput",
		Long: `Produce --records payloads into the store and consume them back, verifying order.
The payload size defaults to 64 bytes when --payload-size is not set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			cfg, err := rootOpts.loadConfig(cmd)
			if err != nil {
				return f.Failure(err)
			}

			size := rootOpts.PayloadSize
			if size <= 0 {
				size = 64
			}
			res, err := bench.NewBenchmarkRunner(cfg, records, size, concurrent).Run(cmd.Context())
			if err != nil {
				return f.Failure(queueError("benchmark failed", err))
			}
			return f.Success(res, func(w io.Writer) { res.Print(w) })
		},
	}

	cmd.Flags().IntVarP(&records, "records", "n", 100000, "number of records")
	cmd.Flags().BoolVar(&concurrent, "concurrent", false, "consume while producing")
	return cmd
}
