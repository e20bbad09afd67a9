package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type AdjustResult struct {
	Producer *int64 `json:"producer,omitempty"`
	Consumer *int64 `json:"consumer,omitempty"`
}

// NewAdjustCommand creates the adjust command.
func NewAdjustCommand(rootOpts *RootOptions) *cobra.Command {
	var producer, consumer int64

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Move the producer or consumer offset",
		Long: `Move the producer and/or consumer offset of a store to an explicit byte offset.
Offsets should be multiples of the record stride (payload size + 1).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if !cmd.Flags().Changed("producer") && !cmd.Flags().Changed("consumer") {
				return f.Failure(NewExitError(ExitCommandError, "at least one of --producer or --consumer is required"))
			}

			cfg, err := rootOpts.loadConfig(cmd)
			if err != nil {
				return f.Failure(err)
			}
			q, err := rootOpts.openQueue(cfg)
			if err != nil {
				return f.Failure(err)
			}
			defer q.Close()

			res := &AdjustResult{}
			if cmd.Flags().Changed("producer") {
				p, err := q.Producer()
				if err != nil {
					return f.Failure(queueError("failed to open producer", err))
				}
				if err := p.AdjustOffset(producer); err != nil {
					return f.Failure(queueError("failed to adjust producer", err))
				}
				res.Producer = &producer
			}
			if cmd.Flags().Changed("consumer") {
				c, err := q.Consumer()
				if err != nil {
					return f.Failure(queueError("failed to open consumer", err))
				}
				if err := c.AdjustOffset(consumer); err != nil {
					return f.Failure(queueError("failed to adjust consumer", err))
				}
				res.Consumer = &consumer
			}

			return f.Success(res, func(w io.Writer) {
				if res.Producer != nil {
					fmt.Fprintf(w, "Producer offset set to %d\n", *res.Producer)
				}
				if res.Consumer != nil {
					fmt.Fprintf(w, "Consumer offset set to %d\n", *res.Consumer)
				}
			})
		},
	}

	cmd.Flags().Int64Var(&producer, "producer", 0, "new producer offset in bytes")
	cmd.Flags().Int64Var(&consumer, "consumer", 0, "new consumer offset in bytes")
	return cmd
}
