package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type RecoverResult struct {
	Before    int64 `json:"before"`
	After     int64 `json:"after"`
	Confirmed int64 `json:"confirmed"`
	Consumer  int64 `json:"consumer"`
}

// NewRecoverCommand creates the recover command.
func NewRecoverCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Roll the producer back to its last confirmed position",
		Long: `Roll the producer offset back to max(confirmed offset, consumer offset) after an
unclean shutdown. Records written after that point are dropped so the consumer never
reads data that was not durably flushed. Run it before starting a producer.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecover(rootOpts, cmd)
		},
	}
}

func runRecover(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return f.Failure(err)
	}
	q, err := opts.openQueue(cfg)
	if err != nil {
		return f.Failure(err)
	}
	defer q.Close()

	p, err := q.Producer()
	if err != nil {
		return f.Failure(queueError("failed to open producer", err))
	}
	res := &RecoverResult{Before: p.Offset(), Confirmed: p.ConfirmedOffset()}

	if res.After, err = q.RecoverProducer(); err != nil {
		return f.Failure(queueError("recovery failed", err))
	}
	c, err := q.Consumer()
	if err != nil {
		return f.Failure(queueError("failed to open consumer", err))
	}
	res.Consumer = c.Offset()

	return f.Success(res, func(w io.Writer) {
		if res.Before == res.After {
			fmt.Fprintf(w, "Producer offset %d is consistent, nothing to recover\n", res.After)
			return
		}
		fmt.Fprintf(w, "Producer offset moved from %d to %d (confirmed %d, consumer %d)\n",
			res.Before, res.After, res.Confirmed, res.Consumer)
	})
}
