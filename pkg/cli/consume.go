package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode"

	"github.com/spf13/cobra"
)

type ConsumedRecord struct {
	Offset int64  `json:"offset"`
	Hex    string `json:"hex"`
	Text   string `json:"text,omitempty"`
}

type ConsumeResult struct {
	Records   []ConsumedRecord `json:"records"`
	Offset    int64            `json:"offset"`
	Committed bool             `json:"committed"`
}

// NewConsumeCommand creates the consume command.
func NewConsumeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		count   int
		timeout time.Duration
		peek    bool
	)

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Read records from a store",
		Long: `Read up to --count records at the consumer offset, committing each one.
With --peek the next record is shown without committing it. The command waits up to
--timeout for records that have not been produced yet.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if count <= 0 {
				return f.Failure(NewExitError(ExitCommandError, "--count must be greater than zero"))
			}
			if peek {
				count = 1
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

			c, err := q.Consumer()
			if err != nil {
				return f.Failure(queueError("failed to open consumer", err))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res := &ConsumeResult{Records: []ConsumedRecord{}, Committed: !peek}
			for i := 0; i < count; i++ {
				at := c.Offset()
				item, err := c.ConsumeContext(ctx)
				if errors.Is(err, context.DeadlineExceeded) {
					break
				}
				if err != nil {
					return f.Failure(queueError("failed to consume", err))
				}
				res.Records = append(res.Records, ConsumedRecord{Offset: at, Hex: hex.EncodeToString(item), Text: printable(item)})
				if peek {
					break
				}
				if err := c.Commit(); err != nil {
					return f.Failure(queueError("failed to commit", err))
				}
			}
			res.Offset = c.Offset()

			return f.Success(res, func(w io.Writer) {
				for _, r := range res.Records {
					if r.Text != "" {
						fmt.Fprintf(w, "%d\t%s\t%q\n", r.Offset, r.Hex, r.Text)
					} else {
						fmt.Fprintf(w, "%d\t%s\n", r.Offset, r.Hex)
					}
				}
				fmt.Fprintf(w, "Consumed %d records, consumer offset %d\n", len(res.Records), res.Offset)
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of records to consume")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for records")
	cmd.Flags().BoolVar(&peek, "peek", false, "show the next record without committing it")
	return cmd
}

// printable returns the payload as text without its zero padding, or "" when it is binary.
func printable(b []byte) string {
	b = bytes.TrimRight(b, "\x00")
	if len(b) == 0 {
		return ""
	}
	for _, r := range string(b) {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return ""
		}
	}
	return string(b)
}
