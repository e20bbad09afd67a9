package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type ProduceResult struct {
	Records   int   `json:"records"`
	Offset    int64 `json:"offset"`
	Confirmed int64 `json:"confirmed"`
}

// NewProduceCommand creates the produce command.
func NewProduceCommand(rootOpts *RootOptions) *cobra.Command {
	var useHex bool

	cmd := &cobra.Command{
		Use:   "produce <payload>...",
		Short: "Append records to a store",
		Long: `Append one record per argument. Payloads shorter than --payload-size are padded
with zero bytes; longer payloads are rejected. With --hex every argument is decoded
from hexadecimal first.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if err := rootOpts.requirePayloadSize(); err != nil {
				return f.Failure(err)
			}

			payloads := make([][]byte, 0, len(args))
			for _, arg := range args {
				p, err := decodePayload(arg, useHex, rootOpts.PayloadSize)
				if err != nil {
					return f.Failure(WrapExitError(ExitCommandError, "invalid payload", err))
				}
				payloads = append(payloads, p)
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

			p, err := q.Producer()
			if err != nil {
				return f.Failure(queueError("failed to open producer", err))
			}
			for i, payload := range payloads {
				if err := p.Produce(payload); err != nil {
					return f.Failure(queueError(fmt.Sprintf("failed to produce record %d", i), err))
				}
			}
			if err := p.Close(); err != nil {
				return f.Failure(queueError("failed to close producer", err))
			}

			res := &ProduceResult{Records: len(payloads), Offset: p.Offset(), Confirmed: p.ConfirmedOffset()}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Produced %d records, producer offset %d\n", res.Records, res.Offset)
			})
		},
	}

	cmd.Flags().BoolVar(&useHex, "hex", false, "payloads are hex encoded")
	return cmd
}

func decodePayload(arg string, useHex bool, size int) ([]byte, error) {
	raw := []byte(arg)
	if useHex {
		b, err := hex.DecodeString(arg)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	if len(raw) > size {
		return nil, fmt.Errorf("payload %q has %d bytes, more than the payload size %d", arg, len(raw), size)
	}
	out := make([]byte, size)
	copy(out, raw)
	return out, nil
}
