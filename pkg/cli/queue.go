package cli

import (
	"github.com/downfa11-org/mapped-queue/pkg/config"
	"github.com/downfa11-org/mapped-queue/pkg/queue"
	"github.com/downfa11-org/mapped-queue/pkg/types"
)

// openQueue opens the store of cfg with raw byte payloads of the configured size.
func (o *RootOptions) openQueue(cfg *config.Config) (*queue.Queue[[]byte], error) {
	if err := o.requirePayloadSize(); err != nil {
		return nil, err
	}
	codec, err := types.NewBytesCodec(o.PayloadSize)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid payload size", err)
	}
	q, err := queue.New[[]byte](cfg, codec)
	if err != nil {
		return nil, queueError("failed to open queue", err)
	}
	return q, nil
}

// queueError attaches message and the exit code matching err's sentinel.
func queueError(message string, err error) error {
	if isUsageError(err) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}
