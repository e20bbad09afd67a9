package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/downfa11-org/mapped-queue/pkg/disk"
	"github.com/downfa11-org/mapped-queue/pkg/offset"
	"github.com/downfa11-org/mapped-queue/pkg/queue"
	"github.com/spf13/cobra"
)

// InspectResult describes the state of a store without modifying it.
type InspectResult struct {
	Store       string           `json:"store"`
	Offsets     offset.Snapshot  `json:"offsets"`
	Lag         int64            `json:"lag_bytes"`
	Unconfirmed int64            `json:"unconfirmed_bytes"`
	Records     *int64           `json:"pending_records,omitempty"`
	Segments    []SegmentSummary `json:"segments"`
}

type SegmentSummary struct {
	Name        string `json:"name"`
	StartOffset int64  `json:"start_offset"`
	Size        int64  `json:"size"`
	Committed   *int64 `json:"committed,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show cursors and segment files of a store",
		Long: `Show the producer, confirmed and consumer offsets of a store and list its segment files.

With --payload-size the number of committed records in each segment is counted as well.
Inspect never creates or modifies files.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, cmd)
		},
	}
}

func runInspect(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return f.Failure(err)
	}

	snap, err := offset.ReadSnapshot(cfg.StorePath)
	if err != nil {
		return f.Failure(WrapExitError(ExitFailure, "failed to read offsets", err))
	}

	dir := filepath.Join(cfg.StorePath, queue.CommitLogDir)
	files, err := disk.ListSegments(dir)
	if err != nil {
		return f.Failure(WrapExitError(ExitFailure, "failed to list segments", err))
	}

	res := &InspectResult{
		Store:       cfg.StorePath,
		Offsets:     snap,
		Lag:         snap.Lag(),
		Unconfirmed: snap.Unconfirmed(),
		Segments:    make([]SegmentSummary, 0, len(files)),
	}

	var layout *disk.Layout
	if opts.PayloadSize > 0 {
		l, err := disk.NewLayout(opts.PayloadSize, cfg.SegmentSize)
		if err != nil {
			return f.Failure(WrapExitError(ExitCommandError, "invalid layout", err))
		}
		layout = &l
		pending := snap.Lag() / l.Stride()
		res.Records = &pending
	}

	for _, file := range files {
		s := SegmentSummary{Name: file.Name, StartOffset: file.StartOffset, Size: file.Size}
		if layout != nil {
			seg, ok, err := disk.TryFind(dir, *layout, file.StartOffset)
			if err != nil {
				return f.Failure(WrapExitError(ExitFailure, "failed to map segment "+file.Name, err))
			}
			if ok {
				n := seg.Committed()
				s.Committed = &n
				seg.Close()
			}
		}
		res.Segments = append(res.Segments, s)
	}

	return f.Success(res, func(w io.Writer) { printInspect(w, res) })
}

func printInspect(w io.Writer, res *InspectResult) {
	fmt.Fprintf(w, "Store: %s\n", res.Store)
	fmt.Fprintf(w, "  producer offset : %d\n", res.Offsets.Producer)
	fmt.Fprintf(w, "  confirmed offset: %d (%d bytes unconfirmed)\n", res.Offsets.Confirmed, res.Unconfirmed)
	fmt.Fprintf(w, "  consumer offset : %d (%d bytes behind)\n", res.Offsets.Consumer, res.Lag)
	if res.Records != nil {
		fmt.Fprintf(w, "  pending records : %d\n", *res.Records)
	}
	fmt.Fprintf(w, "Segments: %d\n", len(res.Segments))
	for _, s := range res.Segments {
		if s.Committed != nil {
			fmt.Fprintf(w, "  %s  %d bytes  %d committed\n", s.Name, s.Size, *s.Committed)
		} else {
			fmt.Fprintf(w, "  %s  %d bytes\n", s.Name, s.Size)
		}
	}
}
