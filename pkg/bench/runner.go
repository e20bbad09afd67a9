package bench

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/downfa11-org/mapped-queue/pkg/config"
	"github.com/downfa11-org/mapped-queue/pkg/queue"
	"github.com/downfa11-org/mapped-queue/pkg/types"
	"github.com/downfa11-org/mapped-queue/util"
)

type BenchmarkRunner struct {
	Config      *config.Config
	Records     int
	PayloadSize int
	// Concurrent runs the consumer alongside the producer instead of after it.
	Concurrent bool
}

type Result struct {
	Records         int           `json:"records"`
	PayloadSize     int           `json:"payload_size"`
	Segments        int64         `json:"segments"`
	ProduceDuration time.Duration `json:"produce_duration"`
	ConsumeDuration time.Duration `json:"consume_duration"`
	Total           time.Duration `json:"total"`
}

func NewBenchmarkRunner(cfg *config.Config, records, payloadSize int, concurrent bool) *BenchmarkRunner {
	return &BenchmarkRunner{
		Config:      cfg,
		Records:     records,
		PayloadSize: payloadSize,
		Concurrent:  concurrent,
	}
}

// Run produces Records payloads into the configured store and consumes them back,
// checking that every record arrives intact and in order.
func (b *BenchmarkRunner) Run(ctx context.Context) (*Result, error) {
	if b.Records <= 0 {
		return nil, fmt.Errorf("records must be greater than zero, got %d", b.Records)
	}
	if b.PayloadSize < 8 {
		return nil, fmt.Errorf("payload size must be at least 8 bytes, got %d", b.PayloadSize)
	}

	codec, err := types.NewBytesCodec(b.PayloadSize)
	if err != nil {
		return nil, err
	}
	q, err := queue.New[[]byte](b.Config, codec)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	p, err := q.Producer()
	if err != nil {
		return nil, err
	}
	c, err := q.Consumer()
	if err != nil {
		return nil, err
	}

	base := c.Offset()
	if p.Offset() != base {
		util.Warn("bench: store %s is not drained (producer %d, consumer %d), moving consumer to the producer",
			b.Config.StorePath, p.Offset(), base)
		if err := c.AdjustOffset(p.Offset()); err != nil {
			return nil, err
		}
	}

	res := &Result{Records: b.Records, PayloadSize: b.PayloadSize}
	start := time.Now()

	produced := make(chan error, 1)
	produce := func() {
		t := time.Now()
		payload := make([]byte, b.PayloadSize)
		for i := 0; i < b.Records; i++ {
			binary.LittleEndian.PutUint64(payload, uint64(i))
			if err := p.Produce(payload); err != nil {
				produced <- fmt.Errorf("produce record %d: %w", i, err)
				return
			}
		}
		res.ProduceDuration = time.Since(t)
		produced <- nil
	}

	if b.Concurrent {
		go produce()
	} else {
		produce()
		if err := <-produced; err != nil {
			return nil, err
		}
	}

	t := time.Now()
	for i := 0; i < b.Records; i++ {
		item, err := c.ConsumeContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("consume record %d: %w", i, err)
		}
		if got := binary.LittleEndian.Uint64(item); got != uint64(i) {
			return nil, fmt.Errorf("record %d out of order: got %d", i, got)
		}
		if err := c.Commit(); err != nil {
			return nil, err
		}
	}
	res.ConsumeDuration = time.Since(t)

	if b.Concurrent {
		if err := <-produced; err != nil {
			return nil, err
		}
	}
	res.Total = time.Since(start)

	layout := q.Layout()
	bytes := int64(b.Records) * layout.Stride()
	res.Segments = (bytes + layout.Capacity() - 1) / layout.Capacity()
	return res, nil
}

func throughput(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "\n🧪 BENCHMARK RESULT [mapped] 🧪\n")
	fmt.Fprintf(w, "-------------------------------------\n")
	fmt.Fprintf(w, " Records       : %d\n", r.Records)
	fmt.Fprintf(w, " Payload Size  : %d bytes\n", r.PayloadSize)
	fmt.Fprintf(w, " Segments      : ~%d\n", r.Segments)
	fmt.Fprintf(w, " Produce       : %v (%.2f rec/sec)\n", r.ProduceDuration, throughput(r.Records, r.ProduceDuration))
	fmt.Fprintf(w, " Consume       : %v (%.2f rec/sec)\n", r.ConsumeDuration, throughput(r.Records, r.ConsumeDuration))
	fmt.Fprintf(w, " Total         : %v\n", r.Total)
	fmt.Fprintf(w, "-------------------------------------\n")
}
