package queue_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/downfa11-org/mapped-queue/pkg/config"
	"github.com/downfa11-org/mapped-queue/pkg/disk"
	"github.com/downfa11-org/mapped-queue/pkg/lock"
	"github.com/downfa11-org/mapped-queue/pkg/offset"
	"github.com/downfa11-org/mapped-queue/pkg/queue"
	"github.com/downfa11-org/mapped-queue/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quote is a 16-byte payload, so a record slot is 17 bytes.
type quote struct {
	ID    int64
	Price int64
}

func newCodec(t *testing.T) types.Codec[quote] {
	t.Helper()
	c, err := types.NewBinaryCodec[quote]()
	require.NoError(t, err)
	return c
}

func testConfig(store string, segmentSize int64) *config.Config {
	cfg := config.Default()
	cfg.StorePath = store
	cfg.SegmentSize = segmentSize
	cfg.ConsumerRetryInterval = 5 * time.Millisecond
	cfg.ConsumerSpinWaitDuration = time.Millisecond
	cfg.ProducerForceFlushIntervalCount = 1000
	return cfg
}

func openQueue(t *testing.T, cfg *config.Config) *queue.Queue[quote] {
	t.Helper()
	q, err := queue.New(cfg, newCodec(t))
	require.NoError(t, err)
	return q
}

func produceRange(t *testing.T, p *queue.Producer[quote], from, to int) {
	t.Helper()
	for i := from; i < to; i++ {
		require.NoError(t, p.Produce(quote{ID: int64(i), Price: int64(i) * 100}))
	}
}

func consumeRange(t *testing.T, c *queue.Consumer[quote], from, to int) {
	t.Helper()
	for i := from; i < to; i++ {
		got, err := c.Consume()
		require.NoError(t, err)
		require.Equal(t, quote{ID: int64(i), Price: int64(i) * 100}, got)
		require.NoError(t, c.Commit())
	}
}

func TestQueue_RoundTrip(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 1<<20))
	defer q.Close()

	p, err := q.Producer()
	require.NoError(t, err)
	c, err := q.Consumer()
	require.NoError(t, err)

	produceRange(t, p, 0, 500)
	consumeRange(t, c, 0, 500)

	assert.Equal(t, int64(500*17), p.Offset())
	assert.Equal(t, int64(500*17), c.Offset())
	assert.Equal(t, int64(500), p.ProducedCount())
}

func TestQueue_OneRecordPerSegment(t *testing.T) {
	store := t.TempDir()
	q := openQueue(t, testConfig(store, 32))
	defer q.Close()

	p, err := q.Producer()
	require.NoError(t, err)
	produceRange(t, p, 0, 10)

	segments, err := disk.ListSegments(filepath.Join(store, queue.CommitLogDir))
	require.NoError(t, err)
	require.Len(t, segments, 10)
	for i, s := range segments {
		assert.Equal(t, int64(i*17), s.StartOffset)
		assert.Equal(t, int64(17), s.Size)
	}

	c, err := q.Consumer()
	require.NoError(t, err)
	consumeRange(t, c, 0, 10)
}

func TestQueue_RotationAcrossSegments(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 100)) // 5 records per segment
	defer q.Close()

	p, err := q.Producer()
	require.NoError(t, err)
	c, err := q.Consumer()
	require.NoError(t, err)

	produceRange(t, p, 0, 23)
	consumeRange(t, c, 0, 23)
	assert.Equal(t, int64(23*17), c.Offset())
}

func TestConsumer_ReconsumeWithoutCommit(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 1<<16))
	defer q.Close()

	p, _ := q.Producer()
	c, _ := q.Consumer()
	produceRange(t, p, 0, 2)

	for i := 0; i < 3; i++ {
		got, err := c.Consume()
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.ID)
	}
	require.NoError(t, c.Commit())

	got, err := c.Consume()
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestQueue_PersistsAcrossSessions(t *testing.T) {
	store := t.TempDir()
	cfg := testConfig(store, 100)

	q := openQueue(t, cfg)
	p, err := q.Producer()
	require.NoError(t, err)
	produceRange(t, p, 0, 12)
	c, err := q.Consumer()
	require.NoError(t, err)
	consumeRange(t, c, 0, 7)
	require.NoError(t, q.Close())

	q = openQueue(t, cfg)
	defer q.Close()

	p, err = q.Producer()
	require.NoError(t, err)
	assert.Equal(t, int64(12*17), p.Offset(), "producer resumes after the last record")
	produceRange(t, p, 12, 20)

	c, err = q.Consumer()
	require.NoError(t, err)
	assert.Equal(t, int64(7*17), c.Offset(), "consumer resumes at its committed offset")
	consumeRange(t, c, 7, 20)
}

func TestConsumer_BlocksUntilProduced(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 100))
	defer q.Close()

	c, err := q.Consumer()
	require.NoError(t, err)
	p, err := q.Producer()
	require.NoError(t, err)

	type result struct {
		items []quote
		err   error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		for i := 0; i < 12; i++ {
			item, err := c.Consume()
			if err == nil {
				err = c.Commit()
			}
			if err != nil {
				r.err = err
				break
			}
			r.items = append(r.items, item)
		}
		done <- r
	}()

	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 12; i++ {
		require.NoError(t, p.Produce(quote{ID: int64(i), Price: int64(i) * 100}))
		if i%4 == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Len(t, r.items, 12)
		for i, item := range r.items {
			assert.Equal(t, int64(i), item.ID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("consumer never received the records")
	}
}

func TestConsumer_ConsumeContextAndTryConsume(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 1<<16))
	defer q.Close()

	c, err := q.Consumer()
	require.NoError(t, err)

	_, ok, err := c.TryConsume()
	require.NoError(t, err)
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = c.ConsumeContext(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	p, err := q.Producer()
	require.NoError(t, err)
	produceRange(t, p, 0, 1)

	got, ok, err := c.TryConsume()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), got.ID)
	require.NoError(t, c.Commit())

	_, ok, err = c.TryConsume()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdjustOffset(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 100))
	defer q.Close()

	p, _ := q.Producer()
	c, _ := q.Consumer()

	assert.ErrorIs(t, p.AdjustOffset(-1), types.ErrOutOfRange)
	assert.ErrorIs(t, c.AdjustOffset(-1), types.ErrOutOfRange)

	produceRange(t, p, 0, 10)
	assert.Equal(t, int64(170), p.Offset())

	require.NoError(t, c.AdjustOffset(3*17))
	consumeRange(t, c, 3, 4)
	assert.ErrorIs(t, c.AdjustOffset(0), types.ErrInvalidState, "segment is held after consume")

	require.NoError(t, p.AdjustOffset(17), "segment was retired at the boundary")
	require.NoError(t, p.Produce(quote{ID: 42}))
	assert.ErrorIs(t, p.AdjustOffset(0), types.ErrInvalidState)

	_, err := c.Consume()
	require.NoError(t, err)
	require.NoError(t, c.Commit())
	assert.Equal(t, int64(5*17), c.Offset())
}

func TestAdjustOffset_RepositionsFreshConsumer(t *testing.T) {
	store := t.TempDir()
	cfg := testConfig(store, 1<<16)

	q := openQueue(t, cfg)
	p, _ := q.Producer()
	produceRange(t, p, 0, 10)
	require.NoError(t, q.Close())

	q = openQueue(t, cfg)
	defer q.Close()
	c, _ := q.Consumer()
	require.NoError(t, c.AdjustOffset(6*17))
	consumeRange(t, c, 6, 10)
}

func TestProducer_ForceFlushPublishesConfirmed(t *testing.T) {
	cfg := testConfig(t.TempDir(), 1<<16)
	cfg.ProducerForceFlushIntervalCount = 4
	q := openQueue(t, cfg)
	defer q.Close()

	p, err := q.Producer()
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		require.NoError(t, p.Produce(quote{ID: int64(i)}))
		want := int64(i/4*4) * 17
		assert.Equal(t, want, p.ConfirmedOffset(), "after %d records", i)
	}
}

func TestProducer_CloseIsFlushPoint(t *testing.T) {
	store := t.TempDir()
	cfg := testConfig(store, 1<<16)
	cfg.ProducerForceFlushIntervalCount = 100

	q := openQueue(t, cfg)
	p, _ := q.Producer()
	produceRange(t, p, 0, 3)
	assert.Equal(t, int64(0), p.ConfirmedOffset())
	require.NoError(t, q.Close())
	assert.Equal(t, int64(51), p.ConfirmedOffset())

	snap, err := offset.ReadSnapshot(store)
	require.NoError(t, err)
	assert.Equal(t, offset.Snapshot{Producer: 51, Confirmed: 51, Consumer: 0}, snap)
}

func TestDisposal(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 1<<16))

	p, err := q.Producer()
	require.NoError(t, err)
	c, err := q.Consumer()
	require.NoError(t, err)
	produceRange(t, p, 0, 1)
	_, err = c.Consume()
	require.NoError(t, err)

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	require.NoError(t, p.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, p.Produce(quote{}), types.ErrDisposed)
	assert.ErrorIs(t, p.AdjustOffset(0), types.ErrDisposed)
	_, err = c.Consume()
	assert.ErrorIs(t, err, types.ErrDisposed)
	_, _, err = c.TryConsume()
	assert.ErrorIs(t, err, types.ErrDisposed)
	assert.ErrorIs(t, c.Commit(), types.ErrDisposed)

	_, err = q.Producer()
	assert.ErrorIs(t, err, types.ErrDisposed)
	_, err = q.Consumer()
	assert.ErrorIs(t, err, types.ErrDisposed)
}

func TestConsumer_CommitWithoutConsume(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 1<<16))
	defer q.Close()

	c, _ := q.Consumer()
	assert.ErrorIs(t, c.Commit(), types.ErrInvalidState)

	p, _ := q.Producer()
	produceRange(t, p, 0, 2)
	_, err := c.Consume()
	require.NoError(t, err)
	require.NoError(t, c.Commit())
	assert.ErrorIs(t, c.Commit(), types.ErrInvalidState, "one commit per consume")
}

func TestConsumer_NeverCreatesSegments(t *testing.T) {
	store := t.TempDir()
	q := openQueue(t, testConfig(store, 1<<16))
	defer q.Close()

	c, _ := q.Consumer()
	_, ok, err := c.TryConsume()
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(filepath.Join(store, queue.CommitLogDir))
	assert.True(t, os.IsNotExist(err))
}

func TestNew_Configuration(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	codec := newCodec(t)

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"Nil", nil},
		{"EmptyStorePath", testConfig("", 1024)},
		{"StorePathIsFile", testConfig(file, 1024)},
		{"ZeroSegmentSize", testConfig(t.TempDir(), 0)},
		{"SegmentSmallerThanRecord", testConfig(t.TempDir(), 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := queue.New(tt.cfg, codec)
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}
}

func TestNew_CreatesStoreAndDoesNotMutateConfig(t *testing.T) {
	store := filepath.Join(t.TempDir(), "a", "b")
	cfg := testConfig(store, 1<<16)
	cfg.ProducerForceFlushIntervalCount = 0

	q, err := queue.New(cfg, newCodec(t), queue.WithProcessLock(lock.NewNoop()))
	require.NoError(t, err)
	defer q.Close()

	info, err := os.Stat(store)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, 0, cfg.ProducerForceFlushIntervalCount)
	assert.Equal(t, 1000, q.Config().ProducerForceFlushIntervalCount)
	assert.Equal(t, int64(17), q.Layout().Stride())
	assert.NotEqual(t, q.ID().String(), "")
}

func TestQueue_LazySingletons(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 1<<16))
	defer q.Close()

	p1, err := q.Producer()
	require.NoError(t, err)
	p2, err := q.Producer()
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	c1, err := q.Consumer()
	require.NoError(t, err)
	c2, err := q.Consumer()
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.NotEqual(t, p1.ID(), c1.ID())
}

func TestRecoverProducer(t *testing.T) {
	store := t.TempDir()
	cfg := testConfig(store, 100)
	cfg.ProducerForceFlushIntervalCount = 4

	q := openQueue(t, cfg)
	p, _ := q.Producer()
	c, _ := q.Consumer()
	produceRange(t, p, 0, 6)
	consumeRange(t, c, 0, 2)

	// Simulate a crash after record 6: the producer cursor is ahead of the confirmed one.
	require.NoError(t, p.Close())
	w, err := offset.Open(offset.ConfirmedPath(store))
	require.NoError(t, err)
	require.NoError(t, w.MoveTo(4*17, true))
	require.NoError(t, w.Close())
	require.NoError(t, q.Close())

	q = openQueue(t, cfg)
	defer q.Close()

	got, err := q.RecoverProducer()
	require.NoError(t, err)
	assert.Equal(t, int64(4*17), got)

	c, _ = q.Consumer()
	consumeRange(t, c, 2, 4)
	_, ok, err := c.TryConsume()
	require.NoError(t, err)
	assert.False(t, ok, "dropped records must not be visible")

	p, _ = q.Producer()
	produceRange(t, p, 4, 8)
	consumeRange(t, c, 4, 8)
}

func TestRecoverProducer_ConsumerAheadOfConfirmed(t *testing.T) {
	store := t.TempDir()
	cfg := testConfig(store, 1<<16)
	cfg.ProducerForceFlushIntervalCount = 100

	q := openQueue(t, cfg)
	p, _ := q.Producer()
	produceRange(t, p, 0, 10)
	c, _ := q.Consumer()
	consumeRange(t, c, 0, 5)
	require.NoError(t, q.Close())

	// No flush point was reached before the simulated crash.
	w, err := offset.Open(offset.ConfirmedPath(store))
	require.NoError(t, err)
	require.NoError(t, w.MoveTo(0, true))
	require.NoError(t, w.Close())

	q = openQueue(t, cfg)
	defer q.Close()

	got, err := q.RecoverProducer()
	require.NoError(t, err)
	assert.Equal(t, int64(5*17), got, "records the consumer already committed are kept")

	p, _ = q.Producer()
	assert.Equal(t, int64(5*17), p.Offset())

	c, _ = q.Consumer()
	_, ok, err := c.TryConsume()
	require.NoError(t, err)
	assert.False(t, ok, "unconfirmed records past the consumer are dropped")
}

func TestRecoverProducer_AfterProduceKeepsRecords(t *testing.T) {
	store := t.TempDir()
	cfg := testConfig(store, 1<<16)
	cfg.ProducerForceFlushIntervalCount = 100

	q := openQueue(t, cfg)
	defer q.Close()
	p, _ := q.Producer()
	produceRange(t, p, 0, 5)

	got, err := q.RecoverProducer()
	assert.ErrorIs(t, err, types.ErrInvalidState)
	assert.Equal(t, int64(5*17), got)
	assert.Equal(t, int64(5*17), p.Offset())

	c, _ := q.Consumer()
	consumeRange(t, c, 0, 5)

	produceRange(t, p, 5, 6)
	consumeRange(t, c, 5, 6)
}

func TestRecoverProducer_Disposed(t *testing.T) {
	q := openQueue(t, testConfig(t.TempDir(), 1<<16))
	p, _ := q.Producer()
	require.NoError(t, p.Close())

	_, err := q.RecoverProducer()
	assert.ErrorIs(t, err, types.ErrDisposed)
	require.NoError(t, q.Close())
}
