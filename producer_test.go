//go:build !functional

package gokafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestProducer(t *testing.T) *producer {
	t.Helper()
	conf := NewConfig()
	conf.Producer.Return.Errors = true
	conf.Producer.Return.Successes = true
	client := &fakeClient{}
	return &producer{
		conf:         conf,
		client:       client,
		txnmgr:       newTransactionManager(conf, client),
		partitioners: make(map[string]Partitioner),
		input:        make(chan *ProducerMessage, 8),
		successes:    make(chan *ProducerMessage, 8),
		errors:       make(chan *ProducerError, 8),
		closing:      make(chan struct{}),
	}
}

func TestFmt32KeyIsStableAndDistinguishesFields(t *testing.T) {
	a := fmt32key(1, "orders", 0)
	b := fmt32key(1, "orders", 0)
	require.Equal(t, a, b)

	require.NotEqual(t, a, fmt32key(2, "orders", 0), "different leader must not collide")
	require.NotEqual(t, a, fmt32key(1, "shipping", 0), "different topic must not collide")
	require.NotEqual(t, a, fmt32key(1, "orders", 1), "different partition must not collide")
}

func TestAppendInt32HandlesZeroAndNegative(t *testing.T) {
	require.Equal(t, "0", string(appendInt32(nil, 0)))
	require.Equal(t, "42", string(appendInt32(nil, 42)))
	require.Equal(t, "-7", string(appendInt32(nil, -7)))
}

func TestGroupTopicsDedupesPreservingFirstSeenOrder(t *testing.T) {
	groups := []*produceGroup{
		{topic: "orders"},
		{topic: "shipping"},
		{topic: "orders"},
	}
	require.Equal(t, []string{"orders", "shipping"}, groupTopics(groups))
}

func TestPartitionerForCachesPerTopic(t *testing.T) {
	p := newTestProducer(t)
	p.conf.Producer.Partitioner = NewManualPartitioner

	first := p.partitionerFor("orders")
	second := p.partitionerFor("orders")
	require.Same(t, first, second, "the same topic must reuse its partitioner instance")

	third := p.partitionerFor("shipping")
	require.NotSame(t, first, third)
}

func TestFailDeliversToExpectationChannelWhenSet(t *testing.T) {
	p := newTestProducer(t)
	msg := &ProducerMessage{Topic: "orders", expectation: make(chan *ProducerError, 1)}

	p.fail(msg, ErrMessageTooLarge)

	pe := <-msg.expectation
	require.Equal(t, ErrMessageTooLarge, pe.Err)
}

func TestFailDeliversToErrorsChannelWhenNoExpectation(t *testing.T) {
	p := newTestProducer(t)
	msg := &ProducerMessage{Topic: "orders"}

	p.fail(msg, ErrMessageTooLarge)

	pe := <-p.errors
	require.Same(t, msg, pe.Msg)
}

func TestSucceedDeliversToSuccessesChannel(t *testing.T) {
	p := newTestProducer(t)
	msg := &ProducerMessage{Topic: "orders"}

	p.succeed(msg)

	got := <-p.successes
	require.Same(t, msg, got)
}

func TestHandleProduceResultSuccessAdvancesSequenceForIdempotent(t *testing.T) {
	p := newTestProducer(t)
	p.conf.Producer.Idempotent = true
	g := &produceGroup{topic: "orders", partition: 0, msgs: []*ProducerMessage{{Topic: "orders"}, {Topic: "orders"}}}

	p.handleProduceResult(g, &ProduceResponseBlock{Err: ErrNoError, Offset: 100})

	require.Equal(t, int64(100), g.msgs[0].Offset)
	require.Equal(t, int64(101), g.msgs[1].Offset)
	_, seq := p.txnmgr.nextSequence("orders", 0)
	require.Equal(t, int32(2), seq, "a successful produce must advance the sequence by the batch size")
}

func TestHandleProduceResultFencesOnOutOfOrderSequence(t *testing.T) {
	p := newTestProducer(t)
	p.txnmgr.identity = producerIdentity{id: 1, epoch: 0}
	msg := &ProducerMessage{Topic: "orders"}
	g := &produceGroup{topic: "orders", partition: 0, msgs: []*ProducerMessage{msg}}

	p.handleProduceResult(g, &ProduceResponseBlock{Err: ErrOutOfOrderSequenceNumber})

	require.Equal(t, noProducerIdentity, p.txnmgr.identity, "a fatal idempotent-producer error must fence the transaction manager")
	pe := <-p.errors
	require.Same(t, msg, pe.Msg)
}

func TestHandleProduceResultMessageTooLargeFailsWithoutFencing(t *testing.T) {
	p := newTestProducer(t)
	p.txnmgr.identity = producerIdentity{id: 1, epoch: 0}
	msg := &ProducerMessage{Topic: "orders"}
	g := &produceGroup{topic: "orders", partition: 0, msgs: []*ProducerMessage{msg}}

	p.handleProduceResult(g, &ProduceResponseBlock{Err: ErrMessageTooLarge})

	require.Equal(t, producerIdentity{id: 1, epoch: 0}, p.txnmgr.identity)
	pe := <-p.errors
	require.ErrorIs(t, pe.Err, ErrMessageTooLarge)
}

func TestRetryGroupGivesUpPastMaxRetries(t *testing.T) {
	p := newTestProducer(t)
	p.conf.Producer.Retry.Max = 0
	msg := &ProducerMessage{Topic: "orders"}
	g := &produceGroup{topic: "orders", partition: 0, msgs: []*ProducerMessage{msg}}

	p.retryGroup(g)

	pe := <-p.errors
	require.Same(t, msg, pe.Msg)
	require.Equal(t, 1, msg.retries)
}

func TestBuildRecordBatchStampsSequenceAndOffsets(t *testing.T) {
	p := newTestProducer(t)
	p.conf.Producer.Idempotent = true
	p.txnmgr.identity = producerIdentity{id: 9, epoch: 1}
	p.txnmgr.commitSequence("orders", 0, 3)

	g := &produceGroup{
		topic: "orders", partition: 0,
		msgs: []*ProducerMessage{{Topic: "orders"}, {Topic: "orders"}},
	}
	batch := p.buildRecordBatch(g, time.Now())

	require.Equal(t, int64(9), batch.ProducerID)
	require.Equal(t, int16(1), batch.ProducerEpoch)
	require.Equal(t, int32(3), batch.FirstSequence)
	require.Len(t, batch.Records, 2)
	require.Equal(t, int32(1), batch.LastOffsetDelta)
}
