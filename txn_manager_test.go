//go:build !functional

package gokafka

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTransactionManagerStartsWithNoIdentity(t *testing.T) {
	tm := newTransactionManager(NewConfig(), &fakeClient{})
	require.False(t, tm.isTransactional())
	require.Equal(t, noProducerIdentity, tm.identity)
}

func TestIsTransactionalReflectsConfiguredID(t *testing.T) {
	conf := NewConfig()
	conf.Producer.Transaction.ID = "txn-1"
	tm := newTransactionManager(conf, &fakeClient{})
	require.True(t, tm.isTransactional())
}

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	broker := NewBroker("broker1:9092")
	calls := 0
	conf := NewConfig()
	tm := newTransactionManager(conf, &fakeClient{
		coordinatorFn: func(string) (*Broker, error) {
			calls++
			return broker, nil
		},
	})

	// ensureInitialized calls t.client.Controller() for a non-transactional
	// producer, which fakeClient doesn't wire; exercise the transactional
	// path instead, which goes through Coordinator.
	conf.Producer.Transaction.ID = "txn-1"
	tm.transactionalID = "txn-1"

	// coordinator.InitProducerID would need a live connection, so this test
	// only exercises the guard that skips InitProducerId once an identity
	// is already recorded.
	tm.identity = producerIdentity{id: 42, epoch: 0}
	require.NoError(t, tm.ensureInitialized(conf))
	require.Equal(t, 0, calls, "a producer with an identity already set must not call Coordinator again")
}

func TestEnsureInitializedReturnsFatalErrImmediately(t *testing.T) {
	tm := newTransactionManager(NewConfig(), &fakeClient{})
	sentinel := errors.New("fenced")
	tm.fatalErr = sentinel

	err := tm.ensureInitialized(NewConfig())
	require.ErrorIs(t, err, sentinel)
}

func TestNextSequenceDoesNotAdvanceUntilCommit(t *testing.T) {
	tm := newTransactionManager(NewConfig(), &fakeClient{})
	tm.identity = producerIdentity{id: 7, epoch: 0}

	identity, seq := tm.nextSequence("orders", 0)
	require.Equal(t, int32(0), seq)
	require.Equal(t, tm.identity, identity)

	identity, seq = tm.nextSequence("orders", 0)
	require.Equal(t, int32(0), seq, "sequence must not advance without a commitSequence call")
	require.Equal(t, tm.identity, identity)
}

func TestCommitSequenceAdvancesByBatchSize(t *testing.T) {
	tm := newTransactionManager(NewConfig(), &fakeClient{})
	tm.commitSequence("orders", 0, 5)
	_, seq := tm.nextSequence("orders", 0)
	require.Equal(t, int32(5), seq)

	tm.commitSequence("orders", 0, 3)
	_, seq = tm.nextSequence("orders", 0)
	require.Equal(t, int32(8), seq)
}

func TestCommitSequenceTracksPartitionsIndependently(t *testing.T) {
	tm := newTransactionManager(NewConfig(), &fakeClient{})
	tm.commitSequence("orders", 0, 2)
	tm.commitSequence("orders", 1, 9)

	_, seq0 := tm.nextSequence("orders", 0)
	_, seq1 := tm.nextSequence("orders", 1)
	require.Equal(t, int32(2), seq0)
	require.Equal(t, int32(9), seq1)
}

func TestFenceClearsIdentityAndSequencesAndRecordsError(t *testing.T) {
	tm := newTransactionManager(NewConfig(), &fakeClient{})
	tm.identity = producerIdentity{id: 1, epoch: 0}
	tm.commitSequence("orders", 0, 10)

	sentinel := errors.New("out of order sequence")
	tm.fence(sentinel)

	require.Equal(t, noProducerIdentity, tm.identity)
	require.ErrorIs(t, tm.fatalErr, sentinel)
	_, seq := tm.nextSequence("orders", 0)
	require.Equal(t, int32(0), seq, "fence must reset sequence counters so a fresh InitProducerId starts clean")
}

func TestNeedsAddPartitionTracksPerTopicPartition(t *testing.T) {
	tm := newTransactionManager(NewConfig(), &fakeClient{})
	require.True(t, tm.needsAddPartition("orders", 0))

	tm.markAddedPartition("orders", 0)
	require.False(t, tm.needsAddPartition("orders", 0))
	require.True(t, tm.needsAddPartition("orders", 1), "marking one partition must not mark a sibling")
}

func TestBeginTxnResetsRegisteredPartitionsButKeepsIdentity(t *testing.T) {
	tm := newTransactionManager(NewConfig(), &fakeClient{})
	tm.identity = producerIdentity{id: 1, epoch: 0}
	tm.markAddedPartition("orders", 0)

	tm.beginTxn()

	require.True(t, tm.inTransaction)
	require.True(t, tm.needsAddPartition("orders", 0), "beginTxn must clear per-transaction partition registration")
	require.Equal(t, producerIdentity{id: 1, epoch: 0}, tm.identity, "beginTxn must not touch the producer-lifetime identity")
}

func TestEndTxnClearsInTransactionFlag(t *testing.T) {
	tm := newTransactionManager(NewConfig(), &fakeClient{})
	tm.beginTxn()
	tm.endTxn()
	require.False(t, tm.inTransaction)
}
