//go:build !functional

package gokafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTxnProducer(t *testing.T, transactional bool) *producer {
	t.Helper()
	conf := NewConfig()
	if transactional {
		conf.Producer.Transaction.ID = "txn-1"
		conf.Producer.Idempotent = true
		conf.Producer.RequiredAcks = WaitForAll
	}
	client := &fakeClient{}
	return &producer{
		conf:   conf,
		client: client,
		txnmgr: newTransactionManager(conf, client),
	}
}

func TestBeginTxnRequiresTransactionalID(t *testing.T) {
	p := newTestTxnProducer(t, false)
	_, err := p.BeginTxn()
	require.Error(t, err)
	var cfgErr ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestBeginTxnRefusesASecondConcurrentTransaction(t *testing.T) {
	p := newTestTxnProducer(t, true)
	p.txnmgr.identity = producerIdentity{id: 1, epoch: 0} // skip ensureInitialized's network call

	txn, err := p.BeginTxn()
	require.NoError(t, err)
	require.NotNil(t, txn)

	_, err = p.BeginTxn()
	require.ErrorIs(t, err, ErrTransactionInProgress)
}

func TestBeginTxnPropagatesFatalErrFromEnsureInitialized(t *testing.T) {
	p := newTestTxnProducer(t, true)
	sentinel := ConfigurationError("kafka: fenced")
	p.txnmgr.fatalErr = sentinel

	_, err := p.BeginTxn()
	require.ErrorIs(t, err, sentinel)
}

func TestTransactionMethodsFailAfterDone(t *testing.T) {
	p := newTestTxnProducer(t, true)
	p.txnmgr.identity = producerIdentity{id: 1, epoch: 0}
	txn, err := p.BeginTxn()
	require.NoError(t, err)

	txn.Cancel()

	require.ErrorIs(t, txn.Send(&ProducerMessage{Topic: "orders"}), ErrTransactionNotInProgress)
	require.ErrorIs(t, txn.AddOffsets(ProducerTxnOffsets{GroupID: "g"}), ErrTransactionNotInProgress)
}

func TestCancelClearsProducersActiveTransactionAndEndsTxnMgr(t *testing.T) {
	p := newTestTxnProducer(t, true)
	p.txnmgr.identity = producerIdentity{id: 1, epoch: 0}
	txn, err := p.BeginTxn()
	require.NoError(t, err)
	require.True(t, p.txnmgr.inTransaction)

	txn.Cancel()

	require.Nil(t, p.txn)
	require.False(t, p.txnmgr.inTransaction)
}

func TestCancelIsSafeIfAnotherTransactionAlreadyReplacedThis(t *testing.T) {
	p := newTestTxnProducer(t, true)
	p.txnmgr.identity = producerIdentity{id: 1, epoch: 0}
	first, err := p.BeginTxn()
	require.NoError(t, err)

	first.Cancel() // clears p.txn and ends the txn manager's in-progress flag
	p.txnmgr.beginTxn()
	second := &Transaction{producer: p}
	p.txn = second

	first.Cancel() // stale txn must not clobber the newer one
	require.Same(t, second, p.txn)
}
