package gokafka

import (
	"sync"
)

// ErrTransactionNotInProgress is returned by Transaction methods once the
// transaction has already been committed, aborted, or superseded by a
// newer BeginTxn call.
var ErrTransactionNotInProgress = ConfigurationError("kafka: no transaction in progress")

// ErrTransactionInProgress guards the single-live-transaction invariant:
// BeginTxn refuses to start a second transaction while one is still open.
var ErrTransactionInProgress = ConfigurationError("kafka: a transaction is already in progress")

// ProducerTxnOffsets is one consumer group's worth of offsets to commit as
// part of the enclosing transaction, the "consume-transform-produce" half
// of exactly-once semantics. GroupID identifies the
// consumer group whose progress this transaction is advancing; Offsets
// maps topic to the partition offsets to commit (no metadata is sent).
type ProducerTxnOffsets struct {
	GroupID string
	Offsets map[string]map[int32]int64
}

// Transaction represents one live transaction on a transactional Producer.
// Only one Transaction may be in progress per producer at a time; once
// Commit, Abort, or Cancel returns, this instance is stale and every
// further method call returns ErrTransactionNotInProgress.
type Transaction struct {
	producer *producer

	mu   sync.Mutex
	done bool
}

// BeginTxn opens a new transaction on the producer. Fails with
// ErrTransactionInProgress if one is already open, or with the producer's
// fatal error if the transaction manager has been fenced.
func (p *producer) BeginTxn() (*Transaction, error) {
	if !p.txnmgr.isTransactional() {
		return nil, ConfigurationError("kafka: BeginTxn requires Producer.Transaction.ID to be set")
	}

	p.txnMu.Lock()
	defer p.txnMu.Unlock()

	if p.txn != nil {
		return nil, ErrTransactionInProgress
	}
	if err := p.txnmgr.ensureInitialized(p.conf); err != nil {
		return nil, err
	}

	p.txnmgr.beginTxn()
	txn := &Transaction{producer: p}
	p.txn = txn
	return txn, nil
}

func (t *Transaction) checkLive() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTransactionNotInProgress
	}
	return nil
}

// Send delivers msgs within this transaction. It calls the producer's send
// path directly and returns once they are dispatched, without the Input()
// dispatcher's Flush batching or MaxMessageBytes check; outcomes are
// reported as for any other send. The messages are grouped and dispatched like
// non-transactional sends, but
// stamped with the transaction's producer ID/epoch and registered against
// partitions via AddPartitionsToTxn on first use.
func (t *Transaction) Send(msgs ...*ProducerMessage) error {
	if err := t.checkLive(); err != nil {
		return err
	}
	t.producer.produceMessages(msgs)
	return nil
}

// AddOffsets registers a consumer group's offsets to be committed
// atomically with this transaction's produced records, implementing the
// AddOffsetsToTxn + TxnOffsetCommit pair.
func (t *Transaction) AddOffsets(offsets ProducerTxnOffsets) error {
	if err := t.checkLive(); err != nil {
		return err
	}

	p := t.producer
	coordinator, err := p.client.Coordinator(p.txnmgr.transactionalID)
	if err != nil {
		return err
	}

	addReq := &AddOffsetsToTxnRequest{
		Version:         coordinator.negotiatedVersion(apiKeyAddOffsetsToTxn, 3),
		TransactionalID: p.txnmgr.transactionalID,
		ProducerID:      p.txnmgr.identity.id,
		ProducerEpoch:   p.txnmgr.identity.epoch,
		GroupID:         offsets.GroupID,
	}
	addResp, err := coordinator.AddOffsetsToTxn(addReq)
	if err != nil {
		return err
	}
	if addResp.Err != ErrNoError {
		return NewProtocolError(addResp.Err, "AddOffsetsToTxn")
	}

	groupCoordinator, err := p.client.Coordinator(offsets.GroupID)
	if err != nil {
		return err
	}

	commitReq := &TxnOffsetCommitRequest{
		Version:         groupCoordinator.negotiatedVersion(apiKeyTxnOffsetCommit, 3),
		TransactionalID: p.txnmgr.transactionalID,
		GroupID:         offsets.GroupID,
		ProducerID:      p.txnmgr.identity.id,
		ProducerEpoch:   p.txnmgr.identity.epoch,
	}
	for topic, partitions := range offsets.Offsets {
		for partition, offset := range partitions {
			commitReq.AddBlock(topic, partition, offset, invalidLeaderEpoch, nil)
		}
	}
	commitResp, err := groupCoordinator.TxnOffsetCommit(commitReq)
	if err != nil {
		return err
	}
	for topic, partitions := range commitResp.Errors {
		for partition, kerr := range partitions {
			if kerr != ErrNoError {
				return NewProtocolError(kerr, "TxnOffsetCommit: "+topic)
			}
			_ = partition
		}
	}
	return nil
}

// Commit ends the transaction, instructing the coordinator to make every
// produced record and committed offset visible to ReadCommitted consumers.
func (t *Transaction) Commit() error {
	return t.end(true)
}

// Abort ends the transaction, instructing the coordinator to discard every
// produced record and committed offset in it.
func (t *Transaction) Abort() error {
	return t.end(false)
}

// Cancel marks the transaction stale without contacting the coordinator,
// for use when the caller already knows the underlying producer has been
// fenced (e.g. after BeginTxn returns an error on the next call) and an
// EndTxn round-trip would just fail.
func (t *Transaction) Cancel() {
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()

	p := t.producer
	p.txnMu.Lock()
	if p.txn == t {
		p.txn = nil
	}
	p.txnMu.Unlock()
	p.txnmgr.endTxn()
}

func (t *Transaction) end(commit bool) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTransactionNotInProgress
	}
	t.done = true
	t.mu.Unlock()

	p := t.producer
	p.txnMu.Lock()
	if p.txn == t {
		p.txn = nil
	}
	p.txnMu.Unlock()
	defer p.txnmgr.endTxn()

	coordinator, err := p.client.Coordinator(p.txnmgr.transactionalID)
	if err != nil {
		return err
	}

	req := &EndTxnRequest{
		Version:           coordinator.negotiatedVersion(apiKeyEndTxn, 3),
		TransactionalID:   p.txnmgr.transactionalID,
		ProducerID:        p.txnmgr.identity.id,
		ProducerEpoch:     p.txnmgr.identity.epoch,
		TransactionResult: commit,
	}
	resp, err := coordinator.EndTxn(req)
	if err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		if fatal, ok := fatalForIdempotentProducer[resp.Err]; ok && fatal {
			p.txnmgr.fence(NewProtocolError(resp.Err, "EndTxn"))
		}
		return NewProtocolError(resp.Err, "EndTxn")
	}
	return nil
}
