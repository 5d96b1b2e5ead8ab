package gokafka

import "sync"

// producerIdentity is the (producer_id, producer_epoch) pair InitProducerId
// hands back; every idempotent/transactional RecordBatch stamps these in
// its header so the broker can de-duplicate retried batches.
type producerIdentity struct {
	id    int64
	epoch int16
}

var noProducerIdentity = producerIdentity{id: -1, epoch: -1}

// transactionManager owns producer identity and the per-partition sequence
// counters an idempotent producer must advance exactly once per
// successfully written batch.
type transactionManager struct {
	client Client

	transactionalID string

	mu         sync.Mutex
	identity   producerIdentity
	sequences  map[string]map[int32]int32
	registered map[string]map[int32]bool // partitions added via AddPartitionsToTxn this transaction

	inTransaction bool
	fatalErr      error
}

func newTransactionManager(conf *Config, client Client) *transactionManager {
	return &transactionManager{
		client:          client,
		transactionalID: conf.Producer.Transaction.ID,
		sequences:       make(map[string]map[int32]int32),
		registered:      make(map[string]map[int32]bool),
		identity:        noProducerIdentity,
	}
}

func (t *transactionManager) isTransactional() bool { return t.transactionalID != "" }

// ensureInitialized performs the lazy InitProducerId call
// requires on first use ("first send with idempotent, or first
// begin_transaction, triggers InitProducerId").
func (t *transactionManager) ensureInitialized(conf *Config) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fatalErr != nil {
		return t.fatalErr
	}
	if t.identity != noProducerIdentity {
		return nil
	}

	var txnID *string
	if t.transactionalID != "" {
		txnID = &t.transactionalID
	}

	var coordinator *Broker
	var err error
	if t.isTransactional() {
		coordinator, err = t.client.Coordinator(t.transactionalID)
	} else {
		coordinator, err = t.client.Controller()
	}
	if err != nil {
		return err
	}

	req := &InitProducerIDRequest{
		Version:            coordinator.negotiatedVersion(apiKeyInitProducerId, 4),
		TransactionalID:    txnID,
		TransactionTimeout: conf.Producer.Transaction.Timeout,
		ProducerID:         -1,
		ProducerEpoch:      -1,
	}
	resp, err := coordinator.InitProducerID(req)
	if err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		return NewProtocolError(resp.Err, "InitProducerId")
	}

	t.identity = producerIdentity{id: resp.ProducerID, epoch: resp.ProducerEpoch}
	return nil
}

// nextSequence returns the base sequence for the next batch written to
// topic/partition and the identity to stamp, without advancing the
// counter — advance happens only in commitSequence, after a confirmed
// successful write.
func (t *transactionManager) nextSequence(topic string, partition int32) (producerIdentity, int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sequences[topic] == nil {
		t.sequences[topic] = make(map[int32]int32)
	}
	return t.identity, t.sequences[topic][partition]
}

func (t *transactionManager) commitSequence(topic string, partition int32, batchSize int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sequences[topic] == nil {
		t.sequences[topic] = make(map[int32]int32)
	}
	t.sequences[topic][partition] += batchSize
}

// fence clears producer identity after a fatal idempotent-producer error
// (OUT_OF_ORDER_SEQUENCE, INVALID_PRODUCER_EPOCH, ...): a fresh
// InitProducerId is required before any further send.
func (t *transactionManager) fence(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.identity = noProducerIdentity
	t.sequences = make(map[string]map[int32]int32)
	t.fatalErr = err
}

func (t *transactionManager) needsAddPartition(topic string, partition int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.registered[topic] == nil {
		return true
	}
	return !t.registered[topic][partition]
}

func (t *transactionManager) markAddedPartition(topic string, partition int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.registered[topic] == nil {
		t.registered[topic] = make(map[int32]bool)
	}
	t.registered[topic][partition] = true
}

// beginTxn resets per-transaction bookkeeping (registered partitions) while
// keeping the producer identity, which lives for the producer's lifetime.
func (t *transactionManager) beginTxn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registered = make(map[string]map[int32]bool)
	t.inTransaction = true
}

func (t *transactionManager) endTxn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inTransaction = false
}
