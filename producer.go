package gokafka

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Producer is the asynchronous send path: callers push ProducerMessages
// onto Input() and drain results from Successes()/Errors() (when
// Config.Producer.Return.{Successes,Errors} enables them), mirroring the
// channel-driven Consumer/PartitionConsumer shape on the send
// side.
type Producer interface {
	// Input is the channel messages are written to for delivery.
	Input() chan<- *ProducerMessage
	// Successes returns delivered messages, if Return.Successes is enabled.
	Successes() <-chan *ProducerMessage
	// Errors returns send failures, if Return.Errors is enabled; otherwise
	// failures are only logged.
	Errors() <-chan *ProducerError

	// BeginTxn starts a transaction; fails if one is already active.
	BeginTxn() (*Transaction, error)
	// TxnStatus reports the current transaction manager state for
	// observability.
	TxnStatus() ProducerTxnStatus

	AsyncClose()
	Close() error
}

// ProducerTxnStatus observes the transaction manager's state from outside
// the producer, without exposing the manager itself.
type ProducerTxnStatus int8

const (
	ProducerTxnFlagReady ProducerTxnStatus = iota
	ProducerTxnFlagInTransaction
	ProducerTxnFlagFatalError
)

type produceGroup struct {
	leaderID  int32
	topic     string
	partition int32
	msgs      []*ProducerMessage
}

type producer struct {
	conf       *Config
	client     Client
	ownsClient bool

	txnmgr *transactionManager
	txnMu  sync.Mutex
	txn    *Transaction

	partitioners   map[string]Partitioner
	partitionersMu sync.Mutex

	input     chan *ProducerMessage
	successes chan *ProducerMessage
	errors    chan *ProducerError

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewProducer creates a Producer dialing addrs with its own Client, closed
// together with the producer.
func NewProducer(addrs []string, conf *Config) (Producer, error) {
	client, err := NewClient(addrs, conf)
	if err != nil {
		return nil, err
	}
	p, err := newProducer(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	p.ownsClient = true
	return p, nil
}

// NewProducerFromClient builds a Producer on a caller-owned Client; Close
// on the returned Producer never closes client.
func NewProducerFromClient(client Client) (Producer, error) {
	if client.Closed() {
		return nil, ErrClosedClient
	}
	return newProducer(&nopCloserClient{client})
}

func newProducer(client Client) (*producer, error) {
	conf := client.Config()
	if conf.Producer.Idempotent && conf.Producer.RequiredAcks != WaitForAll {
		return nil, ConfigurationError("idempotent producer requires RequiredAcks=WaitForAll")
	}

	p := &producer{
		conf:         conf,
		client:       client,
		txnmgr:       newTransactionManager(conf, client),
		partitioners: make(map[string]Partitioner),
		input:        make(chan *ProducerMessage, conf.ChannelBufferSize),
		successes:    make(chan *ProducerMessage, conf.ChannelBufferSize),
		errors:       make(chan *ProducerError, conf.ChannelBufferSize),
		closing:      make(chan struct{}),
	}

	p.wg.Add(1)
	go withRecover(p.dispatcher)

	return p, nil
}

func (p *producer) Input() chan<- *ProducerMessage     { return p.input }
func (p *producer) Successes() <-chan *ProducerMessage { return p.successes }
func (p *producer) Errors() <-chan *ProducerError      { return p.errors }

func (p *producer) TxnStatus() ProducerTxnStatus {
	p.txnMu.Lock()
	defer p.txnMu.Unlock()
	if p.txnmgr.fatalErr != nil {
		return ProducerTxnFlagFatalError
	}
	if p.txn != nil {
		return ProducerTxnFlagInTransaction
	}
	return ProducerTxnFlagReady
}

func (p *producer) AsyncClose() {
	p.closeOnce.Do(func() {
		close(p.closing)
		close(p.input)
	})
}

func (p *producer) Close() error {
	p.AsyncClose()
	p.wg.Wait()
	if p.ownsClient {
		return p.client.Close()
	}
	return nil
}

// dispatcher batches messages pulled off Input() per Config.Producer.Flush
// before handing them to produceMessages.
func (p *producer) dispatcher() {
	defer p.wg.Done()

	var batch []*ProducerMessage
	var batchBytes int

	interval := p.flushInterval()
	var tickC <-chan time.Time
	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	flush := func() {
		if len(batch) == 0 {
			return
		}
		toSend := batch
		batch = nil
		batchBytes = 0
		p.produceMessages(toSend)
	}

	for {
		select {
		case msg, ok := <-p.input:
			if !ok {
				flush()
				return
			}
			if msg.Value != nil && p.conf.Producer.MaxMessageBytes > 0 && msg.Value.Length() > p.conf.Producer.MaxMessageBytes {
				p.fail(msg, ErrMessageTooLarge)
				continue
			}
			batch = append(batch, msg)
			batchBytes += msg.byteSize(2)

			switch {
			case p.conf.Producer.Flush.MaxMessages > 0 && len(batch) >= p.conf.Producer.Flush.MaxMessages:
				flush()
			case p.conf.Producer.Flush.Messages > 0 && len(batch) >= p.conf.Producer.Flush.Messages:
				flush()
			case p.conf.Producer.Flush.Bytes > 0 && batchBytes >= p.conf.Producer.Flush.Bytes:
				flush()
			case interval <= 0:
				flush()
			}

		case <-tickC:
			flush()
		}
	}
}

func (p *producer) flushInterval() time.Duration {
	return p.conf.Producer.Flush.Frequency
}

func (p *producer) fail(msg *ProducerMessage, err error) {
	pe := &ProducerError{Msg: msg, Err: err}
	switch {
	case msg.expectation != nil:
		msg.expectation <- pe
	case p.conf.Producer.Return.Errors:
		p.errors <- pe
	default:
		Logger.Printf("kafka: producer error: %v\n", pe)
	}
}

func (p *producer) succeed(msg *ProducerMessage) {
	switch {
	case msg.expectation != nil:
		msg.expectation <- nil
	case p.conf.Producer.Return.Successes:
		p.successes <- msg
	}
}

func (p *producer) partitionerFor(topic string) Partitioner {
	p.partitionersMu.Lock()
	defer p.partitionersMu.Unlock()
	if part, ok := p.partitioners[topic]; ok {
		return part
	}
	part := p.conf.Producer.Partitioner(topic)
	p.partitioners[topic] = part
	return part
}

func encoderBytes(e Encoder) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	return e.Encode()
}

// produceMessages runs the send path: assign
// partitions, group by (leader, topic, partition), register new partitions
// with the transaction coordinator when running inside a transaction, and
// dispatch one Produce request per leader in parallel.
func (p *producer) produceMessages(msgs []*ProducerMessage) {
	if len(msgs) == 0 {
		return
	}

	_, endSpan := startSpan(context.Background(), "gokafka.Produce",
		attribute.Int("gokafka.message_count", len(msgs)))
	defer endSpan(nil)

	for _, msg := range msgs {
		for _, interceptor := range p.conf.Producer.Interceptors {
			msg.safelyApplyInterceptor(interceptor)
		}
	}

	if p.conf.Producer.Idempotent || p.txnmgr.isTransactional() {
		if err := p.txnmgr.ensureInitialized(p.conf); err != nil {
			for _, msg := range msgs {
				p.fail(msg, err)
			}
			return
		}
	}

	groups := make(map[string]*produceGroup)
	newPartitions := make(map[string]map[int32]bool)

	for _, msg := range msgs {
		partitions, err := p.client.Partitions(msg.Topic)
		if err != nil {
			p.fail(msg, err)
			continue
		}
		partitioner := p.partitionerFor(msg.Topic)
		partition, err := partitioner.Partition(msg, int32(len(partitions)))
		if err != nil {
			p.fail(msg, err)
			continue
		}
		msg.Partition = partition

		leader, _, err := p.client.LeaderAndEpoch(msg.Topic, partition)
		if err != nil {
			p.fail(msg, err)
			continue
		}

		key := fmt32key(leader.ID(), msg.Topic, partition)
		g, ok := groups[key]
		if !ok {
			g = &produceGroup{leaderID: leader.ID(), topic: msg.Topic, partition: partition}
			groups[key] = g
		}
		g.msgs = append(g.msgs, msg)

		if p.txnmgr.isTransactional() && p.txnmgr.needsAddPartition(msg.Topic, partition) {
			if newPartitions[msg.Topic] == nil {
				newPartitions[msg.Topic] = make(map[int32]bool)
			}
			newPartitions[msg.Topic][partition] = true
		}
	}

	if len(newPartitions) > 0 {
		if err := p.registerTxnPartitions(newPartitions); err != nil {
			for _, g := range groups {
				for _, msg := range g.msgs {
					p.fail(msg, err)
				}
			}
			return
		}
	}

	byLeader := make(map[int32][]*produceGroup)
	for _, g := range groups {
		byLeader[g.leaderID] = append(byLeader[g.leaderID], g)
	}

	var wg sync.WaitGroup
	for leaderID, gs := range byLeader {
		leaderID, gs := leaderID, gs
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.produceToLeader(leaderID, gs)
		}()
	}
	wg.Wait()
}

func fmt32key(leaderID int32, topic string, partition int32) string {
	buf := make([]byte, 0, len(topic)+16)
	buf = appendInt32(buf, leaderID)
	buf = append(buf, ':')
	buf = append(buf, topic...)
	buf = append(buf, ':')
	buf = appendInt32(buf, partition)
	return string(buf)
}

func appendInt32(buf []byte, v int32) []byte {
	neg := v < 0
	if neg {
		v = -v
		buf = append(buf, '-')
	}
	start := len(buf)
	if v == 0 {
		return append(buf, '0')
	}
	for v > 0 {
		buf = append(buf, byte('0'+v%10))
		v /= 10
	}
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// registerTxnPartitions issues one AddPartitionsToTxn per topic against the
// transaction coordinator for every partition not yet added this
// transaction.
func (p *producer) registerTxnPartitions(byTopic map[string]map[int32]bool) error {
	coordinator, err := p.client.Coordinator(p.txnmgr.transactionalID)
	if err != nil {
		return err
	}

	identity, _ := p.txnmgr.nextSequence("", 0)
	req := &AddPartitionsToTxnRequest{
		Version:         coordinator.negotiatedVersion(apiKeyAddPartitionsToTxn, 3),
		TransactionalID: p.txnmgr.transactionalID,
		ProducerID:      identity.id,
		ProducerEpoch:   identity.epoch,
		TopicPartitions: make(map[string][]int32),
	}
	for topic, partitions := range byTopic {
		for partition := range partitions {
			req.TopicPartitions[topic] = append(req.TopicPartitions[topic], partition)
		}
	}

	resp, err := coordinator.AddPartitionsToTxn(req)
	if err != nil {
		return err
	}
	for topic, partitions := range resp.Errors {
		for partition, kerr := range partitions {
			if kerr != ErrNoError {
				return NewProtocolError(kerr, "AddPartitionsToTxn: "+topic)
			}
			p.txnmgr.markAddedPartition(topic, partition)
		}
	}
	return nil
}

// produceToLeader builds and sends one ProduceRequest per leader, then
// hands each partition's response block to handleProduceResult.
func (p *producer) produceToLeader(leaderID int32, groups []*produceGroup) {
	broker, err := p.client.Broker(leaderID)
	if err != nil {
		for _, g := range groups {
			for _, msg := range g.msgs {
				p.fail(msg, err)
			}
		}
		return
	}

	version := broker.negotiatedVersion(apiKeyProduce, 9)
	req := &ProduceRequest{
		Version:      version,
		RequiredAcks: p.conf.Producer.RequiredAcks,
		Timeout:      int32(p.conf.Producer.Timeout / time.Millisecond),
	}
	if p.txnmgr.isTransactional() {
		id := p.txnmgr.transactionalID
		req.TransactionalID = &id
	}

	now := time.Now()
	for _, g := range groups {
		if version >= 3 {
			batch := p.buildRecordBatch(g, now)
			req.AddBatch(g.topic, g.partition, batch)
		} else {
			set := new(MessageSet)
			for _, msg := range g.msgs {
				keyBytes, _ := encoderBytes(msg.Key)
				valBytes, _ := encoderBytes(msg.Value)
				set.addMessage(&Message{Version: 1, Key: keyBytes, Value: valBytes, Timestamp: now})
			}
			for _, m := range set.Messages {
				req.AddMessage(g.topic, g.partition, m.Msg)
			}
		}
	}

	resp, err := broker.Produce(req)
	if err != nil {
		_ = p.client.RefreshMetadata(groupTopics(groups)...)
		for _, g := range groups {
			for _, msg := range g.msgs {
				p.fail(msg, err)
			}
		}
		return
	}
	if resp == nil {
		for _, g := range groups {
			for _, msg := range g.msgs {
				msg.Offset = -1
				p.succeed(msg)
			}
		}
		return
	}

	for _, g := range groups {
		block := resp.GetBlock(g.topic, g.partition)
		if block == nil {
			for _, msg := range g.msgs {
				p.fail(msg, ErrIncompleteResponse)
			}
			continue
		}
		p.handleProduceResult(g, block)
	}
}

func groupTopics(groups []*produceGroup) []string {
	seen := make(map[string]bool, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if !seen[g.topic] {
			seen[g.topic] = true
			out = append(out, g.topic)
		}
	}
	return out
}

func (p *producer) buildRecordBatch(g *produceGroup, now time.Time) *RecordBatch {
	batch := &RecordBatch{
		Version:         2,
		Codec:           p.conf.Producer.Compression,
		FirstTimestamp:  now,
		MaxTimestamp:    now,
		IsTransactional: p.txnmgr.isTransactional(),
	}

	identity := noProducerIdentity
	var base int32
	if p.conf.Producer.Idempotent || p.txnmgr.isTransactional() {
		identity, base = p.txnmgr.nextSequence(g.topic, g.partition)
	}
	batch.ProducerID = identity.id
	batch.ProducerEpoch = identity.epoch
	batch.FirstSequence = base

	for i, msg := range g.msgs {
		keyBytes, _ := encoderBytes(msg.Key)
		valBytes, _ := encoderBytes(msg.Value)
		headers := make([]*RecordHeader, len(msg.Headers))
		for hi := range msg.Headers {
			headers[hi] = &msg.Headers[hi]
		}
		batch.Records = append(batch.Records, &Record{
			OffsetDelta: int64(i),
			Key:         keyBytes,
			Value:       valBytes,
			Headers:     headers,
		})
	}
	batch.LastOffsetDelta = int32(len(batch.Records) - 1)
	return batch
}

// handleProduceResult applies the per-partition error handling.
func (p *producer) handleProduceResult(g *produceGroup, block *ProduceResponseBlock) {
	switch {
	case block.Err == ErrNoError || block.Err == ErrDuplicateSequenceNumber:
		if p.conf.Producer.Idempotent || p.txnmgr.isTransactional() {
			p.txnmgr.commitSequence(g.topic, g.partition, int32(len(g.msgs)))
		}
		for i, msg := range g.msgs {
			msg.Offset = block.Offset + int64(i)
			p.succeed(msg)
		}

	case block.Err == ErrNotLeaderForPartition || block.Err == ErrUnknownTopicOrPartition || block.Err == ErrLeaderNotAvailable:
		p.retryGroup(g)

	case block.Err == ErrOutOfOrderSequenceNumber || block.Err == ErrInvalidProducerEpoch:
		ferr := NewProtocolError(block.Err, "producer fenced, re-initialization required")
		p.txnmgr.fence(ferr)
		for _, msg := range g.msgs {
			p.fail(msg, ferr)
		}

	case block.Err == ErrMessageTooLarge:
		for _, msg := range g.msgs {
			p.fail(msg, ErrMessageTooLarge)
		}

	default:
		perr := NewProtocolError(block.Err, "produce")
		for _, msg := range g.msgs {
			p.fail(msg, perr)
		}
	}
}

// retryGroup bounds the "force metadata refresh and
// retry (bounded)" by Config.Producer.Retry.Max per message.
func (p *producer) retryGroup(g *produceGroup) {
	var retryable []*ProducerMessage
	for _, msg := range g.msgs {
		msg.retries++
		if msg.retries > p.conf.Producer.Retry.Max {
			p.fail(msg, ErrOutOfBrokers)
		} else {
			retryable = append(retryable, msg)
		}
	}
	if len(retryable) == 0 {
		return
	}
	_ = p.client.RefreshMetadata(g.topic)
	if p.conf.Producer.Retry.Backoff > 0 {
		time.Sleep(p.conf.Producer.Retry.Backoff)
	}
	p.produceMessages(retryable)
}
