package gokafka

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcrowley/go-metrics"
)

// ConsumerMessage is a single record delivered to a caller, with the
// per-message metadata needed to track position and ordering.
type ConsumerMessage struct {
	Headers        []*RecordHeader // only set if kafka is version 0.11+
	Timestamp      time.Time       // only set if kafka is version 0.10+, inner message timestamp
	BlockTimestamp time.Time       // only set if kafka is version 0.10+, outer (compressed) block timestamp

	Key, Value []byte
	Topic      string
	Partition  int32
	Offset     int64
}

// ConsumerError pairs a delivery failure with the topic/partition it came
// from, so a caller fanning errors in from many partitions can tell them
// apart.
type ConsumerError struct {
	Topic     string
	Partition int32
	Err       error
}

func (ce ConsumerError) Error() string {
	return fmt.Sprintf("kafka: error while consuming %s/%d: %s", ce.Topic, ce.Partition, ce.Err)
}

func (ce ConsumerError) Unwrap() error {
	return ce.Err
}

// ConsumerErrors batches the errors harvested when a PartitionConsumer is
// closed, so callers don't have to drain an errors channel by hand during
// shutdown.
type ConsumerErrors []*ConsumerError

func (ce ConsumerErrors) Error() string {
	return fmt.Sprintf("kafka: %d errors while consuming", len(ce))
}

// Consumer fetches messages directly by topic/partition, independent of any
// consumer-group coordination. Close() must be called explicitly; nothing
// about the underlying connections is collected by the garbage collector.
type Consumer interface {
	// Topics lists the topics visible in the cluster metadata; same data
	// as Client.Topics(), exposed here for convenience.
	Topics() ([]string, error)

	// Partitions lists the partition IDs of a topic in ascending order;
	// same data as Client.Partitions(), exposed here for convenience.
	Partitions(topic string) ([]int32, error)

	// ConsumePartition starts fetching topic/partition from offset, which
	// may be a literal offset, OffsetNewest, or OffsetOldest. Calling this
	// twice for the same topic/partition without closing the first
	// PartitionConsumer returns an error.
	ConsumePartition(topic string, partition int32, offset int64) (PartitionConsumer, error)

	// HighWaterMarks reports the latest known high water mark per
	// topic/partition. Marks are refreshed independently per partition, so
	// the snapshot across partitions is not guaranteed consistent.
	HighWaterMarks() map[string]map[int32]int64

	// Close shuts the consumer down. Every PartitionConsumer it spawned
	// must already be closed before calling this.
	Close() error

	// Pause stops fetching on the given topic/partitions until Resume is
	// called for them. Subscription state is untouched, so this never
	// triggers a group rebalance under automatic assignment.
	Pause(topicPartitions map[string][]int32)

	// Resume undoes Pause for the given topic/partitions.
	Resume(topicPartitions map[string][]int32)

	// PauseAll stops fetching on every partition this consumer holds.
	PauseAll()

	// ResumeAll undoes PauseAll.
	ResumeAll()
}

// fetchWorkerBatchTimeout bounds how long a brokerFetchWorker waits for more
// partition subscriptions to arrive before issuing the next fetch request,
// so a burst of ConsumePartition calls lands in one request instead of many.
const fetchWorkerBatchTimeout = 100 * time.Millisecond

// multiConsumer is the non-group Consumer: it owns one partitionFetcher per
// topic/partition a caller asked for, and multiplexes partitionFetchers that
// share a leader broker onto a single brokerFetchWorker so the wire only
// carries one FetchRequest per broker per round, however many partitions on
// that broker are being read.
type multiConsumer struct {
	conf         *Config
	partitions   map[string]map[int32]*partitionFetcher
	fetchWorkers map[*Broker]*brokerFetchWorker
	client       Client
	metrics      metrics.Registry
	mu           sync.Mutex
}

// NewConsumer dials addrs and returns a Consumer over the resulting Client.
func NewConsumer(addrs []string, config *Config) (Consumer, error) {
	client, err := NewClient(addrs, config)
	if err != nil {
		return nil, err
	}
	return newMultiConsumer(client)
}

// NewConsumerFromClient builds a Consumer on top of an already-open Client.
// The Client is not closed when the returned Consumer is; closing it remains
// the caller's responsibility.
func NewConsumerFromClient(client Client) (Consumer, error) {
	return newMultiConsumer(&nopCloserClient{client})
}

func newMultiConsumer(client Client) (Consumer, error) {
	if client.Closed() {
		return nil, ErrClosedClient
	}

	mc := &multiConsumer{
		client:       client,
		conf:         client.Config(),
		partitions:   make(map[string]map[int32]*partitionFetcher),
		fetchWorkers: make(map[*Broker]*brokerFetchWorker),
		metrics:      newCleanupRegistry(client.Config().MetricRegistry),
	}

	return mc, nil
}

func (mc *multiConsumer) Close() error {
	mc.metrics.UnregisterAll()
	return mc.client.Close()
}

func (mc *multiConsumer) Topics() ([]string, error) {
	return mc.client.Topics()
}

func (mc *multiConsumer) Partitions(topic string) ([]int32, error) {
	return mc.client.Partitions(topic)
}

func (mc *multiConsumer) ConsumePartition(topic string, partition int32, offset int64) (PartitionConsumer, error) {
	pf := &partitionFetcher{
		owner:                mc,
		conf:                 mc.conf,
		topic:                topic,
		partition:            partition,
		messages:             make(chan *ConsumerMessage, mc.conf.ChannelBufferSize),
		errors:               make(chan *ConsumerError, mc.conf.ChannelBufferSize),
		feeder:               make(chan *FetchResponse, 1),
		leaderEpoch:          invalidLeaderEpoch,
		preferredReadReplica: invalidPreferredReplicaID,
		trigger:              make(chan none, 1),
		dying:                make(chan none),
		fetchSize:            mc.conf.Consumer.Fetch.Default,
	}

	if err := pf.chooseStartingOffset(offset); err != nil {
		return nil, err
	}

	leader, epoch, err := mc.client.LeaderAndEpoch(pf.topic, pf.partition)
	if err != nil {
		return nil, err
	}

	if err := mc.trackPartition(pf); err != nil {
		return nil, err
	}

	go withRecover(pf.dispatchLoop)
	go withRecover(pf.deliverLoop)

	pf.leaderEpoch = epoch
	pf.worker = mc.refFetchWorker(leader)
	pf.worker.subscribe <- pf

	return pf, nil
}

func (mc *multiConsumer) HighWaterMarks() map[string]map[int32]int64 {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	hwms := make(map[string]map[int32]int64)
	for topic, byPartition := range mc.partitions {
		hwm := make(map[int32]int64, len(byPartition))
		for partition, pf := range byPartition {
			hwm[partition] = pf.HighWaterMarkOffset()
		}
		hwms[topic] = hwm
	}

	return hwms
}

// trackPartition registers a freshly created partitionFetcher, rejecting a
// duplicate topic/partition rather than silently letting two fetchers race
// over the same offsets.
func (mc *multiConsumer) trackPartition(pf *partitionFetcher) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	byPartition := mc.partitions[pf.topic]
	if byPartition == nil {
		byPartition = make(map[int32]*partitionFetcher)
		mc.partitions[pf.topic] = byPartition
	}

	if byPartition[pf.partition] != nil {
		return ConfigurationError("That topic/partition is already being consumed")
	}

	byPartition[pf.partition] = pf
	return nil
}

func (mc *multiConsumer) untrackPartition(pf *partitionFetcher) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	delete(mc.partitions[pf.topic], pf.partition)
}

// refFetchWorker returns the brokerFetchWorker for broker, creating it on
// first use, and bumps its reference count. Every partitionFetcher assigned
// to a worker must pair this with exactly one unrefFetchWorker.
func (mc *multiConsumer) refFetchWorker(broker *Broker) *brokerFetchWorker {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	w := mc.fetchWorkers[broker]
	if w == nil {
		w = mc.newBrokerFetchWorker(broker)
		mc.fetchWorkers[broker] = w
	}

	w.refs++

	return w
}

func (mc *multiConsumer) unrefFetchWorker(w *brokerFetchWorker) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	w.refs--

	if w.refs == 0 {
		close(w.subscribe)
		if mc.fetchWorkers[w.broker] == w {
			delete(mc.fetchWorkers, w.broker)
		}
	}
}

// abandonFetchWorker drops a worker that hit a connection error, without
// waiting for its reference count to reach zero; the worker's own abort loop
// finishes notifying its subscribers.
func (mc *multiConsumer) abandonFetchWorker(w *brokerFetchWorker) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	delete(mc.fetchWorkers, w.broker)
}

// Pause implements Consumer.
func (mc *multiConsumer) Pause(topicPartitions map[string][]int32) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for topic, partitions := range topicPartitions {
		for _, partition := range partitions {
			if byPartition, ok := mc.partitions[topic]; ok {
				if pf, ok := byPartition[partition]; ok {
					pf.Pause()
				}
			}
		}
	}
}

// Resume implements Consumer.
func (mc *multiConsumer) Resume(topicPartitions map[string][]int32) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for topic, partitions := range topicPartitions {
		for _, partition := range partitions {
			if byPartition, ok := mc.partitions[topic]; ok {
				if pf, ok := byPartition[partition]; ok {
					pf.Resume()
				}
			}
		}
	}
}

// PauseAll implements Consumer.
func (mc *multiConsumer) PauseAll() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, byPartition := range mc.partitions {
		for _, pf := range byPartition {
			pf.Pause()
		}
	}
}

// ResumeAll implements Consumer.
func (mc *multiConsumer) ResumeAll() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, byPartition := range mc.partitions {
		for _, pf := range byPartition {
			pf.Resume()
		}
	}
}

// PartitionConsumer

// PartitionConsumer streams records from one topic/partition. Exactly one of
// Close() or AsyncClose() must be called to release it; like Consumer it is
// not garbage-collected.
//
// Ranging over Messages() is the usual way to drive a PartitionConsumer. It
// only stops itself when the broker reports the requested offset is out of
// range — every other failure is retried transparently and logged to
// Logger (set Consumer.Return.Errors and read from Errors() for a
// program-visible signal instead).
//
// Calling AsyncClose mid-loop begins teardown and returns immediately; keep
// ranging over Messages() until teardown closes it. Calling Close instead
// begins the same teardown but also drains Messages() and hands back
// whatever accumulated on Errors().
type PartitionConsumer interface {
	// AsyncClose starts shutdown without blocking. The caller must keep
	// draining Messages()/Errors() until they close, and must call this
	// (or Close) before the owning Client is closed.
	AsyncClose()

	// Close starts the same shutdown as AsyncClose, then blocks draining
	// Messages() and returns any errors harvested from Errors(). Do not
	// call this while something else is reading Messages() concurrently —
	// use AsyncClose for that case instead.
	Close() error

	// Messages is the channel of records fetched from the broker.
	Messages() <-chan *ConsumerMessage

	// Errors carries delivery failures when Consumer.Return.Errors is
	// set; otherwise failures are only logged.
	Errors() <-chan *ConsumerError

	// HighWaterMarkOffset is the offset that will be assigned to the next
	// record produced to this partition — useful for gauging lag.
	HighWaterMarkOffset() int64

	// Pause stops fetching on this partition until Resume is called.
	// Subscription state is untouched, so this never triggers a group
	// rebalance under automatic assignment.
	Pause()

	// Resume undoes Pause. A no-op if the partition wasn't paused.
	Resume()

	// IsPaused reports whether Pause is currently in effect.
	IsPaused() bool
}

// partitionFetcher is the concrete PartitionConsumer: it tracks the next
// offset to request, re-dispatches itself to a new brokerFetchWorker when
// leadership moves or a recoverable error occurs, and hands decoded records
// to the caller over messages.
type partitionFetcher struct {
	highWaterMarkOffset int64 // must be at the top of the struct because https://golang.org/pkg/sync/atomic/#pkg-note-BUG

	owner    *multiConsumer
	conf     *Config
	worker   *brokerFetchWorker
	messages chan *ConsumerMessage
	errors   chan *ConsumerError
	feeder   chan *FetchResponse

	leaderEpoch          int32
	preferredReadReplica int32

	trigger, dying chan none
	closeOnce      sync.Once
	topic          string
	partition      int32
	dispatchErr    error
	fetchSize      int32
	offset         int64
	retries        int32

	paused int32
}

var errTimedOut = errors.New("timed out feeding messages to the user") // not user-facing

func (pf *partitionFetcher) sendError(err error) {
	cErr := &ConsumerError{
		Topic:     pf.topic,
		Partition: pf.partition,
		Err:       err,
	}

	if pf.conf.Consumer.Return.Errors {
		pf.errors <- cErr
	} else {
		Logger.Println(cErr)
	}
}

func (pf *partitionFetcher) computeBackoff() time.Duration {
	if pf.conf.Consumer.Retry.BackoffFunc != nil {
		retries := atomic.AddInt32(&pf.retries, 1)
		return pf.conf.Consumer.Retry.BackoffFunc(int(retries))
	}
	return pf.conf.Consumer.Retry.Backoff
}

// dispatchLoop waits on trigger for a request to find a new home for this
// fetcher (leadership change, recoverable error, preferred-replica fallback)
// and assigns it to a fresh brokerFetchWorker. It exits, and tears the
// fetcher down, once dying is closed.
func (pf *partitionFetcher) dispatchLoop() {
	for range pf.trigger {
		select {
		case <-pf.dying:
			close(pf.trigger)
		case <-time.After(pf.computeBackoff()):
			if pf.worker != nil {
				pf.owner.unrefFetchWorker(pf.worker)
				pf.worker = nil
			}

			if err := pf.redispatch(); err != nil {
				pf.sendError(err)
				pf.trigger <- none{}
			}
		}
	}

	if pf.worker != nil {
		pf.owner.unrefFetchWorker(pf.worker)
	}
	pf.owner.untrackPartition(pf)
	close(pf.feeder)
}

// preferredBroker resolves which broker this fetcher should be reading
// from: the last preferred read replica the broker told us about, if it's
// still reachable, falling back to the current partition leader otherwise.
func (pf *partitionFetcher) preferredBroker() (*Broker, int32, error) {
	if pf.preferredReadReplica >= 0 {
		broker, err := pf.owner.client.Broker(pf.preferredReadReplica)
		if err == nil {
			return broker, pf.leaderEpoch, nil
		}
		Logger.Printf(
			"consumer/%s/%d failed to find active broker for preferred read replica %d - will fallback to leader",
			pf.topic, pf.partition, pf.preferredReadReplica)

		// Replica is unreachable: drop the preference and force a metadata
		// refresh so the next redispatch doesn't keep retrying it.
		pf.preferredReadReplica = invalidPreferredReplicaID
		_ = pf.owner.client.RefreshMetadata(pf.topic)
	}

	return pf.owner.client.LeaderAndEpoch(pf.topic, pf.partition)
}

func (pf *partitionFetcher) redispatch() error {
	if err := pf.owner.client.RefreshMetadata(pf.topic); err != nil {
		return err
	}

	broker, epoch, err := pf.preferredBroker()
	if err != nil {
		return err
	}

	pf.leaderEpoch = epoch
	pf.worker = pf.owner.refFetchWorker(broker)
	pf.worker.subscribe <- pf

	return nil
}

func (pf *partitionFetcher) chooseStartingOffset(offset int64) error {
	newestOffset, err := pf.owner.client.GetOffset(pf.topic, pf.partition, OffsetNewest)
	if err != nil {
		return err
	}

	pf.highWaterMarkOffset = newestOffset

	oldestOffset, err := pf.owner.client.GetOffset(pf.topic, pf.partition, OffsetOldest)
	if err != nil {
		return err
	}

	switch {
	case offset == OffsetNewest:
		pf.offset = newestOffset
	case offset == OffsetOldest:
		pf.offset = oldestOffset
	case offset >= oldestOffset && offset <= newestOffset:
		pf.offset = offset
	default:
		return ErrOffsetOutOfRange
	}

	return nil
}

func (pf *partitionFetcher) Messages() <-chan *ConsumerMessage {
	return pf.messages
}

func (pf *partitionFetcher) Errors() <-chan *ConsumerError {
	return pf.errors
}

func (pf *partitionFetcher) AsyncClose() {
	// Closing dying makes whatever worker owns this fetcher abandon it and
	// close its trigger channel, which ends dispatchLoop, which untracks
	// the fetcher and closes messages/errors. If the fetcher happens to be
	// sitting in the dispatcher already, it tears itself down directly.
	pf.closeOnce.Do(func() {
		close(pf.dying)
	})
}

func (pf *partitionFetcher) Close() error {
	pf.AsyncClose()

	go withRecover(func() {
		for range pf.messages {
		}
	})

	var errs ConsumerErrors
	for err := range pf.errors {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (pf *partitionFetcher) HighWaterMarkOffset() int64 {
	return atomic.LoadInt64(&pf.highWaterMarkOffset)
}

// deliverLoop drains decoded FetchResponses off feeder and pushes their
// messages out one at a time, respecting MaxProcessingTime: a message that
// sits unread for too long marks the fetcher for redispatch instead of
// blocking forever on a caller that stopped reading.
func (pf *partitionFetcher) deliverLoop() {
	var msgs []*ConsumerMessage
	expiry := time.NewTicker(pf.conf.Consumer.MaxProcessingTime)
	firstAttempt := true

responseLoop:
	for response := range pf.feeder {
		msgs, pf.dispatchErr = pf.decodeResponse(response)

		if pf.dispatchErr == nil {
			atomic.StoreInt32(&pf.retries, 0)
		}

		for i, msg := range msgs {
			pf.applyInterceptors(msg)
		sendSelect:
			select {
			case <-pf.dying:
				pf.worker.acks.Done()
				continue responseLoop
			case pf.messages <- msg:
				firstAttempt = true
			case <-expiry.C:
				if !firstAttempt {
					pf.dispatchErr = errTimedOut
					pf.worker.acks.Done()
				drainRemaining:
					for _, msg = range msgs[i:] {
						pf.applyInterceptors(msg)
						select {
						case pf.messages <- msg:
						case <-pf.dying:
							break drainRemaining
						}
					}
					pf.worker.subscribe <- pf
					continue responseLoop
				}
				// this message hasn't been handed off yet; loop back to
				// the select and try delivering it again
				firstAttempt = false
				goto sendSelect
			}
		}

		pf.worker.acks.Done()
	}

	expiry.Stop()
	close(pf.messages)
	close(pf.errors)
}

func (pf *partitionFetcher) decodeLegacySet(msgSet *MessageSet) ([]*ConsumerMessage, error) {
	var messages []*ConsumerMessage
	for _, msgBlock := range msgSet.Messages {
		for _, msg := range msgBlock.Messages() {
			offset := msg.Offset
			timestamp := msg.Msg.Timestamp
			if msg.Msg.Version >= 1 {
				baseOffset := msgBlock.Offset - msgBlock.Messages()[len(msgBlock.Messages())-1].Offset
				offset += baseOffset
				if msg.Msg.LogAppendTime {
					timestamp = msgBlock.Msg.Timestamp
				}
			}
			if offset < pf.offset {
				continue
			}
			messages = append(messages, &ConsumerMessage{
				Topic:          pf.topic,
				Partition:      pf.partition,
				Key:            msg.Msg.Key,
				Value:          msg.Msg.Value,
				Offset:         offset,
				Timestamp:      timestamp,
				BlockTimestamp: msgBlock.Msg.Timestamp,
			})
			pf.offset = offset + 1
		}
	}
	if len(messages) == 0 {
		pf.offset++
	}
	return messages, nil
}

func (pf *partitionFetcher) decodeRecordBatch(batch *RecordBatch) ([]*ConsumerMessage, error) {
	messages := make([]*ConsumerMessage, 0, len(batch.Records))

	for _, rec := range batch.Records {
		offset := batch.FirstOffset + rec.OffsetDelta
		if offset < pf.offset {
			continue
		}
		timestamp := batch.FirstTimestamp.Add(rec.TimestampDelta)
		if batch.LogAppendTime {
			timestamp = batch.MaxTimestamp
		}
		messages = append(messages, &ConsumerMessage{
			Topic:     pf.topic,
			Partition: pf.partition,
			Key:       rec.Key,
			Value:     rec.Value,
			Offset:    offset,
			Timestamp: timestamp,
			Headers:   rec.Headers,
		})
		pf.offset = offset + 1
	}
	if len(messages) == 0 {
		pf.offset++
	}
	return messages, nil
}

func (pf *partitionFetcher) decodeResponse(response *FetchResponse) ([]*ConsumerMessage, error) {
	var batchSizeMetric metrics.Histogram
	if pf.owner != nil && pf.owner.metrics != nil {
		batchSizeMetric = getOrRegisterHistogram("consumer-batch-size", pf.owner.metrics)
	}

	if response.ThrottleTime != time.Duration(0) && len(response.Blocks) == 0 {
		Logger.Printf(
			"consumer/broker/%d FetchResponse throttled %v\n",
			pf.worker.broker.ID(), response.ThrottleTime)
		return nil, nil
	}

	block := response.GetBlock(pf.topic, pf.partition)
	if block == nil {
		return nil, ErrIncompleteResponse
	}

	if !errors.Is(block.Err, ErrNoError) {
		return nil, block.Err
	}

	nRecs, err := block.numRecords()
	if err != nil {
		return nil, err
	}

	if batchSizeMetric != nil {
		batchSizeMetric.Update(int64(nRecs))
	}

	if block.PreferredReadReplica != invalidPreferredReplicaID {
		pf.preferredReadReplica = block.PreferredReadReplica
	}

	if nRecs == 0 {
		partialTrailingMessage, err := block.isPartial()
		if err != nil {
			return nil, err
		}
		// No messages came back. A trailing partial record means the next
		// fetch needs a bigger buffer; otherwise just wait for one to be
		// produced.
		if partialTrailingMessage {
			if pf.conf.Consumer.Fetch.Max > 0 && pf.fetchSize == pf.conf.Consumer.Fetch.Max {
				pf.sendError(ErrMessageTooLarge)
				pf.offset++ // skip it so later messages keep flowing
			} else {
				pf.fetchSize *= 2
				if pf.fetchSize < 0 { // int32 overflow
					pf.fetchSize = math.MaxInt32
				}
				if pf.conf.Consumer.Fetch.Max > 0 && pf.fetchSize > pf.conf.Consumer.Fetch.Max {
					pf.fetchSize = pf.conf.Consumer.Fetch.Max
				}
			}
		} else if block.recordsNextOffset != nil && *block.recordsNextOffset <= block.HighWaterMarkOffset {
			Logger.Printf("consumer/broker/%d received batch with zero records but high watermark was not reached, topic %s, partition %d, next offset %d\n", pf.worker.broker.ID(), pf.topic, pf.partition, *block.recordsNextOffset)
			pf.offset = *block.recordsNextOffset
		}

		return nil, nil
	}

	// Got messages: the fetch size bump above no longer applies.
	pf.fetchSize = pf.conf.Consumer.Fetch.Default
	atomic.StoreInt64(&pf.highWaterMarkOffset, block.HighWaterMarkOffset)

	// abortedProducerIDs is populated as we walk past the FirstOffset of an
	// aborted transaction, and cleared again once we pass its abort control
	// record, so records in between are dropped under read-committed.
	abortedProducerIDs := make(map[int64]struct{}, len(block.AbortedTransactions))
	abortedTransactions := block.getAbortedTransactions()

	var messages []*ConsumerMessage
	for _, records := range block.RecordsSet {
		switch records.recordsType {
		case legacyRecords:
			decoded, err := pf.decodeLegacySet(records.MsgSet)
			if err != nil {
				return nil, err
			}

			messages = append(messages, decoded...)
		case defaultRecords:
			for _, txn := range abortedTransactions {
				if txn.FirstOffset > records.RecordBatch.LastOffset() {
					break
				}
				abortedProducerIDs[txn.ProducerID] = struct{}{}
				abortedTransactions = abortedTransactions[1:]
			}

			decoded, err := pf.decodeRecordBatch(records.RecordBatch)
			if err != nil {
				return nil, err
			}

			// Control records and (under ReadCommitted) records belonging
			// to an aborted transaction are dropped, though their offsets
			// still advance pf.offset via decodeRecordBatch above.
			isControl, err := records.isControl()
			if err != nil {
				if pf.conf.Consumer.IsolationLevel == ReadCommitted {
					return nil, err
				}
				continue
			}
			if isControl {
				controlRecord, err := records.getControlRecord()
				if err != nil {
					return nil, err
				}

				if controlRecord.Type == ControlRecordAbort {
					delete(abortedProducerIDs, records.RecordBatch.ProducerID)
				}
				continue
			}

			if pf.conf.Consumer.IsolationLevel == ReadCommitted {
				_, isAborted := abortedProducerIDs[records.RecordBatch.ProducerID]
				if records.RecordBatch.IsTransactional && isAborted {
					continue
				}
			}

			messages = append(messages, decoded...)
		default:
			return nil, fmt.Errorf("unknown records type: %v", records.recordsType)
		}
	}

	return messages, nil
}

func (pf *partitionFetcher) applyInterceptors(msg *ConsumerMessage) {
	for _, interceptor := range pf.conf.Consumer.Interceptors {
		msg.safelyApplyInterceptor(interceptor)
	}
}

// Pause implements PartitionConsumer.
func (pf *partitionFetcher) Pause() {
	atomic.StoreInt32(&pf.paused, 1)
}

// Resume implements PartitionConsumer.
func (pf *partitionFetcher) Resume() {
	atomic.StoreInt32(&pf.paused, 0)
}

// IsPaused implements PartitionConsumer.
func (pf *partitionFetcher) IsPaused() bool {
	return atomic.LoadInt32(&pf.paused) == 1
}

// brokerFetchWorker batches every partitionFetcher currently led by the same
// broker into a single FetchRequest per round, so N partitions on one broker
// cost one round trip instead of N.
type brokerFetchWorker struct {
	owner         *multiConsumer
	broker        *Broker
	subscribe     chan *partitionFetcher
	newSubscribed chan []*partitionFetcher
	subscribers   map[*partitionFetcher]none
	acks          sync.WaitGroup
	refs          int
}

func (mc *multiConsumer) newBrokerFetchWorker(broker *Broker) *brokerFetchWorker {
	w := &brokerFetchWorker{
		owner:         mc,
		broker:        broker,
		subscribe:     make(chan *partitionFetcher),
		newSubscribed: make(chan []*partitionFetcher),
		subscribers:   make(map[*partitionFetcher]none),
		refs:          0,
	}

	go withRecover(w.batchSubscriptions)
	go withRecover(w.fetchLoop)

	return w
}

// batchSubscriptions accepts new partitionFetchers on subscribe (even while
// fetchLoop is mid-request) and hands them to fetchLoop in batches, so a
// burst of ConsumePartition calls collapses into a single FetchRequest
// instead of restarting the request for every new partition.
func (w *brokerFetchWorker) batchSubscriptions() {
	defer close(w.newSubscribed)

	for {
		var batch []*partitionFetcher

		// Nothing pending: offer fetchLoop a nil batch so it can issue the
		// next request immediately rather than wait on us.
		select {
		case pf, ok := <-w.subscribe:
			if !ok {
				return
			}
			batch = append(batch, pf)
		case w.newSubscribed <- nil:
			continue
		}

		timer := time.NewTimer(fetchWorkerBatchTimeout)
		for done := false; !done; {
			select {
			case pf := <-w.subscribe:
				batch = append(batch, pf)
			case <-timer.C:
				done = true
			}
		}
		timer.Stop()

		Logger.Printf(
			"consumer/broker/%d accumulated %d new subscriptions\n",
			w.broker.ID(), len(batch))

		w.newSubscribed <- batch
	}
}

// fetchLoop is the goroutine that actually issues FetchRequests.
func (w *brokerFetchWorker) fetchLoop() {
	for newSubscribed := range w.newSubscribed {
		w.applySubscriptions(newSubscribed)

		if len(w.subscribers) == 0 {
			// Either shutting down or about to get more subscribers;
			// avoid busy-looping in the meantime.
			time.Sleep(fetchWorkerBatchTimeout)
			continue
		}

		response, err := w.fetch()
		if err != nil {
			Logger.Printf("consumer/broker/%d disconnecting due to error processing FetchRequest: %s\n", w.broker.ID(), err)
			w.abort(err)
			return
		}

		if response == nil {
			// every subscriber is paused; nothing was fetched
			time.Sleep(fetchWorkerBatchTimeout)
			continue
		}

		w.acks.Add(len(w.subscribers))
		for pf := range w.subscribers {
			if _, ok := response.Blocks[pf.topic]; !ok {
				w.acks.Done()
				continue
			}

			if _, ok := response.Blocks[pf.topic][pf.partition]; !ok {
				w.acks.Done()
				continue
			}

			pf.feeder <- response
		}
		w.acks.Wait()
		w.reviewSubscribers()
	}
}

func (w *brokerFetchWorker) applySubscriptions(newSubscribed []*partitionFetcher) {
	for _, pf := range newSubscribed {
		w.subscribers[pf] = none{}
		Logger.Printf("consumer/broker/%d added subscription to %s/%d\n", w.broker.ID(), pf.topic, pf.partition)
	}

	for pf := range w.subscribers {
		select {
		case <-pf.dying:
			Logger.Printf("consumer/broker/%d closed dead subscription to %s/%d\n", w.broker.ID(), pf.topic, pf.partition)
			close(pf.trigger)
			delete(w.subscribers, pf)
		default:
		}
	}
}

// reviewSubscribers checks the result each subscriber's deliverLoop left
// behind after the last round, and drops or redispatches subscribers whose
// result says they no longer belong on this worker.
func (w *brokerFetchWorker) reviewSubscribers() {
	for pf := range w.subscribers {
		result := pf.dispatchErr
		pf.dispatchErr = nil

		if result == nil {
			if preferredBroker, _, err := pf.preferredBroker(); err == nil {
				if w.broker.ID() != preferredBroker.ID() {
					Logger.Printf(
						"consumer/broker/%d abandoned in favor of preferred replica broker/%d\n",
						w.broker.ID(), preferredBroker.ID())
					pf.trigger <- none{}
					delete(w.subscribers, pf)
				}
			}
			continue
		}

		// Whatever happened invalidates the replica preference we had.
		pf.preferredReadReplica = invalidPreferredReplicaID

		switch {
		case errors.Is(result, errTimedOut):
			Logger.Printf("consumer/broker/%d abandoned subscription to %s/%d because consuming was taking too long\n",
				w.broker.ID(), pf.topic, pf.partition)
			delete(w.subscribers, pf)
		case errors.Is(result, ErrOffsetOutOfRange):
			// Retrying would just fail the same way again; surface it and
			// let the caller decide.
			pf.sendError(result)
			Logger.Printf("consumer/%s/%d shutting down because %s\n", pf.topic, pf.partition, result)
			close(pf.trigger)
			delete(w.subscribers, pf)
		case errors.Is(result, ErrUnknownTopicOrPartition),
			errors.Is(result, ErrNotLeaderForPartition),
			errors.Is(result, ErrLeaderNotAvailable),
			errors.Is(result, ErrReplicaNotAvailable),
			errors.Is(result, ErrFencedLeaderEpoch),
			errors.Is(result, ErrUnknownLeaderEpoch):
			Logger.Printf("consumer/broker/%d abandoned subscription to %s/%d because %s\n",
				w.broker.ID(), pf.topic, pf.partition, result)
			pf.trigger <- none{}
			delete(w.subscribers, pf)
		default:
			pf.sendError(result)
			Logger.Printf("consumer/broker/%d abandoned subscription to %s/%d because %s\n",
				w.broker.ID(), pf.topic, pf.partition, result)
			pf.trigger <- none{}
			delete(w.subscribers, pf)
		}
	}
}

func (w *brokerFetchWorker) abort(err error) {
	w.owner.abandonFetchWorker(w)
	_ = w.broker.Close() // already reporting a different error, ignore this one

	for pf := range w.subscribers {
		pf.sendError(err)
		pf.trigger <- none{}
	}

	for newSubscribed := range w.newSubscribed {
		if len(newSubscribed) == 0 {
			time.Sleep(fetchWorkerBatchTimeout)
			continue
		}
		for _, pf := range newSubscribed {
			pf.sendError(err)
			pf.trigger <- none{}
		}
	}
}

// fetch issues one FetchRequest covering every unpaused subscriber, picking
// the highest request version this client's negotiated Version supports.
// Returns a nil response (not an error) when every subscriber is paused.
func (w *brokerFetchWorker) fetch() (*FetchResponse, error) {
	request := &FetchRequest{
		MinBytes:    w.owner.conf.Consumer.Fetch.Min,
		MaxWaitTime: int32(w.owner.conf.Consumer.MaxWaitTime / time.Millisecond),
	}
	// Version 1 is the same as version 0.
	if w.owner.conf.Version.IsAtLeast(V0_9_0_0) {
		request.Version = 1
	}
	// Starting in Version 2, the requestor must be able to handle Kafka Log
	// Message format version 1.
	if w.owner.conf.Version.IsAtLeast(V0_10_0_0) {
		request.Version = 2
	}
	// Version 3 adds MaxBytes.  Starting in version 3, the partition ordering in
	// the request is now relevant.  Partitions will be processed in the order
	// they appear in the request.
	if w.owner.conf.Version.IsAtLeast(V0_10_1_0) {
		request.Version = 3
		request.MaxBytes = MaxResponseSize
	}
	// Version 4 adds IsolationLevel.  Starting in version 4, the reqestor must be
	// able to handle Kafka log message format version 2.
	// Version 5 adds LogStartOffset to indicate the earliest available offset of
	// partition data that can be consumed.
	if w.owner.conf.Version.IsAtLeast(V0_11_0_0) {
		request.Version = 5
		request.Isolation = w.owner.conf.Consumer.IsolationLevel
	}
	// Version 6 is the same as version 5.
	if w.owner.conf.Version.IsAtLeast(V1_0_0_0) {
		request.Version = 6
	}
	// Version 7 adds incremental fetch request support.
	if w.owner.conf.Version.IsAtLeast(V1_1_0_0) {
		request.Version = 7
		// Incremental fetch sessions (KIP-227) aren't implemented; id 0 /
		// epoch -1 tells the broker not to open one.
		request.SessionID = 0
		request.SessionEpoch = -1
	}
	// Version 8 is the same as version 7.
	if w.owner.conf.Version.IsAtLeast(V2_0_0_0) {
		request.Version = 8
	}
	// Version 9 adds CurrentLeaderEpoch, as described in KIP-320.
	// Version 10 indicates that we can use the ZStd compression algorithm, as
	// described in KIP-110.
	if w.owner.conf.Version.IsAtLeast(V2_1_0_0) {
		request.Version = 10
	}
	// Version 11 adds RackID for KIP-392 fetch from closest replica
	if w.owner.conf.Version.IsAtLeast(V2_3_0_0) {
		request.Version = 11
		request.RackID = w.owner.conf.RackID
	}

	for pf := range w.subscribers {
		if !pf.IsPaused() {
			request.AddBlock(pf.topic, pf.partition, pf.offset, pf.fetchSize, pf.leaderEpoch)
		}
	}

	if len(request.blocks) == 0 {
		return nil, nil
	}

	return w.broker.Fetch(request)
}
