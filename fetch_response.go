package gokafka

import "time"

// AbortedTransaction marks a producer/offset range whose transaction was
// aborted; ReadCommitted consumers use this to filter records belonging to
// that producer up to FirstOffset.
type AbortedTransaction struct {
	ProducerID  int64
	FirstOffset int64
}

func (t *AbortedTransaction) encode(pe packetEncoder) error {
	pe.putInt64(t.ProducerID)
	pe.putInt64(t.FirstOffset)
	return nil
}

func (t *AbortedTransaction) decode(pd packetDecoder) (err error) {
	if t.ProducerID, err = pd.getInt64(); err != nil {
		return err
	}
	t.FirstOffset, err = pd.getInt64()
	return err
}

// FetchResponseBlock is one partition's fetched data: its high-water mark,
// the read replica the broker suggests for subsequent fetches (KIP-392),
// any in-flight aborted transactions, and the RecordsSet itself (which may
// hold more than one Records entry if the broker interleaves legacy and v2
// batches, though in practice brokers only ever return one).
type FetchResponseBlock struct {
	Err                  KError
	HighWaterMarkOffset  int64
	LastStableOffset     int64
	LogStartOffset       int64
	AbortedTransactions  []*AbortedTransaction
	PreferredReadReplica int32
	RecordsSet           []*Records

	Partial           bool
	recordsNextOffset *int64
}

func (b *FetchResponseBlock) decode(pd packetDecoder, version int16) (err error) {
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	b.Err = KError(errCode)

	if b.HighWaterMarkOffset, err = pd.getInt64(); err != nil {
		return err
	}

	if version >= 4 {
		if b.LastStableOffset, err = pd.getInt64(); err != nil {
			return err
		}
		if version >= 5 {
			if b.LogStartOffset, err = pd.getInt64(); err != nil {
				return err
			}
		}

		numTransact, err := pd.getArrayLength()
		if err != nil {
			return err
		}
		if numTransact >= 0 {
			b.AbortedTransactions = make([]*AbortedTransaction, numTransact)
			for i := 0; i < numTransact; i++ {
				txn := new(AbortedTransaction)
				if err := txn.decode(pd); err != nil {
					return err
				}
				b.AbortedTransactions[i] = txn
			}
		}
	}

	b.PreferredReadReplica = invalidPreferredReplicaID
	if version >= 11 {
		if b.PreferredReadReplica, err = pd.getInt32(); err != nil {
			return err
		}
	}

	recordsSize, err := pd.getInt32()
	if err != nil {
		return err
	}

	recordsDecoder, err := pd.getSubset(int(recordsSize))
	if err != nil {
		return err
	}

	b.RecordsSet = []*Records{}
	for recordsDecoder.remaining() > 0 {
		records := &Records{}
		if err := records.decode(recordsDecoder); err != nil {
			if err == ErrInsufficientData {
				b.Partial = true
				break
			}
			return err
		}
		b.RecordsSet = append(b.RecordsSet, records)

		n, err := records.numRecords()
		if err != nil {
			return err
		}
		if n > 0 {
			b.recordsNextOffset = records.recordsOffset()
			if b.recordsNextOffset != nil {
				next := *b.recordsNextOffset + 1
				b.recordsNextOffset = &next
			}
		}

		partial, err := records.isPartial()
		if err != nil {
			return err
		}
		overflow := recordsDecoder.remaining() == 0 && n == 0
		if partial || overflow {
			break
		}
	}

	return nil
}

func (b *FetchResponseBlock) encode(pe packetEncoder, version int16) error {
	pe.putInt16(int16(b.Err))
	pe.putInt64(b.HighWaterMarkOffset)

	if version >= 4 {
		pe.putInt64(b.LastStableOffset)
		if version >= 5 {
			pe.putInt64(b.LogStartOffset)
		}

		if err := pe.putArrayLength(len(b.AbortedTransactions)); err != nil {
			return err
		}
		for _, txn := range b.AbortedTransactions {
			if err := txn.encode(pe); err != nil {
				return err
			}
		}
	}

	if version >= 11 {
		pe.putInt32(b.PreferredReadReplica)
	}

	pe.push(&lengthField{})
	for _, records := range b.RecordsSet {
		if err := records.encode(pe); err != nil {
			return err
		}
	}
	return pe.pop()
}

// numRecords reports the number of leaf messages/records across every
// Records entry in this block, matching block.numRecords().
func (b *FetchResponseBlock) numRecords() (int, error) {
	sum := 0
	for _, records := range b.RecordsSet {
		n, err := records.numRecords()
		if err != nil {
			return 0, err
		}
		sum += n
	}
	return sum, nil
}

// isPartial reports whether the last Records entry in this block was cut
// off mid-record by the broker's MaxBytes limit.
func (b *FetchResponseBlock) isPartial() (bool, error) {
	if b.Partial {
		return true, nil
	}
	if len(b.RecordsSet) == 0 {
		return false, nil
	}
	return b.RecordsSet[len(b.RecordsSet)-1].isPartial()
}

func (b *FetchResponseBlock) getAbortedTransactions() []*AbortedTransaction {
	txns := make([]*AbortedTransaction, len(b.AbortedTransactions))
	copy(txns, b.AbortedTransactions)
	return txns
}

// FetchResponse carries fetched partition data from one broker; the
// consumer fetch loop demuxes it back out to each subscribed
// partitionFetcher via its feeder channel.
type FetchResponse struct {
	Version        int16
	ThrottleTime   time.Duration
	ErrorCode      int16
	SessionID      int32
	Blocks         map[string]map[int32]*FetchResponseBlock

	topicOrder []string
}

func (r *FetchResponse) setVersion(v int16) { r.Version = v }

func (r *FetchResponse) GetBlock(topic string, partition int32) *FetchResponseBlock {
	if r.Blocks == nil {
		return nil
	}
	return r.Blocks[topic][partition]
}

func (r *FetchResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 1 {
		throttleTime, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond
	}

	if r.Version >= 7 {
		if r.ErrorCode, err = pd.getInt16(); err != nil {
			return err
		}
		if r.SessionID, err = pd.getInt32(); err != nil {
			return err
		}
	}

	numTopics, err := pd.getArrayLength()
	if err != nil {
		return err
	}

	r.Blocks = make(map[string]map[int32]*FetchResponseBlock)
	for i := 0; i < numTopics; i++ {
		name, err := pd.getString()
		if err != nil {
			return err
		}
		r.topicOrder = append(r.topicOrder, name)

		numBlocks, err := pd.getArrayLength()
		if err != nil {
			return err
		}

		r.Blocks[name] = make(map[int32]*FetchResponseBlock)
		for j := 0; j < numBlocks; j++ {
			partitionID, err := pd.getInt32()
			if err != nil {
				return err
			}
			block := new(FetchResponseBlock)
			if err := block.decode(pd, r.Version); err != nil {
				return err
			}
			r.Blocks[name][partitionID] = block
		}
	}

	return nil
}

func (r *FetchResponse) encode(pe packetEncoder) error {
	if r.Version >= 1 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}
	if r.Version >= 7 {
		pe.putInt16(r.ErrorCode)
		pe.putInt32(r.SessionID)
	}

	if err := pe.putArrayLength(len(r.Blocks)); err != nil {
		return err
	}
	for topic, partitions := range r.Blocks {
		if err := pe.putString(topic); err != nil {
			return err
		}
		if err := pe.putArrayLength(len(partitions)); err != nil {
			return err
		}
		for partitionID, block := range partitions {
			pe.putInt32(partitionID)
			if err := block.encode(pe, r.Version); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *FetchResponse) key() int16     { return apiKeyFetch }
func (r *FetchResponse) version() int16 { return r.Version }
func (r *FetchResponse) headerVersion() int16 {
	return 0
}
func (r *FetchResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 11 }
func (r *FetchResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 11:
		return V2_3_0_0
	case r.Version >= 9:
		return V2_1_0_0
	case r.Version >= 7:
		return V1_1_0_0
	case r.Version >= 6:
		return V1_0_0_0
	case r.Version >= 4:
		return V0_11_0_0
	case r.Version >= 3:
		return V0_10_1_0
	case r.Version >= 2:
		return V0_10_0_0
	case r.Version >= 1:
		return V0_9_0_0
	default:
		return MinVersion
	}
}
func (r *FetchResponse) throttleTime() time.Duration { return r.ThrottleTime }

// AddBlock is a test/admin helper to construct a FetchResponse programmatically.
func (r *FetchResponse) AddBlock(topic string, partition int32, block *FetchResponseBlock) {
	if r.Blocks == nil {
		r.Blocks = make(map[string]map[int32]*FetchResponseBlock)
	}
	if r.Blocks[topic] == nil {
		r.Blocks[topic] = make(map[int32]*FetchResponseBlock)
	}
	r.Blocks[topic][partition] = block
}
