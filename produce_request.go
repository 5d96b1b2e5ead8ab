package gokafka

import (
	"fmt"
)

// produceRequestBlock carries one partition's worth of records to append
// plus their wire encoding, mirroring the way RecordBatch/MessageSet
// already let the producer batch multiple ProducerMessages per partition
// before a single Produce round-trip.
type produceRequestBlock struct {
	msgSet *MessageSet
	recs   *RecordBatch
}

func (p *produceRequestBlock) encode(pe packetEncoder, version int16) error {
	pe.push(&lengthField{})

	var err error
	if version < 3 {
		err = p.msgSet.encode(pe)
	} else {
		err = p.recs.encode(pe)
	}
	if err != nil {
		return err
	}
	return pe.pop()
}

// ProduceRequest is one batch of per-topic/per-partition record sets sent
// to a partition's leader; the producer's per-leader batcher assembles one
// of these per flush per broker.
type ProduceRequest struct {
	Version         int16
	TransactionalID *string
	RequiredAcks    RequiredAcks
	Timeout         int32
	records         map[string]map[int32]produceRequestBlock
}

// RequiredAcks controls how many in-sync replicas must acknowledge a
// Produce request before the broker responds.
type RequiredAcks int16

const (
	NoResponse   RequiredAcks = 0
	WaitForLocal RequiredAcks = 1
	WaitForAll   RequiredAcks = -1
)

func (r *ProduceRequest) setVersion(v int16) { r.Version = v }

// AddMessage appends a single legacy Message to the batch for topic/partition,
// used for Version < 3 (pre-idempotent-producer brokers).
func (r *ProduceRequest) AddMessage(topic string, partition int32, msg *Message) {
	r.ensureRecords(topic, partition)
	block := r.records[topic][partition]
	if block.msgSet == nil {
		block.msgSet = new(MessageSet)
	}
	block.msgSet.addMessage(msg)
	r.records[topic][partition] = block
}

// AddBatch attaches a pre-built RecordBatch (Version >= 3, the only format
// idempotent/transactional producers may use).
func (r *ProduceRequest) AddBatch(topic string, partition int32, batch *RecordBatch) {
	r.ensureRecords(topic, partition)
	block := r.records[topic][partition]
	block.recs = batch
	r.records[topic][partition] = block
}

func (r *ProduceRequest) ensureRecords(topic string, partition int32) {
	if r.records == nil {
		r.records = make(map[string]map[int32]produceRequestBlock)
	}
	if r.records[topic] == nil {
		r.records[topic] = make(map[int32]produceRequestBlock)
	}
}

func (r *ProduceRequest) encode(pe packetEncoder) error {
	if r.Version >= 3 {
		if err := pe.putNullableString(r.TransactionalID); err != nil {
			return err
		}
	}
	pe.putInt16(int16(r.RequiredAcks))
	pe.putInt32(r.Timeout)

	if err := pe.putArrayLength(len(r.records)); err != nil {
		return err
	}
	for topic, partitions := range r.records {
		if err := pe.putString(topic); err != nil {
			return err
		}
		if err := pe.putArrayLength(len(partitions)); err != nil {
			return err
		}
		for id, block := range partitions {
			pe.putInt32(id)
			if err := block.encode(pe, r.Version); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ProduceRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 3 {
		if r.TransactionalID, err = pd.getNullableString(); err != nil {
			return err
		}
	}

	requiredAcks, err := pd.getInt16()
	if err != nil {
		return err
	}
	r.RequiredAcks = RequiredAcks(requiredAcks)

	if r.Timeout, err = pd.getInt32(); err != nil {
		return err
	}

	topicCount, err := pd.getArrayLength()
	if err != nil {
		return err
	}
	if topicCount == 0 {
		return nil
	}

	r.records = make(map[string]map[int32]produceRequestBlock)
	for i := 0; i < topicCount; i++ {
		topic, err := pd.getString()
		if err != nil {
			return err
		}
		partitionCount, err := pd.getArrayLength()
		if err != nil {
			return err
		}
		r.records[topic] = make(map[int32]produceRequestBlock)

		for j := 0; j < partitionCount; j++ {
			partition, err := pd.getInt32()
			if err != nil {
				return err
			}
			size, err := pd.getInt32()
			if err != nil {
				return err
			}
			recordsDecoder, err := pd.getSubset(int(size))
			if err != nil {
				return err
			}

			var block produceRequestBlock
			if r.Version < 3 {
				block.msgSet = &MessageSet{}
				if err := block.msgSet.decode(recordsDecoder); err != nil {
					return err
				}
			} else {
				block.recs = &RecordBatch{}
				if err := block.recs.decode(recordsDecoder); err != nil {
					return err
				}
			}
			r.records[topic][partition] = block
		}
	}

	return nil
}

func (r *ProduceRequest) key() int16     { return apiKeyProduce }
func (r *ProduceRequest) version() int16 { return r.Version }
func (r *ProduceRequest) headerVersion() int16 {
	return 1
}
func (r *ProduceRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 9 }
func (r *ProduceRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 7:
		return V2_1_0_0
	case r.Version >= 3:
		return V0_11_0_0
	case r.Version >= 2:
		return V0_10_0_0
	case r.Version >= 1:
		return V0_9_0_0
	default:
		return MinVersion
	}
}

// expectsResponse implements noResponse: acks=0 is fire-and-forget.
func (r *ProduceRequest) expectsResponse() bool {
	return r.RequiredAcks != NoResponse
}

func (r *ProduceRequest) String() string {
	return fmt.Sprintf("ProduceRequest{acks=%d, timeout=%dms}", r.RequiredAcks, r.Timeout)
}
