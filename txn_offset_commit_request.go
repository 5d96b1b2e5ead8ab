package gokafka

type txnOffsetCommitRequestBlock struct {
	Offset      int64
	LeaderEpoch int32
	Metadata    *string
}

func (b *txnOffsetCommitRequestBlock) encode(pe packetEncoder, flexible bool, version int16, partition int32) error {
	pe.putInt32(partition)
	pe.putInt64(b.Offset)
	if version >= 2 {
		pe.putInt32(b.LeaderEpoch)
	}
	var err error
	if flexible {
		err = pe.putNullableCompactString(b.Metadata)
	} else {
		err = pe.putNullableString(b.Metadata)
	}
	if err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (b *txnOffsetCommitRequestBlock) decode(pd packetDecoder, flexible bool, version int16) (err error) {
	if b.Offset, err = pd.getInt64(); err != nil {
		return err
	}
	if version >= 2 {
		if b.LeaderEpoch, err = pd.getInt32(); err != nil {
			return err
		}
	} else {
		b.LeaderEpoch = invalidLeaderEpoch
	}
	if flexible {
		b.Metadata, err = pd.getCompactNullableString()
	} else {
		b.Metadata, err = pd.getNullableString()
	}
	if err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

// TxnOffsetCommitRequest commits consumer-group offsets as part of a
// transaction; only visible to ReadCommitted consumers once EndTxn commits
// the transaction.
type TxnOffsetCommitRequest struct {
	Version         int16
	TransactionalID string
	GroupID         string
	ProducerID      int64
	ProducerEpoch   int16
	GroupInstanceID *string // version 3+, KIP-345
	MemberID        string  // version 3+
	GenerationID    int32   // version 3+
	blocks          map[string]map[int32]*txnOffsetCommitRequestBlock
}

func (r *TxnOffsetCommitRequest) setVersion(v int16) { r.Version = v }

func (r *TxnOffsetCommitRequest) flexible() bool { return r.Version >= 3 }

func (r *TxnOffsetCommitRequest) AddBlock(topic string, partitionID int32, offset int64, leaderEpoch int32, metadata *string) {
	if r.blocks == nil {
		r.blocks = make(map[string]map[int32]*txnOffsetCommitRequestBlock)
	}
	if r.blocks[topic] == nil {
		r.blocks[topic] = make(map[int32]*txnOffsetCommitRequestBlock)
	}
	r.blocks[topic][partitionID] = &txnOffsetCommitRequestBlock{Offset: offset, LeaderEpoch: leaderEpoch, Metadata: metadata}
}

func (r *TxnOffsetCommitRequest) encode(pe packetEncoder) error {
	var err error
	if r.flexible() {
		err = pe.putCompactString(r.TransactionalID)
	} else {
		err = pe.putString(r.TransactionalID)
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		err = pe.putCompactString(r.GroupID)
	} else {
		err = pe.putString(r.GroupID)
	}
	if err != nil {
		return err
	}

	pe.putInt64(r.ProducerID)
	pe.putInt16(r.ProducerEpoch)

	if r.Version >= 3 {
		if r.flexible() {
			err = pe.putCompactString(r.MemberID)
		} else {
			err = pe.putString(r.MemberID)
		}
		if err != nil {
			return err
		}
		pe.putInt32(r.GenerationID)
		if err := pe.putNullableCompactString(r.GroupInstanceID); err != nil {
			return err
		}
	}

	if r.flexible() {
		pe.putCompactArrayLength(len(r.blocks))
	} else if err := pe.putArrayLength(len(r.blocks)); err != nil {
		return err
	}
	for topic, partitions := range r.blocks {
		if r.flexible() {
			err = pe.putCompactString(topic)
		} else {
			err = pe.putString(topic)
		}
		if err != nil {
			return err
		}
		if r.flexible() {
			pe.putCompactArrayLength(len(partitions))
		} else if err := pe.putArrayLength(len(partitions)); err != nil {
			return err
		}
		for partitionID, block := range partitions {
			if err := block.encode(pe, r.flexible(), r.Version, partitionID); err != nil {
				return err
			}
		}
		if r.flexible() {
			pe.putEmptyTaggedFieldArray()
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *TxnOffsetCommitRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.flexible() {
		r.TransactionalID, err = pd.getCompactString()
	} else {
		r.TransactionalID, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		r.GroupID, err = pd.getCompactString()
	} else {
		r.GroupID, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if r.ProducerID, err = pd.getInt64(); err != nil {
		return err
	}
	if r.ProducerEpoch, err = pd.getInt16(); err != nil {
		return err
	}

	if r.Version >= 3 {
		if r.flexible() {
			r.MemberID, err = pd.getCompactString()
		} else {
			r.MemberID, err = pd.getString()
		}
		if err != nil {
			return err
		}
		if r.GenerationID, err = pd.getInt32(); err != nil {
			return err
		}
		if r.GroupInstanceID, err = pd.getCompactNullableString(); err != nil {
			return err
		}
	}

	var n int
	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}

	r.blocks = make(map[string]map[int32]*txnOffsetCommitRequestBlock, n)
	for i := 0; i < n; i++ {
		var topic string
		if r.flexible() {
			topic, err = pd.getCompactString()
		} else {
			topic, err = pd.getString()
		}
		if err != nil {
			return err
		}

		var m int
		if r.flexible() {
			m, err = pd.getCompactArrayLength()
		} else {
			m, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}

		r.blocks[topic] = make(map[int32]*txnOffsetCommitRequestBlock, m)
		for j := 0; j < m; j++ {
			partitionID, err := pd.getInt32()
			if err != nil {
				return err
			}
			block := &txnOffsetCommitRequestBlock{}
			if err := block.decode(pd, r.flexible(), r.Version); err != nil {
				return err
			}
			r.blocks[topic][partitionID] = block
		}

		if r.flexible() {
			if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
				return err
			}
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *TxnOffsetCommitRequest) key() int16     { return apiKeyTxnOffsetCommit }
func (r *TxnOffsetCommitRequest) version() int16 { return r.Version }
func (r *TxnOffsetCommitRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *TxnOffsetCommitRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 3 }
func (r *TxnOffsetCommitRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 3:
		return V2_8_0_0
	case r.Version >= 2:
		return V2_3_0_0
	case r.Version >= 1:
		return V2_0_0_0
	default:
		return V0_11_0_0
	}
}
