package gokafka

type offsetCommitRequestBlock struct {
	Offset         int64
	LeaderEpoch    int32
	Timestamp      int64 // version 1 only
	Metadata       string
}

func (b *offsetCommitRequestBlock) encode(pe packetEncoder, flexible bool, version int16, partitionID int32) error {
	pe.putInt32(partitionID)
	pe.putInt64(b.Offset)
	if version == 1 {
		pe.putInt64(b.Timestamp)
	}
	if version >= 6 {
		pe.putInt32(b.LeaderEpoch)
	}
	var err error
	if flexible {
		err = pe.putCompactString(b.Metadata)
	} else {
		err = pe.putString(b.Metadata)
	}
	if err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (b *offsetCommitRequestBlock) decode(pd packetDecoder, flexible bool, version int16) (err error) {
	if b.Offset, err = pd.getInt64(); err != nil {
		return err
	}
	if version == 1 {
		if b.Timestamp, err = pd.getInt64(); err != nil {
			return err
		}
	}
	if version >= 6 {
		if b.LeaderEpoch, err = pd.getInt32(); err != nil {
			return err
		}
	} else {
		b.LeaderEpoch = invalidLeaderEpoch
	}
	if flexible {
		b.Metadata, err = pd.getCompactString()
	} else {
		b.Metadata, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

// OffsetCommitRequest persists consumer group progress for one or more
// partitions; the offset manager's autocommit ticker and final
// close-time commit both build one of these.
type OffsetCommitRequest struct {
	Version         int16
	ConsumerGroup   string
	GenerationID    int32
	MemberID        string
	GroupInstanceID *string
	RetentionTime   int64 // deprecated from version 2 onward; broker-side retention.ms is used instead
	blocks          map[string]map[int32]*offsetCommitRequestBlock
}

func (r *OffsetCommitRequest) setVersion(v int16) { r.Version = v }

func (r *OffsetCommitRequest) flexible() bool { return r.Version >= 8 }

func (r *OffsetCommitRequest) AddBlock(topic string, partitionID int32, offset int64, timestamp int64, metadata string) {
	if r.blocks == nil {
		r.blocks = make(map[string]map[int32]*offsetCommitRequestBlock)
	}
	if r.blocks[topic] == nil {
		r.blocks[topic] = make(map[int32]*offsetCommitRequestBlock)
	}
	r.blocks[topic][partitionID] = &offsetCommitRequestBlock{
		Offset:      offset,
		Timestamp:   timestamp,
		Metadata:    metadata,
		LeaderEpoch: invalidLeaderEpoch,
	}
}

func (r *OffsetCommitRequest) encode(pe packetEncoder) error {
	var err error
	if r.flexible() {
		err = pe.putCompactString(r.ConsumerGroup)
	} else {
		err = pe.putString(r.ConsumerGroup)
	}
	if err != nil {
		return err
	}

	if r.Version >= 1 {
		pe.putInt32(r.GenerationID)
		if r.flexible() {
			err = pe.putCompactString(r.MemberID)
		} else {
			err = pe.putString(r.MemberID)
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 7 {
		if err := pe.putNullableCompactString(r.GroupInstanceID); err != nil {
			return err
		}
	}

	if r.Version == 2 {
		pe.putInt64(r.RetentionTime)
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

func (r *OffsetCommitRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.flexible() {
		r.ConsumerGroup, err = pd.getCompactString()
	} else {
		r.ConsumerGroup, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if r.Version >= 1 {
		if r.GenerationID, err = pd.getInt32(); err != nil {
			return err
		}
		if r.flexible() {
			r.MemberID, err = pd.getCompactString()
		} else {
			r.MemberID, err = pd.getString()
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 7 {
		if r.GroupInstanceID, err = pd.getCompactNullableString(); err != nil {
			return err
		}
	}

	if r.Version == 2 {
		if r.RetentionTime, err = pd.getInt64(); err != nil {
			return err
		}
	}

	var topicCount int
	if r.flexible() {
		topicCount, err = pd.getCompactArrayLength()
	} else {
		topicCount, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	if topicCount == 0 {
		return nil
	}

	r.blocks = make(map[string]map[int32]*offsetCommitRequestBlock)
	for i := 0; i < topicCount; i++ {
		var topic string
		if r.flexible() {
			topic, err = pd.getCompactString()
		} else {
			topic, err = pd.getString()
		}
		if err != nil {
			return err
		}

		var partitionCount int
		if r.flexible() {
			partitionCount, err = pd.getCompactArrayLength()
		} else {
			partitionCount, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}

		r.blocks[topic] = make(map[int32]*offsetCommitRequestBlock)
		for j := 0; j < partitionCount; j++ {
			partitionID, err := pd.getInt32()
			if err != nil {
				return err
			}
			block := &offsetCommitRequestBlock{}
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

func (r *OffsetCommitRequest) key() int16     { return apiKeyOffsetCommit }
func (r *OffsetCommitRequest) version() int16 { return r.Version }
func (r *OffsetCommitRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *OffsetCommitRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 8 }
func (r *OffsetCommitRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 8:
		return V2_4_0_0
	case r.Version >= 6:
		return V2_1_0_0
	case r.Version >= 4:
		return V2_0_0_0
	case r.Version >= 3:
		return V0_11_0_0
	case r.Version >= 2:
		return V0_9_0_0
	default:
		return V0_9_0_0
	}
}
