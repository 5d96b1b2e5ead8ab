package gokafka

import "time"

type listOffsetsResponseBlock struct {
	Err             KError
	Timestamp       int64
	Offset          int64   // version 1 and above
	Offsets         []int64 // version 0 only
	LeaderEpoch     int32
}

func (b *listOffsetsResponseBlock) encode(pe packetEncoder, version int16) error {
	pe.putInt16(int16(b.Err))

	if version == 0 {
		if err := pe.putInt64Array(b.Offsets); err != nil {
			return err
		}
		return nil
	}

	pe.putInt64(b.Timestamp)
	pe.putInt64(b.Offset)
	if version >= 4 {
		pe.putInt32(b.LeaderEpoch)
	}
	return nil
}

func (b *listOffsetsResponseBlock) decode(pd packetDecoder, version int16) (err error) {
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	b.Err = KError(errCode)

	if version == 0 {
		b.Offsets, err = pd.getInt64Array()
		return err
	}

	if b.Timestamp, err = pd.getInt64(); err != nil {
		return err
	}
	if b.Offset, err = pd.getInt64(); err != nil {
		return err
	}
	if version >= 4 {
		if b.LeaderEpoch, err = pd.getInt32(); err != nil {
			return err
		}
	} else {
		b.LeaderEpoch = invalidLeaderEpoch
	}
	return nil
}

// ListOffsetsResponse resolves each requested (topic, partition, timestamp)
// to a concrete offset, or an error if the partition's leader couldn't
// answer (NOT_LEADER_OR_FOLLOWER, etc).
type ListOffsetsResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Blocks       map[string]map[int32]*listOffsetsResponseBlock
}

func (r *ListOffsetsResponse) setVersion(v int16) { r.Version = v }

func (r *ListOffsetsResponse) flexible() bool { return r.Version >= 6 }

func (r *ListOffsetsResponse) GetBlock(topic string, partition int32) *listOffsetsResponseBlock {
	if r.Blocks == nil {
		return nil
	}
	return r.Blocks[topic][partition]
}

func (r *ListOffsetsResponse) encode(pe packetEncoder) error {
	if r.Version >= 2 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
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
		for id, block := range partitions {
			pe.putInt32(id)
			if err := block.encode(pe, r.Version); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ListOffsetsResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 2 {
		throttleTime, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond
	}

	numTopics, err := pd.getArrayLength()
	if err != nil {
		return err
	}

	r.Blocks = make(map[string]map[int32]*listOffsetsResponseBlock, numTopics)
	for i := 0; i < numTopics; i++ {
		name, err := pd.getString()
		if err != nil {
			return err
		}
		numBlocks, err := pd.getArrayLength()
		if err != nil {
			return err
		}
		r.Blocks[name] = make(map[int32]*listOffsetsResponseBlock, numBlocks)
		for j := 0; j < numBlocks; j++ {
			id, err := pd.getInt32()
			if err != nil {
				return err
			}
			block := new(listOffsetsResponseBlock)
			if err := block.decode(pd, r.Version); err != nil {
				return err
			}
			r.Blocks[name][id] = block
		}
	}
	return nil
}

func (r *ListOffsetsResponse) key() int16     { return apiKeyListOffsets }
func (r *ListOffsetsResponse) version() int16 { return r.Version }
func (r *ListOffsetsResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *ListOffsetsResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 7 }
func (r *ListOffsetsResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 4:
		return V2_1_0_0
	case r.Version >= 2:
		return V0_11_0_0
	case r.Version >= 1:
		return V0_10_1_0
	default:
		return V0_9_0_0
	}
}
func (r *ListOffsetsResponse) throttleTime() time.Duration { return r.ThrottleTime }
