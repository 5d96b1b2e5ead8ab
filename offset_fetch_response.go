package gokafka

import "time"

type offsetFetchResponseBlock struct {
	Offset      int64
	LeaderEpoch int32
	Metadata    string
	Err         KError
}

func (b *offsetFetchResponseBlock) encode(pe packetEncoder, flexible bool, version int16) error {
	pe.putInt64(b.Offset)
	if version >= 5 {
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
	pe.putInt16(int16(b.Err))
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (b *offsetFetchResponseBlock) decode(pd packetDecoder, flexible bool, version int16) (err error) {
	if b.Offset, err = pd.getInt64(); err != nil {
		return err
	}
	if version >= 5 {
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
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	b.Err = KError(errCode)
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

// OffsetFetchResponse is the committed-offset counterpart to FetchResponse:
// where the consumer should resume reading each partition from, the raw
// material for the offset manager's COMMITTED start mode.
type OffsetFetchResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Blocks       map[string]map[int32]*offsetFetchResponseBlock
	Err          KError
}

func (r *OffsetFetchResponse) setVersion(v int16) { r.Version = v }

func (r *OffsetFetchResponse) flexible() bool { return r.Version >= 6 }

func (r *OffsetFetchResponse) GetBlock(topic string, partition int32) *offsetFetchResponseBlock {
	if r.Blocks == nil {
		return nil
	}
	return r.Blocks[topic][partition]
}

func (r *OffsetFetchResponse) AddBlock(topic string, partition int32, block *offsetFetchResponseBlock) {
	if r.Blocks == nil {
		r.Blocks = make(map[string]map[int32]*offsetFetchResponseBlock)
	}
	if r.Blocks[topic] == nil {
		r.Blocks[topic] = make(map[int32]*offsetFetchResponseBlock)
	}
	r.Blocks[topic][partition] = block
}

func (r *OffsetFetchResponse) encode(pe packetEncoder) error {
	if r.Version >= 3 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}

	if r.flexible() {
		pe.putCompactArrayLength(len(r.Blocks))
	} else if err := pe.putArrayLength(len(r.Blocks)); err != nil {
		return err
	}
	for topic, partitions := range r.Blocks {
		var err error
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
			pe.putInt32(partitionID)
			if err := block.encode(pe, r.flexible(), r.Version); err != nil {
				return err
			}
		}

		if r.flexible() {
			pe.putEmptyTaggedFieldArray()
		}
	}

	if r.Version >= 2 {
		pe.putInt16(int16(r.Err))
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *OffsetFetchResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 3 {
		throttleTime, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond
	}

	var numTopics int
	if r.flexible() {
		numTopics, err = pd.getCompactArrayLength()
	} else {
		numTopics, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}

	r.Blocks = make(map[string]map[int32]*offsetFetchResponseBlock, numTopics)
	for i := 0; i < numTopics; i++ {
		var name string
		if r.flexible() {
			name, err = pd.getCompactString()
		} else {
			name, err = pd.getString()
		}
		if err != nil {
			return err
		}

		var numBlocks int
		if r.flexible() {
			numBlocks, err = pd.getCompactArrayLength()
		} else {
			numBlocks, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}

		r.Blocks[name] = make(map[int32]*offsetFetchResponseBlock, numBlocks)
		for j := 0; j < numBlocks; j++ {
			id, err := pd.getInt32()
			if err != nil {
				return err
			}
			block := new(offsetFetchResponseBlock)
			if err := block.decode(pd, r.flexible(), r.Version); err != nil {
				return err
			}
			r.Blocks[name][id] = block
		}

		if r.flexible() {
			if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
				return err
			}
		}
	}

	if r.Version >= 2 {
		errCode, err := pd.getInt16()
		if err != nil {
			return err
		}
		r.Err = KError(errCode)
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *OffsetFetchResponse) key() int16     { return apiKeyOffsetFetch }
func (r *OffsetFetchResponse) version() int16 { return r.Version }
func (r *OffsetFetchResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *OffsetFetchResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 8 }
func (r *OffsetFetchResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 6:
		return V2_4_0_0
	case r.Version >= 4:
		return V2_0_0_0
	case r.Version >= 2:
		return V0_10_2_0
	default:
		return V0_8_2_0
	}
}
func (r *OffsetFetchResponse) throttleTime() time.Duration { return r.ThrottleTime }
