package gokafka

// Sentinel timestamps a ListOffsets partition block may request instead of
// an exact wall-clock time.
const (
	LatestOffsets   int64 = -1
	EarliestOffsets int64 = -2
	MaxTimestamp    int64 = -3
)

type listOffsetsRequestBlock struct {
	CurrentLeaderEpoch int32
	Timestamp          int64
	MaxNumOffsets      int32 // only used in version 0
}

func (b *listOffsetsRequestBlock) encode(pe packetEncoder, version int16, partition int32) error {
	pe.putInt32(partition)
	if version >= 4 {
		pe.putInt32(b.CurrentLeaderEpoch)
	}
	pe.putInt64(b.Timestamp)
	if version == 0 {
		pe.putInt32(b.MaxNumOffsets)
	}
	return nil
}

func (b *listOffsetsRequestBlock) decode(pd packetDecoder, version int16) (err error) {
	if version >= 4 {
		if b.CurrentLeaderEpoch, err = pd.getInt32(); err != nil {
			return err
		}
	}
	if b.Timestamp, err = pd.getInt64(); err != nil {
		return err
	}
	if version == 0 {
		if b.MaxNumOffsets, err = pd.getInt32(); err != nil {
			return err
		}
	}
	return nil
}

// ListOffsetsRequest resolves a symbolic position (earliest/latest/as-of a
// timestamp) to a concrete offset per partition — how the consumer's
// EARLIEST/LATEST start modes and the client's GetOffset helper both work.
type ListOffsetsRequest struct {
	Version        int16
	ReplicaID      int32
	IsolationLevel IsolationLevel
	blocks         map[string]map[int32]*listOffsetsRequestBlock
}

func (r *ListOffsetsRequest) setVersion(v int16) { r.Version = v }

func (r *ListOffsetsRequest) flexible() bool { return r.Version >= 6 }

func (r *ListOffsetsRequest) AddBlock(topic string, partitionID int32, timestamp int64, maxOffsets int32) {
	if r.blocks == nil {
		r.blocks = make(map[string]map[int32]*listOffsetsRequestBlock)
	}
	if r.blocks[topic] == nil {
		r.blocks[topic] = make(map[int32]*listOffsetsRequestBlock)
	}
	r.blocks[topic][partitionID] = &listOffsetsRequestBlock{
		Timestamp:          timestamp,
		MaxNumOffsets:       maxOffsets,
		CurrentLeaderEpoch: invalidLeaderEpoch,
	}
}

func (r *ListOffsetsRequest) encode(pe packetEncoder) error {
	pe.putInt32(r.ReplicaID)
	if r.Version >= 2 {
		pe.putInt8(int8(r.IsolationLevel))
	}

	if err := pe.putArrayLength(len(r.blocks)); err != nil {
		return err
	}
	for topic, partitions := range r.blocks {
		if err := pe.putString(topic); err != nil {
			return err
		}
		if err := pe.putArrayLength(len(partitions)); err != nil {
			return err
		}
		for partitionID, block := range partitions {
			if err := block.encode(pe, r.Version, partitionID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ListOffsetsRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.ReplicaID, err = pd.getInt32(); err != nil {
		return err
	}
	if r.Version >= 2 {
		isolation, err := pd.getInt8()
		if err != nil {
			return err
		}
		r.IsolationLevel = IsolationLevel(isolation)
	}

	topicCount, err := pd.getArrayLength()
	if err != nil {
		return err
	}
	if topicCount == 0 {
		return nil
	}

	r.blocks = make(map[string]map[int32]*listOffsetsRequestBlock)
	for i := 0; i < topicCount; i++ {
		topic, err := pd.getString()
		if err != nil {
			return err
		}
		partitionCount, err := pd.getArrayLength()
		if err != nil {
			return err
		}
		r.blocks[topic] = make(map[int32]*listOffsetsRequestBlock)
		for j := 0; j < partitionCount; j++ {
			partitionID, err := pd.getInt32()
			if err != nil {
				return err
			}
			block := &listOffsetsRequestBlock{}
			if err := block.decode(pd, r.Version); err != nil {
				return err
			}
			r.blocks[topic][partitionID] = block
		}
	}
	return nil
}

func (r *ListOffsetsRequest) key() int16     { return apiKeyListOffsets }
func (r *ListOffsetsRequest) version() int16 { return r.Version }
func (r *ListOffsetsRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *ListOffsetsRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 7 }
func (r *ListOffsetsRequest) requiredVersion() KafkaVersion {
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
