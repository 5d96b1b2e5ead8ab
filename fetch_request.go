package gokafka

// IsolationLevel controls whether Fetch exposes records from in-flight
// (not yet committed/aborted) transactions, mirroring Produce's own
// acks=all/transactional guarantees on the read side.
type IsolationLevel int8

const (
	ReadUncommitted IsolationLevel = 0
	ReadCommitted   IsolationLevel = 1
)

type fetchRequestBlock struct {
	Version            int16
	CurrentLeaderEpoch int32
	FetchOffset        int64
	LogStartOffset     int64
	MaxBytes           int32
}

func (f *fetchRequestBlock) encode(pe packetEncoder, partitionID int32) error {
	pe.putInt32(partitionID)
	if f.Version >= 9 {
		pe.putInt32(f.CurrentLeaderEpoch)
	}
	pe.putInt64(f.FetchOffset)
	if f.Version >= 5 {
		pe.putInt64(f.LogStartOffset)
	}
	pe.putInt32(f.MaxBytes)
	return nil
}

func (f *fetchRequestBlock) decode(pd packetDecoder, version int16) (err error) {
	f.Version = version
	if f.Version >= 9 {
		if f.CurrentLeaderEpoch, err = pd.getInt32(); err != nil {
			return err
		}
	}
	if f.FetchOffset, err = pd.getInt64(); err != nil {
		return err
	}
	if f.Version >= 5 {
		if f.LogStartOffset, err = pd.getInt64(); err != nil {
			return err
		}
	}
	f.MaxBytes, err = pd.getInt32()
	return err
}

// FetchRequest asks a broker for records starting at a given offset per
// partition; the consumer fetch loop builds one of these per broker per
// round via AddBlock, mirroring brokerFetchWorker.fetch.
type FetchRequest struct {
	Version        int16
	MaxWaitTime    int32
	MinBytes       int32
	MaxBytes       int32
	Isolation      IsolationLevel
	SessionID      int32
	SessionEpoch   int32
	RackID         string
	blocks         map[string]map[int32]*fetchRequestBlock
	forgotten      map[string][]int32
}

func (r *FetchRequest) setVersion(v int16) { r.Version = v }

func (r *FetchRequest) flexible() bool { return r.Version >= 12 }

// AddBlock adds a partition to the fetch request, replacing any previous
// block for the same topic/partition (matching the one-shot
// per-round AddBlock contract).
func (r *FetchRequest) AddBlock(topic string, partitionID int32, fetchOffset int64, maxBytes int32, leaderEpoch int32) {
	if r.blocks == nil {
		r.blocks = make(map[string]map[int32]*fetchRequestBlock)
	}
	if r.blocks[topic] == nil {
		r.blocks[topic] = make(map[int32]*fetchRequestBlock)
	}

	block := &fetchRequestBlock{Version: r.Version, MaxBytes: maxBytes, FetchOffset: fetchOffset}
	if r.Version >= 9 {
		block.CurrentLeaderEpoch = leaderEpoch
	} else {
		block.CurrentLeaderEpoch = invalidLeaderEpoch
	}
	r.blocks[topic][partitionID] = block
}

func (r *FetchRequest) encode(pe packetEncoder) error {
	pe.putInt32(invalidPreferredReplicaID) // ReplicaID, always -1 for a consumer
	pe.putInt32(r.MaxWaitTime)
	pe.putInt32(r.MinBytes)
	if r.Version >= 3 {
		pe.putInt32(r.MaxBytes)
	}
	if r.Version >= 4 {
		pe.putInt8(int8(r.Isolation))
	}
	if r.Version >= 7 {
		pe.putInt32(r.SessionID)
		pe.putInt32(r.SessionEpoch)
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
			if err := block.encode(pe, partitionID); err != nil {
				return err
			}
		}
	}

	if r.Version >= 7 {
		if err := pe.putArrayLength(len(r.forgotten)); err != nil {
			return err
		}
		for topic, partitions := range r.forgotten {
			if err := pe.putString(topic); err != nil {
				return err
			}
			if err := pe.putInt32Array(partitions); err != nil {
				return err
			}
		}
	}

	if r.Version >= 11 {
		if err := pe.putString(r.RackID); err != nil {
			return err
		}
	}

	return nil
}

func (r *FetchRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if _, err = pd.getInt32(); err != nil { // ReplicaID
		return err
	}
	if r.MaxWaitTime, err = pd.getInt32(); err != nil {
		return err
	}
	if r.MinBytes, err = pd.getInt32(); err != nil {
		return err
	}
	if r.Version >= 3 {
		if r.MaxBytes, err = pd.getInt32(); err != nil {
			return err
		}
	}
	if r.Version >= 4 {
		isolation, err := pd.getInt8()
		if err != nil {
			return err
		}
		r.Isolation = IsolationLevel(isolation)
	}
	if r.Version >= 7 {
		if r.SessionID, err = pd.getInt32(); err != nil {
			return err
		}
		if r.SessionEpoch, err = pd.getInt32(); err != nil {
			return err
		}
	}

	topicCount, err := pd.getArrayLength()
	if err != nil {
		return err
	}
	if topicCount == 0 {
		return nil
	}
	r.blocks = make(map[string]map[int32]*fetchRequestBlock)
	for i := 0; i < topicCount; i++ {
		topic, err := pd.getString()
		if err != nil {
			return err
		}
		partitionCount, err := pd.getArrayLength()
		if err != nil {
			return err
		}
		r.blocks[topic] = make(map[int32]*fetchRequestBlock)
		for j := 0; j < partitionCount; j++ {
			partitionID, err := pd.getInt32()
			if err != nil {
				return err
			}
			block := &fetchRequestBlock{}
			if err := block.decode(pd, r.Version); err != nil {
				return err
			}
			r.blocks[topic][partitionID] = block
		}
	}

	if r.Version >= 7 {
		forgottenCount, err := pd.getArrayLength()
		if err != nil {
			return err
		}
		if forgottenCount > 0 {
			r.forgotten = make(map[string][]int32)
			for i := 0; i < forgottenCount; i++ {
				topic, err := pd.getString()
				if err != nil {
					return err
				}
				partitions, err := pd.getInt32Array()
				if err != nil {
					return err
				}
				r.forgotten[topic] = partitions
			}
		}
	}

	if r.Version >= 11 {
		if r.RackID, err = pd.getString(); err != nil {
			return err
		}
	}

	return nil
}

func (r *FetchRequest) key() int16     { return apiKeyFetch }
func (r *FetchRequest) version() int16 { return r.Version }
func (r *FetchRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *FetchRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 11 }
func (r *FetchRequest) requiredVersion() KafkaVersion {
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
