package gokafka

// OffsetFetchRequest retrieves the last committed offset for one or more
// partitions of a consumer group. Only the topics and partitions added to
// it are sent; FetchAllPartitions (version >= 2) instead sends the null
// topics array that asks the broker for everything it has committed for
// the group.
type OffsetFetchRequest struct {
	Version               int16
	ConsumerGroup         string
	RequireStable         bool // version 7+, KIP-447: block until in-flight transactional commits land
	partitions            map[string][]int32
	fetchAllTopics        bool // nil Topics in the wire sense, version >= 2
}

func (r *OffsetFetchRequest) setVersion(v int16) { r.Version = v }

func (r *OffsetFetchRequest) flexible() bool { return r.Version >= 6 }

func (r *OffsetFetchRequest) ZeroPartitions() {
	if r.partitions == nil && !r.fetchAllTopics {
		r.partitions = make(map[string][]int32)
	}
}

func (r *OffsetFetchRequest) AddPartition(topic string, partitionID int32) {
	if r.partitions == nil {
		r.partitions = make(map[string][]int32)
	}
	r.partitions[topic] = append(r.partitions[topic], partitionID)
}

// FetchAllPartitions switches this request (version >= 2) to the
// all-partitions-for-the-group wire form.
func (r *OffsetFetchRequest) FetchAllPartitions() {
	r.fetchAllTopics = true
	r.partitions = nil
}

func (r *OffsetFetchRequest) encode(pe packetEncoder) error {
	var err error
	if r.flexible() {
		err = pe.putCompactString(r.ConsumerGroup)
	} else {
		err = pe.putString(r.ConsumerGroup)
	}
	if err != nil {
		return err
	}

	if r.Version >= 2 && r.fetchAllTopics {
		if r.flexible() {
			pe.putCompactArrayLength(-1)
		} else {
			if err := pe.putArrayLength(-1); err != nil {
				return err
			}
		}
	} else {
		if r.flexible() {
			pe.putCompactArrayLength(len(r.partitions))
		} else if err := pe.putArrayLength(len(r.partitions)); err != nil {
			return err
		}
		for topic, partitions := range r.partitions {
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
			for _, partition := range partitions {
				pe.putInt32(partition)
			}
			if r.flexible() {
				pe.putEmptyTaggedFieldArray()
			}
		}
	}

	if r.Version >= 7 {
		pe.putBool(r.RequireStable)
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *OffsetFetchRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.flexible() {
		r.ConsumerGroup, err = pd.getCompactString()
	} else {
		r.ConsumerGroup, err = pd.getString()
	}
	if err != nil {
		return err
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

	if n < 0 {
		r.fetchAllTopics = true
	} else {
		r.partitions = make(map[string][]int32, n)
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
			partitions := make([]int32, m)
			for j := 0; j < m; j++ {
				if partitions[j], err = pd.getInt32(); err != nil {
					return err
				}
			}
			r.partitions[topic] = partitions

			if r.flexible() {
				if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
					return err
				}
			}
		}
	}

	if r.Version >= 7 {
		if r.RequireStable, err = pd.getBool(); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *OffsetFetchRequest) key() int16     { return apiKeyOffsetFetch }
func (r *OffsetFetchRequest) version() int16 { return r.Version }
func (r *OffsetFetchRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *OffsetFetchRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 8 }
func (r *OffsetFetchRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 6:
		return V2_4_0_0
	case r.Version >= 4:
		return V2_0_0_0
	case r.Version >= 2:
		return V0_10_2_0
	case r.Version == 1:
		return V0_8_2_0
	default:
		return V0_8_2_0
	}
}
