package gokafka

// MetadataRequest asks a broker for cluster topology. A nil Topics slice
// (as opposed to an empty one) requests every topic the broker knows about;
// an empty slice requests none (Version 1+ — Version 0 uses nil for "all
// topics" but has no way to request zero).
type MetadataRequest struct {
	Version                int16
	Topics                 []string
	TopicIDs               [][16]byte
	AllowAutoTopicCreation bool
	IncludeClusterAuthorizedOperations bool
	IncludeTopicAuthorizedOperations   bool
}

func (r *MetadataRequest) setVersion(v int16) { r.Version = v }

func (r *MetadataRequest) flexible() bool { return r.Version >= 9 }

func (r *MetadataRequest) encode(pe packetEncoder) error {
	if r.Version < 0 {
		return PacketEncodingError{"invalid metadata request version"}
	}

	if r.Topics == nil && r.Version >= 1 {
		if r.flexible() {
			pe.putCompactArrayLength(-1)
		} else {
			pe.putInt32(-1)
		}
	} else {
		if r.flexible() {
			pe.putCompactArrayLength(len(r.Topics))
		} else if err := pe.putArrayLength(len(r.Topics)); err != nil {
			return err
		}
		for _, topic := range r.Topics {
			if r.Version >= 10 {
				pe.putUUID([16]byte{})
			}
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
				pe.putEmptyTaggedFieldArray()
			}
		}
	}

	if r.Version >= 4 {
		pe.putBool(r.AllowAutoTopicCreation)
	}
	if r.Version >= 8 {
		pe.putBool(r.IncludeClusterAuthorizedOperations)
		pe.putBool(r.IncludeTopicAuthorizedOperations)
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *MetadataRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	var n int
	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}

	if n == -1 {
		r.Topics = nil
	} else {
		r.Topics = make([]string, n)
		for i := 0; i < n; i++ {
			if r.Version >= 10 {
				if _, err := pd.getUUID(); err != nil {
					return err
				}
			}
			if r.flexible() {
				r.Topics[i], err = pd.getCompactString()
			} else {
				r.Topics[i], err = pd.getString()
			}
			if err != nil {
				return err
			}
			if r.flexible() {
				if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
					return err
				}
			}
		}
	}

	if r.Version >= 4 {
		if r.AllowAutoTopicCreation, err = pd.getBool(); err != nil {
			return err
		}
	}
	if r.Version >= 8 {
		if r.IncludeClusterAuthorizedOperations, err = pd.getBool(); err != nil {
			return err
		}
		if r.IncludeTopicAuthorizedOperations, err = pd.getBool(); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *MetadataRequest) key() int16    { return apiKeyMetadata }
func (r *MetadataRequest) version() int16 { return r.Version }
func (r *MetadataRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *MetadataRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 9 }
func (r *MetadataRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 9:
		return V2_4_0_0
	case r.Version >= 7:
		return V2_1_0_0
	case r.Version >= 4:
		return V0_11_0_0
	case r.Version >= 1:
		return V0_10_0_0
	default:
		return V0_9_0_0
	}
}
