package gokafka

type DeleteTopicsRequest struct {
	Version  int16
	Topics   []string
	TopicIDs [][16]byte
	Timeout  int32
}

func (r *DeleteTopicsRequest) setVersion(v int16) { r.Version = v }

func (r *DeleteTopicsRequest) flexible() bool { return r.Version >= 4 }

func (r *DeleteTopicsRequest) encode(pe packetEncoder) error {
	if r.Version >= 6 {
		pe.putCompactArrayLength(len(r.Topics) + len(r.TopicIDs))
		for _, name := range r.Topics {
			pe.putUUID([16]byte{})
			if err := pe.putCompactString(name); err != nil {
				return err
			}
			pe.putEmptyTaggedFieldArray()
		}
		for _, id := range r.TopicIDs {
			pe.putUUID(id)
			if err := pe.putNullableCompactString(nil); err != nil {
				return err
			}
			pe.putEmptyTaggedFieldArray()
		}
	} else {
		if r.flexible() {
			pe.putCompactArrayLength(len(r.Topics))
		} else if err := pe.putArrayLength(len(r.Topics)); err != nil {
			return err
		}
		for _, name := range r.Topics {
			var err error
			if r.flexible() {
				err = pe.putCompactString(name)
			} else {
				err = pe.putString(name)
			}
			if err != nil {
				return err
			}
		}
	}

	pe.putInt32(r.Timeout)

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *DeleteTopicsRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 6 {
		n, err := pd.getCompactArrayLength()
		if err != nil {
			return err
		}
		r.Topics = nil
		r.TopicIDs = nil
		for i := 0; i < n; i++ {
			id, err := pd.getUUID()
			if err != nil {
				return err
			}
			name, err := pd.getCompactNullableString()
			if err != nil {
				return err
			}
			if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
				return err
			}
			if name != nil {
				r.Topics = append(r.Topics, *name)
			} else {
				r.TopicIDs = append(r.TopicIDs, id)
			}
		}
	} else {
		var n int
		if r.flexible() {
			n, err = pd.getCompactArrayLength()
		} else {
			n, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}
		r.Topics = make([]string, n)
		for i := 0; i < n; i++ {
			if r.flexible() {
				r.Topics[i], err = pd.getCompactString()
			} else {
				r.Topics[i], err = pd.getString()
			}
			if err != nil {
				return err
			}
		}
	}

	if r.Timeout, err = pd.getInt32(); err != nil {
		return err
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *DeleteTopicsRequest) key() int16 { return apiKeyDeleteTopics }
func (r *DeleteTopicsRequest) version() int16 { return r.Version }
func (r *DeleteTopicsRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *DeleteTopicsRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 6 }
func (r *DeleteTopicsRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 6:
		return V2_8_0_0
	case r.Version >= 4:
		return V2_1_0_0
	case r.Version >= 1:
		return V0_11_0_0
	default:
		return V0_10_1_0
	}
}
