package gokafka

import "time"

type CreateTopicsTopicResult struct {
	Topic           string
	Err             KError
	ErrMsg          *string
	NumPartitions   int32
	ReplicationFactor int16
	Configs         []CreateTopicConfigEntry
}

func (t *CreateTopicsTopicResult) encode(pe packetEncoder, flexible bool, version int16) error {
	var err error
	if flexible {
		err = pe.putCompactString(t.Topic)
	} else {
		err = pe.putString(t.Topic)
	}
	if err != nil {
		return err
	}
	pe.putInt16(int16(t.Err))
	if version >= 1 {
		if flexible {
			err = pe.putNullableCompactString(t.ErrMsg)
		} else {
			err = pe.putNullableString(t.ErrMsg)
		}
		if err != nil {
			return err
		}
	}
	if version >= 5 {
		pe.putInt32(t.NumPartitions)
		pe.putInt16(t.ReplicationFactor)
		if flexible {
			pe.putCompactArrayLength(len(t.Configs))
		} else if err := pe.putArrayLength(len(t.Configs)); err != nil {
			return err
		}
		for i := range t.Configs {
			if err := t.Configs[i].encode(pe, flexible); err != nil {
				return err
			}
		}
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (t *CreateTopicsTopicResult) decode(pd packetDecoder, flexible bool, version int16) (err error) {
	if flexible {
		t.Topic, err = pd.getCompactString()
	} else {
		t.Topic, err = pd.getString()
	}
	if err != nil {
		return err
	}
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	t.Err = KError(errCode)

	if version >= 1 {
		if flexible {
			t.ErrMsg, err = pd.getCompactNullableString()
		} else {
			t.ErrMsg, err = pd.getNullableString()
		}
		if err != nil {
			return err
		}
	}

	if version >= 5 {
		if t.NumPartitions, err = pd.getInt32(); err != nil {
			return err
		}
		if t.ReplicationFactor, err = pd.getInt16(); err != nil {
			return err
		}
		var n int
		if flexible {
			n, err = pd.getCompactArrayLength()
		} else {
			n, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}
		t.Configs = make([]CreateTopicConfigEntry, n)
		for i := 0; i < n; i++ {
			if err := t.Configs[i].decode(pd, flexible); err != nil {
				return err
			}
		}
	}

	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type CreateTopicsResponse struct {
	Version         int16
	ThrottleTime    time.Duration
	TopicErrors     []CreateTopicsTopicResult
}

func (r *CreateTopicsResponse) setVersion(v int16) { r.Version = v }

func (r *CreateTopicsResponse) flexible() bool { return r.Version >= 5 }

func (r *CreateTopicsResponse) encode(pe packetEncoder) error {
	if r.Version >= 2 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}

	if r.flexible() {
		pe.putCompactArrayLength(len(r.TopicErrors))
	} else if err := pe.putArrayLength(len(r.TopicErrors)); err != nil {
		return err
	}
	for i := range r.TopicErrors {
		if err := r.TopicErrors[i].encode(pe, r.flexible(), r.Version); err != nil {
			return err
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *CreateTopicsResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 2 {
		throttleTime, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond
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
	r.TopicErrors = make([]CreateTopicsTopicResult, n)
	for i := 0; i < n; i++ {
		if err := r.TopicErrors[i].decode(pd, r.flexible(), r.Version); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *CreateTopicsResponse) key() int16 { return apiKeyCreateTopics }
func (r *CreateTopicsResponse) version() int16 { return r.Version }
func (r *CreateTopicsResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *CreateTopicsResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 7 }
func (r *CreateTopicsResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 5:
		return V2_4_0_0
	case r.Version >= 4:
		return V2_0_0_0
	case r.Version >= 1:
		return V0_11_0_0
	default:
		return V0_10_1_0
	}
}
func (r *CreateTopicsResponse) throttleTime() time.Duration { return r.ThrottleTime }
