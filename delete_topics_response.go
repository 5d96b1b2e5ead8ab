package gokafka

import "time"

type DeleteTopicsTopicResult struct {
	Name   string
	TopicID [16]byte
	Err    KError
	ErrMsg *string
}

func (t *DeleteTopicsTopicResult) encode(pe packetEncoder, flexible bool, version int16) error {
	var err error
	if flexible {
		err = pe.putCompactString(t.Name)
	} else {
		err = pe.putString(t.Name)
	}
	if err != nil {
		return err
	}
	if version >= 6 {
		pe.putUUID(t.TopicID)
	}
	pe.putInt16(int16(t.Err))
	if version >= 5 {
		if err := pe.putNullableCompactString(t.ErrMsg); err != nil {
			return err
		}
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (t *DeleteTopicsTopicResult) decode(pd packetDecoder, flexible bool, version int16) (err error) {
	if flexible {
		t.Name, err = pd.getCompactString()
	} else {
		t.Name, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if version >= 6 {
		if t.TopicID, err = pd.getUUID(); err != nil {
			return err
		}
	}
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	t.Err = KError(errCode)
	if version >= 5 {
		if t.ErrMsg, err = pd.getCompactNullableString(); err != nil {
			return err
		}
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type DeleteTopicsResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Responses    []DeleteTopicsTopicResult
}

func (d *DeleteTopicsResponse) setVersion(v int16) {
	d.Version = v
}

func (d *DeleteTopicsResponse) flexible() bool { return d.Version >= 4 }

func (d *DeleteTopicsResponse) encode(pe packetEncoder) error {
	pe.putInt32(int32(d.ThrottleTime / time.Millisecond))

	if d.flexible() {
		pe.putCompactArrayLength(len(d.Responses))
	} else if err := pe.putArrayLength(len(d.Responses)); err != nil {
		return err
	}
	for i := range d.Responses {
		if err := d.Responses[i].encode(pe, d.flexible(), d.Version); err != nil {
			return err
		}
	}

	if d.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (d *DeleteTopicsResponse) decode(pd packetDecoder, version int16) (err error) {
	d.Version = version

	throttleTime, err := pd.getInt32()
	if err != nil {
		return err
	}
	d.ThrottleTime = time.Duration(throttleTime) * time.Millisecond

	var n int
	if d.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	d.Responses = make([]DeleteTopicsTopicResult, n)
	for i := 0; i < n; i++ {
		if err := d.Responses[i].decode(pd, d.flexible(), d.Version); err != nil {
			return err
		}
	}

	if d.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (d *DeleteTopicsResponse) key() int16 {
	return apiKeyDeleteTopics
}

func (d *DeleteTopicsResponse) version() int16 {
	return d.Version
}

func (d *DeleteTopicsResponse) headerVersion() int16 {
	if d.flexible() {
		return 1
	}
	return 0
}

func (d *DeleteTopicsResponse) isValidVersion() bool {
	return d.Version >= 0 && d.Version <= 6
}

func (d *DeleteTopicsResponse) requiredVersion() KafkaVersion {
	switch {
	case d.Version >= 6:
		return V2_8_0_0
	case d.Version >= 4:
		return V2_1_0_0
	case d.Version >= 1:
		return V0_11_0_0
	default:
		return V0_10_1_0
	}
}

func (r *DeleteTopicsResponse) throttleTime() time.Duration {
	return r.ThrottleTime
}
