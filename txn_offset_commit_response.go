package gokafka

import "time"

// TxnOffsetCommitResponse reports per-partition errors for a transactional
// offset commit, mirroring OffsetCommitResponse's shape.
type TxnOffsetCommitResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Errors       map[string]map[int32]KError
}

func (r *TxnOffsetCommitResponse) setVersion(v int16) { r.Version = v }

func (r *TxnOffsetCommitResponse) flexible() bool { return r.Version >= 3 }

func (r *TxnOffsetCommitResponse) encode(pe packetEncoder) error {
	pe.putInt32(int32(r.ThrottleTime / time.Millisecond))

	if r.flexible() {
		pe.putCompactArrayLength(len(r.Errors))
	} else if err := pe.putArrayLength(len(r.Errors)); err != nil {
		return err
	}
	for topic, partitions := range r.Errors {
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
		for partition, kerror := range partitions {
			pe.putInt32(partition)
			pe.putInt16(int16(kerror))
			if r.flexible() {
				pe.putEmptyTaggedFieldArray()
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

func (r *TxnOffsetCommitResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	throttleTime, err := pd.getInt32()
	if err != nil {
		return err
	}
	r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond

	var numTopics int
	if r.flexible() {
		numTopics, err = pd.getCompactArrayLength()
	} else {
		numTopics, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}

	r.Errors = make(map[string]map[int32]KError, numTopics)
	for i := 0; i < numTopics; i++ {
		var topic string
		if r.flexible() {
			topic, err = pd.getCompactString()
		} else {
			topic, err = pd.getString()
		}
		if err != nil {
			return err
		}

		var numPartitions int
		if r.flexible() {
			numPartitions, err = pd.getCompactArrayLength()
		} else {
			numPartitions, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}

		r.Errors[topic] = make(map[int32]KError, numPartitions)
		for j := 0; j < numPartitions; j++ {
			partition, err := pd.getInt32()
			if err != nil {
				return err
			}
			errCode, err := pd.getInt16()
			if err != nil {
				return err
			}
			r.Errors[topic][partition] = KError(errCode)
			if r.flexible() {
				if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
					return err
				}
			}
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

func (r *TxnOffsetCommitResponse) key() int16     { return apiKeyTxnOffsetCommit }
func (r *TxnOffsetCommitResponse) version() int16 { return r.Version }
func (r *TxnOffsetCommitResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *TxnOffsetCommitResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 3 }
func (r *TxnOffsetCommitResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 3:
		return V2_8_0_0
	case r.Version >= 2:
		return V2_3_0_0
	case r.Version >= 1:
		return V2_0_0_0
	default:
		return V0_11_0_0
	}
}
func (r *TxnOffsetCommitResponse) throttleTime() time.Duration { return r.ThrottleTime }
