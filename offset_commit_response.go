package gokafka

import "time"

// OffsetCommitResponse reports per-partition commit success/failure; the
// offset manager surfaces a non-nil block error to the owning
// partitionOffsetManager so it can decide whether to retry or give up.
type OffsetCommitResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Errors       map[string]map[int32]KError
}

func (r *OffsetCommitResponse) setVersion(v int16) { r.Version = v }

func (r *OffsetCommitResponse) flexible() bool { return r.Version >= 8 }

func (r *OffsetCommitResponse) AddError(topic string, partition int32, kerror KError) {
	if r.Errors == nil {
		r.Errors = make(map[string]map[int32]KError)
	}
	if r.Errors[topic] == nil {
		r.Errors[topic] = make(map[int32]KError)
	}
	r.Errors[topic][partition] = kerror
}

func (r *OffsetCommitResponse) Errored(topic string, partition int32) KError {
	if r.Errors == nil {
		return ErrNoError
	}
	if perrs, ok := r.Errors[topic]; ok {
		return perrs[partition]
	}
	return ErrNoError
}

func (r *OffsetCommitResponse) encode(pe packetEncoder) error {
	if r.Version >= 3 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}

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

func (r *OffsetCommitResponse) decode(pd packetDecoder, version int16) (err error) {
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
	if numTopics == 0 {
		return nil
	}

	r.Errors = make(map[string]map[int32]KError, numTopics)
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

		var numErrors int
		if r.flexible() {
			numErrors, err = pd.getCompactArrayLength()
		} else {
			numErrors, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}

		r.Errors[name] = make(map[int32]KError, numErrors)
		for j := 0; j < numErrors; j++ {
			partition, err := pd.getInt32()
			if err != nil {
				return err
			}
			errCode, err := pd.getInt16()
			if err != nil {
				return err
			}
			r.Errors[name][partition] = KError(errCode)
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

func (r *OffsetCommitResponse) key() int16     { return apiKeyOffsetCommit }
func (r *OffsetCommitResponse) version() int16 { return r.Version }
func (r *OffsetCommitResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *OffsetCommitResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 8 }
func (r *OffsetCommitResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 8:
		return V2_4_0_0
	case r.Version >= 6:
		return V2_1_0_0
	case r.Version >= 4:
		return V2_0_0_0
	case r.Version >= 3:
		return V0_11_0_0
	case r.Version >= 2:
		return V0_9_0_0
	default:
		return V0_8_2_0
	}
}
func (r *OffsetCommitResponse) throttleTime() time.Duration { return r.ThrottleTime }
