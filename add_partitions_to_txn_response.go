package gokafka

import "time"

// AddPartitionsToTxnResponse reports per-partition errors. The producer
// treats any non-zero code as a failure of every message in the batch being
// sent; the request is not retried and the transaction is not aborted.
type AddPartitionsToTxnResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Errors       map[string]map[int32]KError
}

func (a *AddPartitionsToTxnResponse) setVersion(v int16) { a.Version = v }

func (a *AddPartitionsToTxnResponse) flexible() bool { return a.Version >= 3 }

func (a *AddPartitionsToTxnResponse) encode(pe packetEncoder) error {
	pe.putInt32(int32(a.ThrottleTime / time.Millisecond))

	if a.flexible() {
		pe.putCompactArrayLength(len(a.Errors))
	} else if err := pe.putArrayLength(len(a.Errors)); err != nil {
		return err
	}
	for topic, partitions := range a.Errors {
		var err error
		if a.flexible() {
			err = pe.putCompactString(topic)
		} else {
			err = pe.putString(topic)
		}
		if err != nil {
			return err
		}

		if a.flexible() {
			pe.putCompactArrayLength(len(partitions))
		} else if err := pe.putArrayLength(len(partitions)); err != nil {
			return err
		}
		for partition, kerror := range partitions {
			pe.putInt32(partition)
			pe.putInt16(int16(kerror))
			if a.flexible() {
				pe.putEmptyTaggedFieldArray()
			}
		}

		if a.flexible() {
			pe.putEmptyTaggedFieldArray()
		}
	}

	if a.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (a *AddPartitionsToTxnResponse) decode(pd packetDecoder, version int16) (err error) {
	a.Version = version

	throttleTime, err := pd.getInt32()
	if err != nil {
		return err
	}
	a.ThrottleTime = time.Duration(throttleTime) * time.Millisecond

	var numTopics int
	if a.flexible() {
		numTopics, err = pd.getCompactArrayLength()
	} else {
		numTopics, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}

	a.Errors = make(map[string]map[int32]KError, numTopics)
	for i := 0; i < numTopics; i++ {
		var topic string
		if a.flexible() {
			topic, err = pd.getCompactString()
		} else {
			topic, err = pd.getString()
		}
		if err != nil {
			return err
		}

		var numPartitions int
		if a.flexible() {
			numPartitions, err = pd.getCompactArrayLength()
		} else {
			numPartitions, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}

		a.Errors[topic] = make(map[int32]KError, numPartitions)
		for j := 0; j < numPartitions; j++ {
			partition, err := pd.getInt32()
			if err != nil {
				return err
			}
			errCode, err := pd.getInt16()
			if err != nil {
				return err
			}
			a.Errors[topic][partition] = KError(errCode)
			if a.flexible() {
				if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
					return err
				}
			}
		}

		if a.flexible() {
			if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
				return err
			}
		}
	}

	if a.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (a *AddPartitionsToTxnResponse) key() int16     { return apiKeyAddPartitionsToTxn }
func (a *AddPartitionsToTxnResponse) version() int16 { return a.Version }
func (a *AddPartitionsToTxnResponse) headerVersion() int16 {
	if a.flexible() {
		return 1
	}
	return 0
}
func (a *AddPartitionsToTxnResponse) isValidVersion() bool { return a.Version >= 0 && a.Version <= 3 }
func (a *AddPartitionsToTxnResponse) requiredVersion() KafkaVersion {
	switch {
	case a.Version >= 3:
		return V2_8_0_0
	case a.Version >= 2:
		return V2_7_0_0
	case a.Version >= 1:
		return V2_0_0_0
	default:
		return V0_11_0_0
	}
}
func (a *AddPartitionsToTxnResponse) throttleTime() time.Duration { return a.ThrottleTime }
