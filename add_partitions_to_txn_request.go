package gokafka

// AddPartitionsToTxnRequest registers partitions as part of the current
// transaction before the producer writes to them, so the transaction
// coordinator knows what EndTxn must later commit or abort.
type AddPartitionsToTxnRequest struct {
	Version         int16
	TransactionalID string
	ProducerID      int64
	ProducerEpoch   int16
	TopicPartitions map[string][]int32
}

func (a *AddPartitionsToTxnRequest) setVersion(v int16) { a.Version = v }

func (a *AddPartitionsToTxnRequest) flexible() bool { return a.Version >= 3 }

func (a *AddPartitionsToTxnRequest) encode(pe packetEncoder) error {
	var err error
	if a.flexible() {
		err = pe.putCompactString(a.TransactionalID)
	} else {
		err = pe.putString(a.TransactionalID)
	}
	if err != nil {
		return err
	}

	pe.putInt64(a.ProducerID)
	pe.putInt16(a.ProducerEpoch)

	if a.flexible() {
		pe.putCompactArrayLength(len(a.TopicPartitions))
	} else if err := pe.putArrayLength(len(a.TopicPartitions)); err != nil {
		return err
	}
	for topic, partitions := range a.TopicPartitions {
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
			for _, p := range partitions {
				pe.putInt32(p)
			}
			pe.putEmptyTaggedFieldArray()
		} else if err := pe.putInt32Array(partitions); err != nil {
			return err
		}
	}

	if a.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (a *AddPartitionsToTxnRequest) decode(pd packetDecoder, version int16) (err error) {
	a.Version = version

	if a.flexible() {
		a.TransactionalID, err = pd.getCompactString()
	} else {
		a.TransactionalID, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if a.ProducerID, err = pd.getInt64(); err != nil {
		return err
	}
	if a.ProducerEpoch, err = pd.getInt16(); err != nil {
		return err
	}

	var n int
	if a.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}

	a.TopicPartitions = make(map[string][]int32, n)
	for i := 0; i < n; i++ {
		var topic string
		if a.flexible() {
			topic, err = pd.getCompactString()
		} else {
			topic, err = pd.getString()
		}
		if err != nil {
			return err
		}

		var partitions []int32
		if a.flexible() {
			m, err := pd.getCompactArrayLength()
			if err != nil {
				return err
			}
			partitions = make([]int32, m)
			for j := 0; j < m; j++ {
				if partitions[j], err = pd.getInt32(); err != nil {
					return err
				}
			}
		} else {
			if partitions, err = pd.getInt32Array(); err != nil {
				return err
			}
		}
		a.TopicPartitions[topic] = partitions

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

func (a *AddPartitionsToTxnRequest) key() int16     { return apiKeyAddPartitionsToTxn }
func (a *AddPartitionsToTxnRequest) version() int16 { return a.Version }
func (a *AddPartitionsToTxnRequest) headerVersion() int16 {
	if a.flexible() {
		return 2
	}
	return 1
}
func (a *AddPartitionsToTxnRequest) isValidVersion() bool { return a.Version >= 0 && a.Version <= 3 }
func (a *AddPartitionsToTxnRequest) requiredVersion() KafkaVersion {
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
