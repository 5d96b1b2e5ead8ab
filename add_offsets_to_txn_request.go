package gokafka

// AddOffsetsToTxnRequest registers a consumer group's offset commits as
// part of the current transaction — the "consume-transform-produce" half
// of exactly-once semantics, paired with a TxnOffsetCommit for the actual
// offsets.
type AddOffsetsToTxnRequest struct {
	Version         int16
	TransactionalID string
	ProducerID      int64
	ProducerEpoch   int16
	GroupID         string
}

func (a *AddOffsetsToTxnRequest) setVersion(v int16) { a.Version = v }

func (a *AddOffsetsToTxnRequest) flexible() bool { return a.Version >= 3 }

func (a *AddOffsetsToTxnRequest) encode(pe packetEncoder) error {
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
		err = pe.putCompactString(a.GroupID)
	} else {
		err = pe.putString(a.GroupID)
	}
	if err != nil {
		return err
	}

	if a.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (a *AddOffsetsToTxnRequest) decode(pd packetDecoder, version int16) (err error) {
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

	if a.flexible() {
		a.GroupID, err = pd.getCompactString()
	} else {
		a.GroupID, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if a.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (a *AddOffsetsToTxnRequest) key() int16     { return apiKeyAddOffsetsToTxn }
func (a *AddOffsetsToTxnRequest) version() int16 { return a.Version }
func (a *AddOffsetsToTxnRequest) headerVersion() int16 {
	if a.flexible() {
		return 2
	}
	return 1
}
func (a *AddOffsetsToTxnRequest) isValidVersion() bool { return a.Version >= 0 && a.Version <= 3 }
func (a *AddOffsetsToTxnRequest) requiredVersion() KafkaVersion {
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
