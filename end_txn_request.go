package gokafka

// EndTxnRequest commits or aborts the current transaction for a producer;
// the transaction manager sends this once every partition/offset involved
// has been registered via AddPartitionsToTxn/AddOffsetsToTxn.
type EndTxnRequest struct {
	Version           int16
	TransactionalID   string
	ProducerID        int64
	ProducerEpoch     int16
	TransactionResult bool
}

func (a *EndTxnRequest) setVersion(v int16) {
	a.Version = v
}

func (a *EndTxnRequest) flexible() bool { return a.Version >= 3 }

func (a *EndTxnRequest) encode(pe packetEncoder) error {
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
	pe.putBool(a.TransactionResult)

	if a.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (a *EndTxnRequest) decode(pd packetDecoder, version int16) (err error) {
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
	if a.TransactionResult, err = pd.getBool(); err != nil {
		return err
	}

	if a.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (a *EndTxnRequest) key() int16 {
	return apiKeyEndTxn
}

func (a *EndTxnRequest) version() int16 {
	return a.Version
}

func (a *EndTxnRequest) headerVersion() int16 {
	if a.flexible() {
		return 2
	}
	return 1
}

func (a *EndTxnRequest) isValidVersion() bool {
	return a.Version >= 0 && a.Version <= 3
}

func (a *EndTxnRequest) requiredVersion() KafkaVersion {
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
