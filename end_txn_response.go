package gokafka

import "time"

// EndTxnResponse confirms a transaction has durably committed or aborted.
// Transaction.end returns any error code to the caller without retrying;
// codes marked in fatalForIdempotentProducer also fence the producer.
type EndTxnResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Err          KError
}

func (e *EndTxnResponse) setVersion(v int16) { e.Version = v }

func (e *EndTxnResponse) flexible() bool { return e.Version >= 3 }

func (e *EndTxnResponse) encode(pe packetEncoder) error {
	pe.putInt32(int32(e.ThrottleTime / time.Millisecond))
	pe.putInt16(int16(e.Err))

	if e.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (e *EndTxnResponse) decode(pd packetDecoder, version int16) (err error) {
	e.Version = version

	throttleTime, err := pd.getInt32()
	if err != nil {
		return err
	}
	e.ThrottleTime = time.Duration(throttleTime) * time.Millisecond

	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	e.Err = KError(errCode)

	if e.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (e *EndTxnResponse) key() int16     { return apiKeyEndTxn }
func (e *EndTxnResponse) version() int16 { return e.Version }
func (e *EndTxnResponse) headerVersion() int16 {
	if e.flexible() {
		return 1
	}
	return 0
}
func (e *EndTxnResponse) isValidVersion() bool { return e.Version >= 0 && e.Version <= 3 }
func (e *EndTxnResponse) requiredVersion() KafkaVersion {
	switch {
	case e.Version >= 3:
		return V2_8_0_0
	case e.Version >= 2:
		return V2_7_0_0
	case e.Version >= 1:
		return V2_0_0_0
	default:
		return V0_11_0_0
	}
}
func (e *EndTxnResponse) throttleTime() time.Duration { return e.ThrottleTime }
