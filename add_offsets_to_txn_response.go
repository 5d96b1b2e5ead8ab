package gokafka

import "time"

// AddOffsetsToTxnResponse carries a single coordinator-level error (unlike
// AddPartitionsToTxn, there's no per-partition breakdown — the whole
// request targets one group).
type AddOffsetsToTxnResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Err          KError
}

func (a *AddOffsetsToTxnResponse) setVersion(v int16) { a.Version = v }

func (a *AddOffsetsToTxnResponse) flexible() bool { return a.Version >= 3 }

func (a *AddOffsetsToTxnResponse) encode(pe packetEncoder) error {
	pe.putInt32(int32(a.ThrottleTime / time.Millisecond))
	pe.putInt16(int16(a.Err))

	if a.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (a *AddOffsetsToTxnResponse) decode(pd packetDecoder, version int16) (err error) {
	a.Version = version

	throttleTime, err := pd.getInt32()
	if err != nil {
		return err
	}
	a.ThrottleTime = time.Duration(throttleTime) * time.Millisecond

	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	a.Err = KError(errCode)

	if a.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (a *AddOffsetsToTxnResponse) key() int16     { return apiKeyAddOffsetsToTxn }
func (a *AddOffsetsToTxnResponse) version() int16 { return a.Version }
func (a *AddOffsetsToTxnResponse) headerVersion() int16 {
	if a.flexible() {
		return 1
	}
	return 0
}
func (a *AddOffsetsToTxnResponse) isValidVersion() bool { return a.Version >= 0 && a.Version <= 3 }
func (a *AddOffsetsToTxnResponse) requiredVersion() KafkaVersion {
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
func (a *AddOffsetsToTxnResponse) throttleTime() time.Duration { return a.ThrottleTime }
