package gokafka

import "time"

// InitProducerIDResponse hands the producer its (ProducerID, ProducerEpoch)
// pair, the identity every subsequent idempotent/transactional Produce
// batch stamps into its RecordBatch header.
type InitProducerIDResponse struct {
	Version       int16
	ThrottleTime  time.Duration
	Err           KError
	ProducerID    int64
	ProducerEpoch int16
}

func (i *InitProducerIDResponse) setVersion(v int16) { i.Version = v }

func (i *InitProducerIDResponse) flexible() bool { return i.Version >= 2 }

func (i *InitProducerIDResponse) encode(pe packetEncoder) error {
	pe.putInt32(int32(i.ThrottleTime / time.Millisecond))
	pe.putInt16(int16(i.Err))
	pe.putInt64(i.ProducerID)
	pe.putInt16(i.ProducerEpoch)

	if i.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (i *InitProducerIDResponse) decode(pd packetDecoder, version int16) (err error) {
	i.Version = version

	throttleTime, err := pd.getInt32()
	if err != nil {
		return err
	}
	i.ThrottleTime = time.Duration(throttleTime) * time.Millisecond

	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	i.Err = KError(errCode)

	if i.ProducerID, err = pd.getInt64(); err != nil {
		return err
	}
	if i.ProducerEpoch, err = pd.getInt16(); err != nil {
		return err
	}

	if i.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (i *InitProducerIDResponse) key() int16     { return apiKeyInitProducerId }
func (i *InitProducerIDResponse) version() int16 { return i.Version }
func (i *InitProducerIDResponse) headerVersion() int16 {
	if i.flexible() {
		return 1
	}
	return 0
}
func (i *InitProducerIDResponse) isValidVersion() bool { return i.Version >= 0 && i.Version <= 4 }
func (i *InitProducerIDResponse) requiredVersion() KafkaVersion {
	switch {
	case i.Version >= 4:
		return V2_7_0_0
	case i.Version >= 3:
		return V2_5_0_0
	case i.Version >= 2:
		return V2_4_0_0
	case i.Version >= 1:
		return V2_0_0_0
	default:
		return V0_11_0_0
	}
}
func (i *InitProducerIDResponse) throttleTime() time.Duration { return i.ThrottleTime }
