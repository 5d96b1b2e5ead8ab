package gokafka

import "time"

type HeartbeatResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Err          KError
}

func (r *HeartbeatResponse) setVersion(v int16) { r.Version = v }

func (r *HeartbeatResponse) flexible() bool { return r.Version >= 4 }

func (r *HeartbeatResponse) encode(pe packetEncoder) error {
	if r.Version >= 1 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}
	pe.putInt16(int16(r.Err))
	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *HeartbeatResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 1 {
		throttleTime, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond
	}

	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	r.Err = KError(errCode)

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *HeartbeatResponse) key() int16 { return apiKeyHeartbeat }
func (r *HeartbeatResponse) version() int16 { return r.Version }
func (r *HeartbeatResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *HeartbeatResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 4 }
func (r *HeartbeatResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 4:
		return V2_3_0_0
	case r.Version == 2:
		return V0_11_0_0
	default:
		return V0_9_0_0
	}
}
func (r *HeartbeatResponse) throttleTime() time.Duration { return r.ThrottleTime }
