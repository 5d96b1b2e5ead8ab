package gokafka

import "time"

type SyncGroupResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Err          KError
	ProtocolType *string
	ProtocolName *string
	MemberAssignment []byte
}

func (r *SyncGroupResponse) setVersion(v int16) { r.Version = v }

func (r *SyncGroupResponse) flexible() bool { return r.Version >= 4 }

func (r *SyncGroupResponse) encode(pe packetEncoder) error {
	if r.Version >= 1 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}
	pe.putInt16(int16(r.Err))

	if r.Version >= 5 {
		if err := pe.putNullableCompactString(r.ProtocolType); err != nil {
			return err
		}
		if err := pe.putNullableCompactString(r.ProtocolName); err != nil {
			return err
		}
	}

	var err error
	if r.flexible() {
		err = pe.putCompactBytes(r.MemberAssignment)
	} else {
		err = pe.putBytes(r.MemberAssignment)
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *SyncGroupResponse) decode(pd packetDecoder, version int16) (err error) {
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

	if r.Version >= 5 {
		if r.ProtocolType, err = pd.getCompactNullableString(); err != nil {
			return err
		}
		if r.ProtocolName, err = pd.getCompactNullableString(); err != nil {
			return err
		}
	}

	if r.flexible() {
		r.MemberAssignment, err = pd.getCompactBytes()
	} else {
		r.MemberAssignment, err = pd.getBytes()
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *SyncGroupResponse) key() int16 { return apiKeySyncGroup }
func (r *SyncGroupResponse) version() int16 { return r.Version }
func (r *SyncGroupResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *SyncGroupResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 5 }
func (r *SyncGroupResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 4:
		return V2_3_0_0
	case r.Version >= 1:
		return V0_11_0_0
	default:
		return V0_9_0_0
	}
}
func (r *SyncGroupResponse) throttleTime() time.Duration { return r.ThrottleTime }
