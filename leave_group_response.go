package gokafka

import "time"

// LeaveGroupMemberResponse reports the per-member outcome of a v3+ batch
// leave (one entry per LeaveGroupMember in the request).
type LeaveGroupMemberResponse struct {
	MemberID        string
	GroupInstanceID *string
	Err             KError
}

func (m *LeaveGroupMemberResponse) encode(pe packetEncoder, flexible bool) error {
	var err error
	if flexible {
		err = pe.putCompactString(m.MemberID)
	} else {
		err = pe.putString(m.MemberID)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putNullableCompactString(m.GroupInstanceID)
	} else {
		err = pe.putNullableString(m.GroupInstanceID)
	}
	if err != nil {
		return err
	}
	pe.putInt16(int16(m.Err))
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (m *LeaveGroupMemberResponse) decode(pd packetDecoder, flexible bool) (err error) {
	if flexible {
		m.MemberID, err = pd.getCompactString()
	} else {
		m.MemberID, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		m.GroupInstanceID, err = pd.getCompactNullableString()
	} else {
		m.GroupInstanceID, err = pd.getNullableString()
	}
	if err != nil {
		return err
	}
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	m.Err = KError(errCode)
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type LeaveGroupResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Err          KError
	Members      []LeaveGroupMemberResponse
}

func (r *LeaveGroupResponse) setVersion(v int16) { r.Version = v }

func (r *LeaveGroupResponse) flexible() bool { return r.Version >= 4 }

func (r *LeaveGroupResponse) encode(pe packetEncoder) error {
	if r.Version >= 1 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}
	pe.putInt16(int16(r.Err))

	if r.Version >= 3 {
		if r.flexible() {
			pe.putCompactArrayLength(len(r.Members))
		} else if err := pe.putArrayLength(len(r.Members)); err != nil {
			return err
		}
		for i := range r.Members {
			if err := r.Members[i].encode(pe, r.flexible()); err != nil {
				return err
			}
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *LeaveGroupResponse) decode(pd packetDecoder, version int16) (err error) {
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

	if r.Version >= 3 {
		var n int
		if r.flexible() {
			n, err = pd.getCompactArrayLength()
		} else {
			n, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}
		r.Members = make([]LeaveGroupMemberResponse, n)
		for i := 0; i < n; i++ {
			if err := r.Members[i].decode(pd, r.flexible()); err != nil {
				return err
			}
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *LeaveGroupResponse) key() int16 { return apiKeyLeaveGroup }
func (r *LeaveGroupResponse) version() int16 { return r.Version }
func (r *LeaveGroupResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *LeaveGroupResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 4 }
func (r *LeaveGroupResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 4:
		return V2_4_0_0
	case r.Version == 3:
		return V2_4_0_0
	default:
		return V0_9_0_0
	}
}
func (r *LeaveGroupResponse) throttleTime() time.Duration { return r.ThrottleTime }
