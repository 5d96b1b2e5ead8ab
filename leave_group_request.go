package gokafka

// LeaveGroupMember lets a single client leave on behalf of several
// group-instance members at once (KIP-345 static membership batch leave).
type LeaveGroupMember struct {
	MemberID        string
	GroupInstanceID *string
}

func (m *LeaveGroupMember) encode(pe packetEncoder, flexible bool) error {
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
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (m *LeaveGroupMember) decode(pd packetDecoder, flexible bool) (err error) {
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
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type LeaveGroupRequest struct {
	Version int16
	GroupID string
	// MemberID is used pre-v3 only; v3+ uses Members.
	MemberID string
	Members  []LeaveGroupMember
}

func (r *LeaveGroupRequest) setVersion(v int16) { r.Version = v }

func (r *LeaveGroupRequest) flexible() bool { return r.Version >= 4 }

func (r *LeaveGroupRequest) encode(pe packetEncoder) error {
	var err error
	if r.flexible() {
		err = pe.putCompactString(r.GroupID)
	} else {
		err = pe.putString(r.GroupID)
	}
	if err != nil {
		return err
	}

	if r.Version < 3 {
		if r.flexible() {
			err = pe.putCompactString(r.MemberID)
		} else {
			err = pe.putString(r.MemberID)
		}
		if err != nil {
			return err
		}
	} else {
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

func (r *LeaveGroupRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.flexible() {
		r.GroupID, err = pd.getCompactString()
	} else {
		r.GroupID, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if r.Version < 3 {
		if r.flexible() {
			r.MemberID, err = pd.getCompactString()
		} else {
			r.MemberID, err = pd.getString()
		}
		if err != nil {
			return err
		}
	} else {
		var n int
		if r.flexible() {
			n, err = pd.getCompactArrayLength()
		} else {
			n, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}
		r.Members = make([]LeaveGroupMember, n)
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

func (r *LeaveGroupRequest) key() int16 { return apiKeyLeaveGroup }
func (r *LeaveGroupRequest) version() int16 { return r.Version }
func (r *LeaveGroupRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *LeaveGroupRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 4 }
func (r *LeaveGroupRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 4:
		return V2_4_0_0
	case r.Version == 3:
		return V2_4_0_0
	case r.Version == 2:
		return V0_11_0_0
	default:
		return V0_9_0_0
	}
}
