package gokafka

// SyncGroupAssignment is the leader's computed per-member assignment,
// opaque to the broker.
type SyncGroupAssignment struct {
	MemberID   string
	Assignment []byte
}

func (a *SyncGroupAssignment) encode(pe packetEncoder, flexible bool) error {
	var err error
	if flexible {
		err = pe.putCompactString(a.MemberID)
	} else {
		err = pe.putString(a.MemberID)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putCompactBytes(a.Assignment)
	} else {
		err = pe.putBytes(a.Assignment)
	}
	if err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (a *SyncGroupAssignment) decode(pd packetDecoder, flexible bool) (err error) {
	if flexible {
		a.MemberID, err = pd.getCompactString()
	} else {
		a.MemberID, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		a.Assignment, err = pd.getCompactBytes()
	} else {
		a.Assignment, err = pd.getBytes()
	}
	if err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

// SyncGroupRequest is sent by every member once JoinGroup completes; only
// the leader's GroupAssignments slice is non-empty, the broker fans each
// member's own entry back out in the response.
type SyncGroupRequest struct {
	Version          int16
	GroupID          string
	GenerationID     int32
	MemberID         string
	GroupInstanceID  *string
	ProtocolType     *string
	ProtocolName     *string
	GroupAssignments []SyncGroupAssignment
}

func (r *SyncGroupRequest) setVersion(v int16) { r.Version = v }

func (r *SyncGroupRequest) flexible() bool { return r.Version >= 4 }

func (r *SyncGroupRequest) encode(pe packetEncoder) error {
	var err error
	if r.flexible() {
		err = pe.putCompactString(r.GroupID)
	} else {
		err = pe.putString(r.GroupID)
	}
	if err != nil {
		return err
	}

	pe.putInt32(r.GenerationID)

	if r.flexible() {
		err = pe.putCompactString(r.MemberID)
	} else {
		err = pe.putString(r.MemberID)
	}
	if err != nil {
		return err
	}

	if r.Version >= 3 {
		if r.flexible() {
			err = pe.putNullableCompactString(r.GroupInstanceID)
		} else {
			err = pe.putNullableString(r.GroupInstanceID)
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 5 {
		if err := pe.putNullableCompactString(r.ProtocolType); err != nil {
			return err
		}
		if err := pe.putNullableCompactString(r.ProtocolName); err != nil {
			return err
		}
	}

	if r.flexible() {
		pe.putCompactArrayLength(len(r.GroupAssignments))
	} else if err := pe.putArrayLength(len(r.GroupAssignments)); err != nil {
		return err
	}
	for i := range r.GroupAssignments {
		if err := r.GroupAssignments[i].encode(pe, r.flexible()); err != nil {
			return err
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *SyncGroupRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.flexible() {
		r.GroupID, err = pd.getCompactString()
	} else {
		r.GroupID, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if r.GenerationID, err = pd.getInt32(); err != nil {
		return err
	}

	if r.flexible() {
		r.MemberID, err = pd.getCompactString()
	} else {
		r.MemberID, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if r.Version >= 3 {
		if r.flexible() {
			r.GroupInstanceID, err = pd.getCompactNullableString()
		} else {
			r.GroupInstanceID, err = pd.getNullableString()
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 5 {
		if r.ProtocolType, err = pd.getCompactNullableString(); err != nil {
			return err
		}
		if r.ProtocolName, err = pd.getCompactNullableString(); err != nil {
			return err
		}
	}

	var n int
	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	r.GroupAssignments = make([]SyncGroupAssignment, n)
	for i := 0; i < n; i++ {
		if err := r.GroupAssignments[i].decode(pd, r.flexible()); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *SyncGroupRequest) key() int16 { return apiKeySyncGroup }
func (r *SyncGroupRequest) version() int16 { return r.Version }
func (r *SyncGroupRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *SyncGroupRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 5 }
func (r *SyncGroupRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 4:
		return V2_3_0_0
	case r.Version == 3:
		return V2_3_0_0
	case r.Version == 2:
		return V0_11_0_0
	case r.Version == 1:
		return V0_11_0_0
	default:
		return V0_9_0_0
	}
}
