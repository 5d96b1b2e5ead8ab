package gokafka

import "time"

// JoinGroupMember is a leader-only view: every other member's chosen
// protocol metadata, which the leader feeds into its partition_assigner
// before SyncGroup.
type JoinGroupMember struct {
	MemberID        string
	GroupInstanceID *string
	Metadata        []byte
}

func (m *JoinGroupMember) encode(pe packetEncoder, flexible bool) error {
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
		err = pe.putCompactBytes(m.Metadata)
	} else {
		err = pe.putBytes(m.Metadata)
	}
	if err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (m *JoinGroupMember) decode(pd packetDecoder, flexible bool) (err error) {
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
		m.Metadata, err = pd.getCompactBytes()
	} else {
		m.Metadata, err = pd.getBytes()
	}
	if err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type JoinGroupResponse struct {
	Version       int16
	ThrottleTime  time.Duration
	Err           KError
	GenerationID  int32
	GroupProtocol string
	LeaderID      string
	MemberID      string
	Members       []JoinGroupMember
}

func (r *JoinGroupResponse) setVersion(v int16) { r.Version = v }

func (r *JoinGroupResponse) flexible() bool { return r.Version >= 6 }

func (r *JoinGroupResponse) encode(pe packetEncoder) error {
	if r.Version >= 2 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}
	pe.putInt16(int16(r.Err))
	pe.putInt32(r.GenerationID)

	var err error
	if r.flexible() {
		err = pe.putCompactString(r.GroupProtocol)
	} else {
		err = pe.putString(r.GroupProtocol)
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		err = pe.putCompactString(r.LeaderID)
	} else {
		err = pe.putString(r.LeaderID)
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		err = pe.putCompactString(r.MemberID)
	} else {
		err = pe.putString(r.MemberID)
	}
	if err != nil {
		return err
	}

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

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *JoinGroupResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 2 {
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

	if r.GenerationID, err = pd.getInt32(); err != nil {
		return err
	}

	if r.flexible() {
		r.GroupProtocol, err = pd.getCompactString()
	} else {
		r.GroupProtocol, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		r.LeaderID, err = pd.getCompactString()
	} else {
		r.LeaderID, err = pd.getString()
	}
	if err != nil {
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

	var n int
	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	r.Members = make([]JoinGroupMember, n)
	for i := 0; i < n; i++ {
		if err := r.Members[i].decode(pd, r.flexible()); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *JoinGroupResponse) key() int16 { return apiKeyJoinGroup }
func (r *JoinGroupResponse) version() int16 { return r.Version }
func (r *JoinGroupResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *JoinGroupResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 7 }
func (r *JoinGroupResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 6:
		return V2_3_0_0
	case r.Version == 5:
		return V2_3_0_0
	case r.Version == 4:
		return V2_2_0_0
	case r.Version >= 2:
		return V0_11_0_0
	case r.Version == 1:
		return V0_10_1_0
	default:
		return V0_9_0_0
	}
}
func (r *JoinGroupResponse) throttleTime() time.Duration { return r.ThrottleTime }
