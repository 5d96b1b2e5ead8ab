package gokafka

import "time"

// DescribeGroupsMember is one group member as seen by the coordinator,
// including the opaque metadata/assignment bytes the leader produced
// during JoinGroup/SyncGroup.
type DescribeGroupsMember struct {
	MemberID        string
	GroupInstanceID *string
	ClientID        string
	ClientHost      string
	MemberMetadata  []byte
	MemberAssignment []byte
}

func (m *DescribeGroupsMember) encode(pe packetEncoder, flexible bool, hasInstanceID bool) error {
	var err error
	if flexible {
		err = pe.putCompactString(m.MemberID)
	} else {
		err = pe.putString(m.MemberID)
	}
	if err != nil {
		return err
	}
	if hasInstanceID {
		if err := pe.putNullableCompactString(m.GroupInstanceID); err != nil {
			return err
		}
	}
	if flexible {
		err = pe.putCompactString(m.ClientID)
	} else {
		err = pe.putString(m.ClientID)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putCompactString(m.ClientHost)
	} else {
		err = pe.putString(m.ClientHost)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putCompactBytes(m.MemberMetadata)
	} else {
		err = pe.putBytes(m.MemberMetadata)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putCompactBytes(m.MemberAssignment)
	} else {
		err = pe.putBytes(m.MemberAssignment)
	}
	if err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (m *DescribeGroupsMember) decode(pd packetDecoder, flexible bool, hasInstanceID bool) (err error) {
	if flexible {
		m.MemberID, err = pd.getCompactString()
	} else {
		m.MemberID, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if hasInstanceID {
		if m.GroupInstanceID, err = pd.getCompactNullableString(); err != nil {
			return err
		}
	}
	if flexible {
		m.ClientID, err = pd.getCompactString()
	} else {
		m.ClientID, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		m.ClientHost, err = pd.getCompactString()
	} else {
		m.ClientHost, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		m.MemberMetadata, err = pd.getCompactBytes()
	} else {
		m.MemberMetadata, err = pd.getBytes()
	}
	if err != nil {
		return err
	}
	if flexible {
		m.MemberAssignment, err = pd.getCompactBytes()
	} else {
		m.MemberAssignment, err = pd.getBytes()
	}
	if err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type DescribeGroupsGroup struct {
	Err                      KError
	GroupID                  string
	State                    string
	ProtocolType             string
	Protocol                 string
	Members                  []DescribeGroupsMember
	AuthorizedOperations     int32
}

func (g *DescribeGroupsGroup) encode(pe packetEncoder, flexible bool, version int16) error {
	pe.putInt16(int16(g.Err))

	var err error
	if flexible {
		err = pe.putCompactString(g.GroupID)
	} else {
		err = pe.putString(g.GroupID)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putCompactString(g.State)
	} else {
		err = pe.putString(g.State)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putCompactString(g.ProtocolType)
	} else {
		err = pe.putString(g.ProtocolType)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putCompactString(g.Protocol)
	} else {
		err = pe.putString(g.Protocol)
	}
	if err != nil {
		return err
	}

	if flexible {
		pe.putCompactArrayLength(len(g.Members))
	} else if err := pe.putArrayLength(len(g.Members)); err != nil {
		return err
	}
	for i := range g.Members {
		if err := g.Members[i].encode(pe, flexible, version >= 5); err != nil {
			return err
		}
	}

	if version >= 3 {
		pe.putInt32(g.AuthorizedOperations)
	}

	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (g *DescribeGroupsGroup) decode(pd packetDecoder, flexible bool, version int16) (err error) {
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	g.Err = KError(errCode)

	if flexible {
		g.GroupID, err = pd.getCompactString()
	} else {
		g.GroupID, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		g.State, err = pd.getCompactString()
	} else {
		g.State, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		g.ProtocolType, err = pd.getCompactString()
	} else {
		g.ProtocolType, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		g.Protocol, err = pd.getCompactString()
	} else {
		g.Protocol, err = pd.getString()
	}
	if err != nil {
		return err
	}

	var n int
	if flexible {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	g.Members = make([]DescribeGroupsMember, n)
	for i := 0; i < n; i++ {
		if err := g.Members[i].decode(pd, flexible, version >= 5); err != nil {
			return err
		}
	}

	if version >= 3 {
		if g.AuthorizedOperations, err = pd.getInt32(); err != nil {
			return err
		}
	}

	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type DescribeGroupsResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Groups       []DescribeGroupsGroup
}

func (r *DescribeGroupsResponse) setVersion(v int16) { r.Version = v }

func (r *DescribeGroupsResponse) flexible() bool { return r.Version >= 5 }

func (r *DescribeGroupsResponse) encode(pe packetEncoder) error {
	if r.Version >= 1 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}

	if r.flexible() {
		pe.putCompactArrayLength(len(r.Groups))
	} else if err := pe.putArrayLength(len(r.Groups)); err != nil {
		return err
	}
	for i := range r.Groups {
		if err := r.Groups[i].encode(pe, r.flexible(), r.Version); err != nil {
			return err
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *DescribeGroupsResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 1 {
		throttleTime, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond
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
	r.Groups = make([]DescribeGroupsGroup, n)
	for i := 0; i < n; i++ {
		if err := r.Groups[i].decode(pd, r.flexible(), r.Version); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *DescribeGroupsResponse) key() int16 { return apiKeyDescribeGroups }
func (r *DescribeGroupsResponse) version() int16 { return r.Version }
func (r *DescribeGroupsResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *DescribeGroupsResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 5 }
func (r *DescribeGroupsResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 5:
		return V2_3_0_0
	case r.Version >= 3:
		return V2_3_0_0
	case r.Version >= 1:
		return V0_11_0_0
	default:
		return V0_9_0_0
	}
}
func (r *DescribeGroupsResponse) throttleTime() time.Duration { return r.ThrottleTime }
