package gokafka

import "time"

// GroupProtocol is one assignment-protocol candidate a member advertises
//. The coordinator picks the protocol every member has in common.
type GroupProtocol struct {
	Name     string
	Metadata []byte
}

func (p *GroupProtocol) encode(pe packetEncoder, flexible bool) error {
	var err error
	if flexible {
		err = pe.putCompactString(p.Name)
	} else {
		err = pe.putString(p.Name)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putCompactBytes(p.Metadata)
	} else {
		err = pe.putBytes(p.Metadata)
	}
	if err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (p *GroupProtocol) decode(pd packetDecoder, flexible bool) (err error) {
	if flexible {
		p.Name, err = pd.getCompactString()
	} else {
		p.Name, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		p.Metadata, err = pd.getCompactBytes()
	} else {
		p.Metadata, err = pd.getBytes()
	}
	if err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

// JoinGroupRequest is the classic group protocol's membership request
//.
type JoinGroupRequest struct {
	Version           int16
	GroupID           string
	SessionTimeout    time.Duration
	RebalanceTimeout  time.Duration
	MemberID          string
	GroupInstanceID   *string
	ProtocolType      string
	GroupProtocols    []GroupProtocol
}

func (r *JoinGroupRequest) setVersion(v int16) { r.Version = v }

func (r *JoinGroupRequest) flexible() bool { return r.Version >= 6 }

func (r *JoinGroupRequest) encode(pe packetEncoder) error {
	var err error
	if r.flexible() {
		err = pe.putCompactString(r.GroupID)
	} else {
		err = pe.putString(r.GroupID)
	}
	if err != nil {
		return err
	}

	pe.putInt32(int32(r.SessionTimeout / time.Millisecond))
	if r.Version >= 1 {
		pe.putInt32(int32(r.RebalanceTimeout / time.Millisecond))
	}

	if r.flexible() {
		err = pe.putCompactString(r.MemberID)
	} else {
		err = pe.putString(r.MemberID)
	}
	if err != nil {
		return err
	}

	if r.Version >= 5 {
		if r.flexible() {
			err = pe.putNullableCompactString(r.GroupInstanceID)
		} else {
			err = pe.putNullableString(r.GroupInstanceID)
		}
		if err != nil {
			return err
		}
	}

	if r.flexible() {
		err = pe.putCompactString(r.ProtocolType)
	} else {
		err = pe.putString(r.ProtocolType)
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		pe.putCompactArrayLength(len(r.GroupProtocols))
	} else if err := pe.putArrayLength(len(r.GroupProtocols)); err != nil {
		return err
	}
	for i := range r.GroupProtocols {
		if err := r.GroupProtocols[i].encode(pe, r.flexible()); err != nil {
			return err
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *JoinGroupRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.flexible() {
		r.GroupID, err = pd.getCompactString()
	} else {
		r.GroupID, err = pd.getString()
	}
	if err != nil {
		return err
	}

	sessionTimeout, err := pd.getInt32()
	if err != nil {
		return err
	}
	r.SessionTimeout = time.Duration(sessionTimeout) * time.Millisecond

	if r.Version >= 1 {
		rebalanceTimeout, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.RebalanceTimeout = time.Duration(rebalanceTimeout) * time.Millisecond
	}

	if r.flexible() {
		r.MemberID, err = pd.getCompactString()
	} else {
		r.MemberID, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if r.Version >= 5 {
		if r.flexible() {
			r.GroupInstanceID, err = pd.getCompactNullableString()
		} else {
			r.GroupInstanceID, err = pd.getNullableString()
		}
		if err != nil {
			return err
		}
	}

	if r.flexible() {
		r.ProtocolType, err = pd.getCompactString()
	} else {
		r.ProtocolType, err = pd.getString()
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
	r.GroupProtocols = make([]GroupProtocol, n)
	for i := 0; i < n; i++ {
		if err := r.GroupProtocols[i].decode(pd, r.flexible()); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *JoinGroupRequest) key() int16 { return apiKeyJoinGroup }
func (r *JoinGroupRequest) version() int16 { return r.Version }
func (r *JoinGroupRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *JoinGroupRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 7 }
func (r *JoinGroupRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 6:
		return V2_3_0_0
	case r.Version == 5:
		return V2_3_0_0
	case r.Version == 4:
		return V2_2_0_0
	case r.Version == 3:
		return V0_11_0_0
	case r.Version == 2:
		return V0_11_0_0
	case r.Version == 1:
		return V0_10_1_0
	default:
		return V0_9_0_0
	}
}
