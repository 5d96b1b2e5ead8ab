package gokafka

import "time"

type ListGroupsGroup struct {
	GroupID      string
	ProtocolType string
	GroupState   string
}

func (g *ListGroupsGroup) encode(pe packetEncoder, flexible bool, withState bool) error {
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
		err = pe.putCompactString(g.ProtocolType)
	} else {
		err = pe.putString(g.ProtocolType)
	}
	if err != nil {
		return err
	}
	if withState {
		if err := pe.putCompactString(g.GroupState); err != nil {
			return err
		}
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (g *ListGroupsGroup) decode(pd packetDecoder, flexible bool, withState bool) (err error) {
	if flexible {
		g.GroupID, err = pd.getCompactString()
	} else {
		g.GroupID, err = pd.getString()
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
	if withState {
		if g.GroupState, err = pd.getCompactString(); err != nil {
			return err
		}
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type ListGroupsResponse struct {
	Version      int16
	ThrottleTime time.Duration
	Err          KError
	Groups       []ListGroupsGroup
}

func (r *ListGroupsResponse) setVersion(v int16) { r.Version = v }

func (r *ListGroupsResponse) flexible() bool { return r.Version >= 3 }

func (r *ListGroupsResponse) encode(pe packetEncoder) error {
	if r.Version >= 1 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}
	pe.putInt16(int16(r.Err))

	if r.flexible() {
		pe.putCompactArrayLength(len(r.Groups))
	} else if err := pe.putArrayLength(len(r.Groups)); err != nil {
		return err
	}
	for i := range r.Groups {
		if err := r.Groups[i].encode(pe, r.flexible(), r.Version >= 4); err != nil {
			return err
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *ListGroupsResponse) decode(pd packetDecoder, version int16) (err error) {
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

	var n int
	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	r.Groups = make([]ListGroupsGroup, n)
	for i := 0; i < n; i++ {
		if err := r.Groups[i].decode(pd, r.flexible(), r.Version >= 4); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *ListGroupsResponse) key() int16 { return apiKeyListGroups }
func (r *ListGroupsResponse) version() int16 { return r.Version }
func (r *ListGroupsResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *ListGroupsResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 4 }
func (r *ListGroupsResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 3:
		return V2_4_0_0
	case r.Version >= 1:
		return V0_11_0_0
	default:
		return V0_9_0_0
	}
}
func (r *ListGroupsResponse) throttleTime() time.Duration { return r.ThrottleTime }
