package gokafka

// HeartbeatRequest is the classic group protocol's liveness ping
//, flexible since v4.
type HeartbeatRequest struct {
	Version        int16
	GroupID        string
	GenerationID   int32
	MemberID       string
	GroupInstanceID *string
}

func (r *HeartbeatRequest) setVersion(v int16) { r.Version = v }

func (r *HeartbeatRequest) flexible() bool { return r.Version >= 4 }

func (r *HeartbeatRequest) encode(pe packetEncoder) error {
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

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *HeartbeatRequest) decode(pd packetDecoder, version int16) (err error) {
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

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *HeartbeatRequest) key() int16 { return apiKeyHeartbeat }
func (r *HeartbeatRequest) version() int16 { return r.Version }
func (r *HeartbeatRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *HeartbeatRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 4 }
func (r *HeartbeatRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 4:
		return V2_3_0_0
	case r.Version == 3:
		return V2_3_0_0
	case r.Version == 2:
		return V0_11_0_0
	case r.Version == 1:
		return V0_9_0_0
	default:
		return V0_9_0_0
	}
}
