package gokafka

import "time"

// FindCoordinatorCoordinator is one resolved coordinator, used directly as
// the response body pre-v4 and repeated per requested key from v4 on
// (KIP-699 batched lookups).
type FindCoordinatorCoordinator struct {
	Key      string
	NodeID   int32
	Host     string
	Port     int32
	Err      KError
	ErrMsg   *string
}

func (c *FindCoordinatorCoordinator) encode(pe packetEncoder, flexible, withKey bool) error {
	var err error
	if withKey {
		if err = pe.putCompactString(c.Key); err != nil {
			return err
		}
	}
	pe.putInt32(c.NodeID)
	if flexible {
		err = pe.putCompactString(c.Host)
	} else {
		err = pe.putString(c.Host)
	}
	if err != nil {
		return err
	}
	pe.putInt32(c.Port)
	pe.putInt16(int16(c.Err))
	if flexible {
		if err := pe.putNullableCompactString(c.ErrMsg); err != nil {
			return err
		}
		pe.putEmptyTaggedFieldArray()
	} else if err := pe.putNullableString(c.ErrMsg); err != nil {
		return err
	}
	return nil
}

func (c *FindCoordinatorCoordinator) decode(pd packetDecoder, flexible, withKey bool) (err error) {
	if withKey {
		if c.Key, err = pd.getCompactString(); err != nil {
			return err
		}
	}
	if c.NodeID, err = pd.getInt32(); err != nil {
		return err
	}
	if flexible {
		c.Host, err = pd.getCompactString()
	} else {
		c.Host, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if c.Port, err = pd.getInt32(); err != nil {
		return err
	}
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	c.Err = KError(errCode)
	if flexible {
		if c.ErrMsg, err = pd.getCompactNullableString(); err != nil {
			return err
		}
		_, err = pd.getEmptyTaggedFieldArray()
	} else {
		c.ErrMsg, err = pd.getNullableString()
	}
	return err
}

type FindCoordinatorResponse struct {
	Version      int16
	ThrottleTime time.Duration
	// pre-v4: a single inline coordinator. v4+: Coordinators, one per
	// requested key, each carrying its own Key field.
	FindCoordinatorCoordinator
	Coordinators []FindCoordinatorCoordinator
}

func (r *FindCoordinatorResponse) setVersion(v int16) { r.Version = v }

func (r *FindCoordinatorResponse) flexible() bool { return r.Version >= 3 }

func (r *FindCoordinatorResponse) encode(pe packetEncoder) error {
	pe.putInt32(int32(r.ThrottleTime / time.Millisecond))

	if r.Version < 4 {
		if err := r.FindCoordinatorCoordinator.encode(pe, r.flexible(), false); err != nil {
			return err
		}
	} else {
		pe.putCompactArrayLength(len(r.Coordinators))
		for i := range r.Coordinators {
			if err := r.Coordinators[i].encode(pe, true, true); err != nil {
				return err
			}
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *FindCoordinatorResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	throttleTime, err := pd.getInt32()
	if err != nil {
		return err
	}
	r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond

	if r.Version < 4 {
		if err := r.FindCoordinatorCoordinator.decode(pd, r.flexible(), false); err != nil {
			return err
		}
	} else {
		n, err := pd.getCompactArrayLength()
		if err != nil {
			return err
		}
		r.Coordinators = make([]FindCoordinatorCoordinator, n)
		for i := 0; i < n; i++ {
			if err := r.Coordinators[i].decode(pd, true, true); err != nil {
				return err
			}
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *FindCoordinatorResponse) key() int16 { return apiKeyFindCoordinator }
func (r *FindCoordinatorResponse) version() int16 { return r.Version }
func (r *FindCoordinatorResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *FindCoordinatorResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 4 }
func (r *FindCoordinatorResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 3:
		return V2_0_0_0
	case r.Version >= 1:
		return V0_11_0_0
	default:
		return V0_9_0_0
	}
}
func (r *FindCoordinatorResponse) throttleTime() time.Duration { return r.ThrottleTime }
