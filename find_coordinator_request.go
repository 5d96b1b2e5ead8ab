package gokafka

// CoordinatorType distinguishes group-coordinator from
// transaction-coordinator lookups.
type CoordinatorType int8

const (
	CoordinatorGroup       CoordinatorType = 0
	CoordinatorTransaction CoordinatorType = 1
)

type FindCoordinatorRequest struct {
	Version      int16
	CoordinatorKey  string
	CoordinatorType CoordinatorType
	CoordinatorKeys []string
}

func (r *FindCoordinatorRequest) setVersion(v int16) { r.Version = v }

func (r *FindCoordinatorRequest) flexible() bool { return r.Version >= 3 }

func (r *FindCoordinatorRequest) encode(pe packetEncoder) error {
	if r.Version < 4 {
		var err error
		if r.flexible() {
			err = pe.putCompactString(r.CoordinatorKey)
		} else {
			err = pe.putString(r.CoordinatorKey)
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 1 {
		pe.putInt8(int8(r.CoordinatorType))
	}

	if r.Version >= 4 {
		pe.putCompactArrayLength(len(r.CoordinatorKeys))
		for _, k := range r.CoordinatorKeys {
			if err := pe.putCompactString(k); err != nil {
				return err
			}
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *FindCoordinatorRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version < 4 {
		if r.flexible() {
			r.CoordinatorKey, err = pd.getCompactString()
		} else {
			r.CoordinatorKey, err = pd.getString()
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 1 {
		t, err := pd.getInt8()
		if err != nil {
			return err
		}
		r.CoordinatorType = CoordinatorType(t)
	}

	if r.Version >= 4 {
		n, err := pd.getCompactArrayLength()
		if err != nil {
			return err
		}
		r.CoordinatorKeys = make([]string, n)
		for i := 0; i < n; i++ {
			if r.CoordinatorKeys[i], err = pd.getCompactString(); err != nil {
				return err
			}
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *FindCoordinatorRequest) key() int16 { return apiKeyFindCoordinator }
func (r *FindCoordinatorRequest) version() int16 { return r.Version }
func (r *FindCoordinatorRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *FindCoordinatorRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 4 }
func (r *FindCoordinatorRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 3:
		return V2_0_0_0
	case r.Version == 2:
		return V0_11_0_0
	case r.Version == 1:
		return V0_11_0_0
	default:
		return V0_9_0_0
	}
}
