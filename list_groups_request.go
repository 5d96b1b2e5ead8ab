package gokafka

type ListGroupsRequest struct {
	Version         int16
	StatesFilter    []string
}

func (r *ListGroupsRequest) setVersion(v int16) { r.Version = v }

func (r *ListGroupsRequest) flexible() bool { return r.Version >= 3 }

func (r *ListGroupsRequest) encode(pe packetEncoder) error {
	if r.Version >= 4 {
		if r.flexible() {
			pe.putCompactArrayLength(len(r.StatesFilter))
		} else if err := pe.putArrayLength(len(r.StatesFilter)); err != nil {
			return err
		}
		for _, s := range r.StatesFilter {
			var err error
			if r.flexible() {
				err = pe.putCompactString(s)
			} else {
				err = pe.putString(s)
			}
			if err != nil {
				return err
			}
		}
	}
	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *ListGroupsRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 4 {
		var n int
		if r.flexible() {
			n, err = pd.getCompactArrayLength()
		} else {
			n, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}
		r.StatesFilter = make([]string, n)
		for i := 0; i < n; i++ {
			if r.flexible() {
				r.StatesFilter[i], err = pd.getCompactString()
			} else {
				r.StatesFilter[i], err = pd.getString()
			}
			if err != nil {
				return err
			}
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *ListGroupsRequest) key() int16 { return apiKeyListGroups }
func (r *ListGroupsRequest) version() int16 { return r.Version }
func (r *ListGroupsRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *ListGroupsRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 4 }
func (r *ListGroupsRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 3:
		return V2_4_0_0
	case r.Version >= 1:
		return V0_11_0_0
	default:
		return V0_9_0_0
	}
}
