package gokafka

type DescribeGroupsRequest struct {
	Version                    int16
	Groups                     []string
	IncludeAuthorizedOperations bool
}

func (r *DescribeGroupsRequest) setVersion(v int16) { r.Version = v }

func (r *DescribeGroupsRequest) flexible() bool { return r.Version >= 5 }

func (r *DescribeGroupsRequest) encode(pe packetEncoder) error {
	if r.flexible() {
		pe.putCompactArrayLength(len(r.Groups))
	} else if err := pe.putArrayLength(len(r.Groups)); err != nil {
		return err
	}
	for _, g := range r.Groups {
		var err error
		if r.flexible() {
			err = pe.putCompactString(g)
		} else {
			err = pe.putString(g)
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 3 {
		pe.putBool(r.IncludeAuthorizedOperations)
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *DescribeGroupsRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	var n int
	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	r.Groups = make([]string, n)
	for i := 0; i < n; i++ {
		if r.flexible() {
			r.Groups[i], err = pd.getCompactString()
		} else {
			r.Groups[i], err = pd.getString()
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 3 {
		if r.IncludeAuthorizedOperations, err = pd.getBool(); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *DescribeGroupsRequest) key() int16 { return apiKeyDescribeGroups }
func (r *DescribeGroupsRequest) version() int16 { return r.Version }
func (r *DescribeGroupsRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *DescribeGroupsRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 5 }
func (r *DescribeGroupsRequest) requiredVersion() KafkaVersion {
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
