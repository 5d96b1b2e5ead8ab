package gokafka

type DeleteGroupsRequest struct {
	Version int16
	Groups  []string
}

func (r *DeleteGroupsRequest) setVersion(v int16) { r.Version = v }

func (r *DeleteGroupsRequest) flexible() bool { return r.Version >= 2 }

func (r *DeleteGroupsRequest) encode(pe packetEncoder) error {
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
	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *DeleteGroupsRequest) decode(pd packetDecoder, version int16) (err error) {
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
	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *DeleteGroupsRequest) key() int16 { return apiKeyDeleteGroups }
func (r *DeleteGroupsRequest) version() int16 { return r.Version }
func (r *DeleteGroupsRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *DeleteGroupsRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 2 }
func (r *DeleteGroupsRequest) requiredVersion() KafkaVersion {
	if r.Version >= 2 {
		return V2_4_0_0
	}
	return V1_1_0_0
}
