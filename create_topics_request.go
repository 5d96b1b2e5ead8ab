package gokafka

// CreateTopicReplicaAssignment pins specific broker IDs to a partition
// instead of letting the broker compute placement.
type CreateTopicReplicaAssignment struct {
	PartitionID int32
	ReplicaIDs  []int32
}

func (a *CreateTopicReplicaAssignment) encode(pe packetEncoder, flexible bool) error {
	pe.putInt32(a.PartitionID)
	if err := pe.putInt32Array(a.ReplicaIDs); err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (a *CreateTopicReplicaAssignment) decode(pd packetDecoder, flexible bool) (err error) {
	if a.PartitionID, err = pd.getInt32(); err != nil {
		return err
	}
	if a.ReplicaIDs, err = pd.getInt32Array(); err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type CreateTopicConfigEntry struct {
	ConfigName  string
	ConfigValue *string
}

func (c *CreateTopicConfigEntry) encode(pe packetEncoder, flexible bool) error {
	var err error
	if flexible {
		err = pe.putCompactString(c.ConfigName)
	} else {
		err = pe.putString(c.ConfigName)
	}
	if err != nil {
		return err
	}
	if flexible {
		err = pe.putNullableCompactString(c.ConfigValue)
	} else {
		err = pe.putNullableString(c.ConfigValue)
	}
	if err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (c *CreateTopicConfigEntry) decode(pd packetDecoder, flexible bool) (err error) {
	if flexible {
		c.ConfigName, err = pd.getCompactString()
	} else {
		c.ConfigName, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if flexible {
		c.ConfigValue, err = pd.getCompactNullableString()
	} else {
		c.ConfigValue, err = pd.getNullableString()
	}
	if err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

// TopicDetail is one topic to create in a CreateTopicsRequest, which
// Broker.CreateTopics sends.
type TopicDetail struct {
	Name              string
	NumPartitions     int32
	ReplicationFactor int16
	ReplicaAssignment []CreateTopicReplicaAssignment
	ConfigEntries     []CreateTopicConfigEntry
}

func (t *TopicDetail) encode(pe packetEncoder, flexible bool) error {
	var err error
	if flexible {
		err = pe.putCompactString(t.Name)
	} else {
		err = pe.putString(t.Name)
	}
	if err != nil {
		return err
	}

	pe.putInt32(t.NumPartitions)
	pe.putInt16(t.ReplicationFactor)

	if flexible {
		pe.putCompactArrayLength(len(t.ReplicaAssignment))
	} else if err := pe.putArrayLength(len(t.ReplicaAssignment)); err != nil {
		return err
	}
	for i := range t.ReplicaAssignment {
		if err := t.ReplicaAssignment[i].encode(pe, flexible); err != nil {
			return err
		}
	}

	if flexible {
		pe.putCompactArrayLength(len(t.ConfigEntries))
	} else if err := pe.putArrayLength(len(t.ConfigEntries)); err != nil {
		return err
	}
	for i := range t.ConfigEntries {
		if err := t.ConfigEntries[i].encode(pe, flexible); err != nil {
			return err
		}
	}

	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (t *TopicDetail) decode(pd packetDecoder, flexible bool) (err error) {
	if flexible {
		t.Name, err = pd.getCompactString()
	} else {
		t.Name, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if t.NumPartitions, err = pd.getInt32(); err != nil {
		return err
	}
	if t.ReplicationFactor, err = pd.getInt16(); err != nil {
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
	t.ReplicaAssignment = make([]CreateTopicReplicaAssignment, n)
	for i := 0; i < n; i++ {
		if err := t.ReplicaAssignment[i].decode(pd, flexible); err != nil {
			return err
		}
	}

	if flexible {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	t.ConfigEntries = make([]CreateTopicConfigEntry, n)
	for i := 0; i < n; i++ {
		if err := t.ConfigEntries[i].decode(pd, flexible); err != nil {
			return err
		}
	}

	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

type CreateTopicsRequest struct {
	Version       int16
	TopicDetails  []TopicDetail
	Timeout       int32
	ValidateOnly  bool
}

func (r *CreateTopicsRequest) setVersion(v int16) { r.Version = v }

func (r *CreateTopicsRequest) flexible() bool { return r.Version >= 5 }

func (r *CreateTopicsRequest) encode(pe packetEncoder) error {
	if r.flexible() {
		pe.putCompactArrayLength(len(r.TopicDetails))
	} else if err := pe.putArrayLength(len(r.TopicDetails)); err != nil {
		return err
	}
	for i := range r.TopicDetails {
		if err := r.TopicDetails[i].encode(pe, r.flexible()); err != nil {
			return err
		}
	}

	pe.putInt32(r.Timeout)
	if r.Version >= 1 {
		pe.putBool(r.ValidateOnly)
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *CreateTopicsRequest) decode(pd packetDecoder, version int16) (err error) {
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
	r.TopicDetails = make([]TopicDetail, n)
	for i := 0; i < n; i++ {
		if err := r.TopicDetails[i].decode(pd, r.flexible()); err != nil {
			return err
		}
	}

	if r.Timeout, err = pd.getInt32(); err != nil {
		return err
	}
	if r.Version >= 1 {
		if r.ValidateOnly, err = pd.getBool(); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *CreateTopicsRequest) key() int16 { return apiKeyCreateTopics }
func (r *CreateTopicsRequest) version() int16 { return r.Version }
func (r *CreateTopicsRequest) headerVersion() int16 {
	if r.flexible() {
		return 2
	}
	return 1
}
func (r *CreateTopicsRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 7 }
func (r *CreateTopicsRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 5:
		return V2_4_0_0
	case r.Version >= 4:
		return V2_0_0_0
	case r.Version >= 1:
		return V0_11_0_0
	default:
		return V0_10_1_0
	}
}
