package gokafka

// ConsumerGroupHeartbeatRequest is the KIP-848 "next generation" group
// protocol heartbeat: a single RPC replacing JoinGroup/SyncGroup/Heartbeat,
// with the broker computing and pushing partition assignment rather than
// the client running a client-side assignor. Always flexible (introduced
// post-KIP-482).
type ConsumerGroupHeartbeatRequest struct {
	Version               int16
	GroupID               string
	MemberID              string
	MemberEpoch           int32
	InstanceID            *string
	RackID                *string
	RebalanceTimeoutMs    int32
	SubscribedTopicNames  []string
	ServerAssignor        *string
	TopicPartitions       []ConsumerGroupHeartbeatTopicPartitions
}

// ConsumerGroupHeartbeatTopicPartitions reports the member's current
// assignment back to the broker (required on every heartbeat so the
// broker can reconcile revocations).
type ConsumerGroupHeartbeatTopicPartitions struct {
	TopicID    [16]byte
	Partitions []int32
}

func (t *ConsumerGroupHeartbeatTopicPartitions) encode(pe packetEncoder) error {
	pe.putUUID(t.TopicID)
	pe.putCompactArrayLength(len(t.Partitions))
	for _, p := range t.Partitions {
		pe.putInt32(p)
	}
	pe.putEmptyTaggedFieldArray()
	return nil
}

func (t *ConsumerGroupHeartbeatTopicPartitions) decode(pd packetDecoder) (err error) {
	if t.TopicID, err = pd.getUUID(); err != nil {
		return err
	}
	n, err := pd.getCompactArrayLength()
	if err != nil {
		return err
	}
	t.Partitions = make([]int32, n)
	for i := 0; i < n; i++ {
		if t.Partitions[i], err = pd.getInt32(); err != nil {
			return err
		}
	}
	_, err = pd.getEmptyTaggedFieldArray()
	return err
}

func (r *ConsumerGroupHeartbeatRequest) setVersion(v int16) { r.Version = v }

func (r *ConsumerGroupHeartbeatRequest) encode(pe packetEncoder) error {
	if err := pe.putCompactString(r.GroupID); err != nil {
		return err
	}
	if err := pe.putCompactString(r.MemberID); err != nil {
		return err
	}
	pe.putInt32(r.MemberEpoch)
	if err := pe.putNullableCompactString(r.InstanceID); err != nil {
		return err
	}
	if err := pe.putNullableCompactString(r.RackID); err != nil {
		return err
	}
	pe.putInt32(r.RebalanceTimeoutMs)

	pe.putCompactArrayLength(len(r.SubscribedTopicNames))
	for _, t := range r.SubscribedTopicNames {
		if err := pe.putCompactString(t); err != nil {
			return err
		}
	}

	if err := pe.putNullableCompactString(r.ServerAssignor); err != nil {
		return err
	}

	pe.putCompactArrayLength(len(r.TopicPartitions))
	for i := range r.TopicPartitions {
		if err := r.TopicPartitions[i].encode(pe); err != nil {
			return err
		}
	}

	pe.putEmptyTaggedFieldArray()
	return nil
}

func (r *ConsumerGroupHeartbeatRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.GroupID, err = pd.getCompactString(); err != nil {
		return err
	}
	if r.MemberID, err = pd.getCompactString(); err != nil {
		return err
	}
	if r.MemberEpoch, err = pd.getInt32(); err != nil {
		return err
	}
	if r.InstanceID, err = pd.getCompactNullableString(); err != nil {
		return err
	}
	if r.RackID, err = pd.getCompactNullableString(); err != nil {
		return err
	}
	if r.RebalanceTimeoutMs, err = pd.getInt32(); err != nil {
		return err
	}

	n, err := pd.getCompactArrayLength()
	if err != nil {
		return err
	}
	r.SubscribedTopicNames = make([]string, n)
	for i := 0; i < n; i++ {
		if r.SubscribedTopicNames[i], err = pd.getCompactString(); err != nil {
			return err
		}
	}

	if r.ServerAssignor, err = pd.getCompactNullableString(); err != nil {
		return err
	}

	m, err := pd.getCompactArrayLength()
	if err != nil {
		return err
	}
	r.TopicPartitions = make([]ConsumerGroupHeartbeatTopicPartitions, m)
	for i := 0; i < m; i++ {
		if err := r.TopicPartitions[i].decode(pd); err != nil {
			return err
		}
	}

	_, err = pd.getEmptyTaggedFieldArray()
	return err
}

func (r *ConsumerGroupHeartbeatRequest) key() int16           { return apiKeyConsumerGroupHeartbeat }
func (r *ConsumerGroupHeartbeatRequest) version() int16       { return r.Version }
func (r *ConsumerGroupHeartbeatRequest) headerVersion() int16 { return 2 }
func (r *ConsumerGroupHeartbeatRequest) isValidVersion() bool { return r.Version == 0 }
func (r *ConsumerGroupHeartbeatRequest) requiredVersion() KafkaVersion {
	return V3_5_0_0
}
