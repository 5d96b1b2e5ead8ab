package gokafka

import "sort"

// GroupMemberMetadata is a member's JoinGroupRequest protocol metadata,
// decoded so the group leader's assignor can see what each member
// subscribes to.
type GroupMemberMetadata struct {
	Version  int16
	Topics   []string
	UserData []byte
}

// GroupMemberAssignment is what SyncGroup hands back to a member: its
// slice of the partitions the leader's strategy assigned it.
type GroupMemberAssignment struct {
	Version  int16
	Topics   map[string][]int32
	UserData []byte
}

// BalanceStrategyPlan is memberID -> topic -> assigned partitions, the
// leader-computed output of a GroupBalanceStrategy.Plan call.
type BalanceStrategyPlan map[string]map[string][]int32

func (p BalanceStrategyPlan) add(memberID, topic string, partition int32) {
	if p[memberID] == nil {
		p[memberID] = make(map[string][]int32)
	}
	p[memberID][topic] = append(p[memberID][topic], partition)
}

// GroupBalanceStrategy computes a partition assignment across group
// members, implemented by the member holding the JoinGroup "leader" role
// once SyncGroup time comes.
type GroupBalanceStrategy interface {
	// Name is sent as the protocol name in JoinGroupRequest and must match
	// across every member for them to be eligible for the same group
	// protocol round.
	Name() string

	// Plan computes the full assignment given each member's subscribed
	// topics and the partition count available for every topic the group
	// as a whole subscribes to.
	Plan(members map[string]GroupMemberMetadata, topicPartitions map[string][]int32) (BalanceStrategyPlan, error)
}

type balanceStrategyRange struct{}

// NewBalanceStrategyRange returns the "range" strategy: for each topic,
// sort its subscribed members and divide up the topic's partitions into
// contiguous ranges, one per member — Kafka's historical default.
func NewBalanceStrategyRange() GroupBalanceStrategy { return &balanceStrategyRange{} }

func (s *balanceStrategyRange) Name() string { return "range" }

func (s *balanceStrategyRange) Plan(members map[string]GroupMemberMetadata, topicPartitions map[string][]int32) (BalanceStrategyPlan, error) {
	plan := make(BalanceStrategyPlan, len(members))

	membersByTopic := make(map[string][]string)
	for memberID, meta := range members {
		for _, topic := range meta.Topics {
			membersByTopic[topic] = append(membersByTopic[topic], memberID)
		}
	}

	for topic, partitions := range topicPartitions {
		topicMembers := membersByTopic[topic]
		if len(topicMembers) == 0 {
			continue
		}
		sort.Strings(topicMembers)

		numPartitions := len(partitions)
		numMembers := len(topicMembers)
		partitionsPerMember := numPartitions / numMembers
		extra := numPartitions % numMembers

		sortedPartitions := append([]int32(nil), partitions...)
		sort.Slice(sortedPartitions, func(i, j int) bool { return sortedPartitions[i] < sortedPartitions[j] })

		idx := 0
		for i, memberID := range topicMembers {
			count := partitionsPerMember
			if i < extra {
				count++
			}
			for j := 0; j < count; j++ {
				plan.add(memberID, topic, sortedPartitions[idx])
				idx++
			}
		}
	}

	return plan, nil
}

type balanceStrategyRoundRobin struct{}

// NewBalanceStrategyRoundRobin returns the "roundrobin" strategy: lay out
// every (topic, partition) pair across all subscribed members in sorted
// member-ID order, wrapping as it goes — gives a flatter distribution than
// "range" when members subscribe to overlapping but non-identical topic
// sets.
func NewBalanceStrategyRoundRobin() GroupBalanceStrategy { return &balanceStrategyRoundRobin{} }

func (s *balanceStrategyRoundRobin) Name() string { return "roundrobin" }

func (s *balanceStrategyRoundRobin) Plan(members map[string]GroupMemberMetadata, topicPartitions map[string][]int32) (BalanceStrategyPlan, error) {
	plan := make(BalanceStrategyPlan, len(members))

	memberIDs := make([]string, 0, len(members))
	for memberID := range members {
		memberIDs = append(memberIDs, memberID)
	}
	sort.Strings(memberIDs)
	if len(memberIDs) == 0 {
		return plan, nil
	}

	topics := make([]string, 0, len(topicPartitions))
	for topic := range topicPartitions {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	next := 0
	for _, topic := range topics {
		partitions := append([]int32(nil), topicPartitions[topic]...)
		sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

		for _, partition := range partitions {
			// advance to the next member subscribed to this topic
			for attempts := 0; attempts < len(memberIDs); attempts++ {
				memberID := memberIDs[next%len(memberIDs)]
				next++
				if subscribes(members[memberID], topic) {
					plan.add(memberID, topic, partition)
					break
				}
			}
		}
	}

	return plan, nil
}

func subscribes(meta GroupMemberMetadata, topic string) bool {
	for _, t := range meta.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// encode/decode below serialize GroupMemberMetadata and
// GroupMemberAssignment as the opaque protocol-metadata and assignment
// byte strings JoinGroupRequest/SyncGroupResponse carry (ConsumerProtocol
// subscription/assignment format, plain non-flexible encoding regardless
// of the wrapping request's own flexible-ness).

func (m *GroupMemberMetadata) encode() ([]byte, error) {
	var re realEncoder
	re.raw = make([]byte, m.encodedLength())
	re.putInt16(m.Version)
	if err := re.putStringArray(m.Topics); err != nil {
		return nil, err
	}
	if err := re.putBytes(m.UserData); err != nil {
		return nil, err
	}
	return re.raw, nil
}

func (m *GroupMemberMetadata) encodedLength() int {
	n := 2 + 4 + 4
	for _, t := range m.Topics {
		n += 2 + len(t)
	}
	n += len(m.UserData)
	return n
}

func (m *GroupMemberMetadata) decode(raw []byte) error {
	rd := realDecoder{raw: raw}
	var err error
	if m.Version, err = rd.getInt16(); err != nil {
		return err
	}
	if m.Topics, err = rd.getStringArray(); err != nil {
		return err
	}
	if m.UserData, err = rd.getBytes(); err != nil {
		return err
	}
	return nil
}

func (a *GroupMemberAssignment) encode() ([]byte, error) {
	var re realEncoder
	re.raw = make([]byte, a.encodedLength())
	re.putInt16(a.Version)
	if err := re.putArrayLength(len(a.Topics)); err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(a.Topics))
	for topic := range a.Topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		if err := re.putString(topic); err != nil {
			return nil, err
		}
		if err := re.putInt32Array(a.Topics[topic]); err != nil {
			return nil, err
		}
	}
	if err := re.putBytes(a.UserData); err != nil {
		return nil, err
	}
	return re.raw, nil
}

func (a *GroupMemberAssignment) encodedLength() int {
	n := 2 + 4
	for topic, partitions := range a.Topics {
		n += 2 + len(topic) + 4 + 4*len(partitions)
	}
	n += 4 + len(a.UserData)
	return n
}

func (a *GroupMemberAssignment) decode(raw []byte) error {
	rd := realDecoder{raw: raw}
	var err error
	if a.Version, err = rd.getInt16(); err != nil {
		return err
	}
	numTopics, err := rd.getArrayLength()
	if err != nil {
		return err
	}
	a.Topics = make(map[string][]int32, numTopics)
	for i := 0; i < numTopics; i++ {
		topic, err := rd.getString()
		if err != nil {
			return err
		}
		partitions, err := rd.getInt32Array()
		if err != nil {
			return err
		}
		a.Topics[topic] = partitions
	}
	if a.UserData, err = rd.getBytes(); err != nil {
		return err
	}
	return nil
}
