package gokafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// errTopicSubscriptionChanged ends an active session when a concurrent
// Consume call changes the set of topics anyone in this group is
// subscribed to, forcing a fresh JoinGroup against the new union.
var errTopicSubscriptionChanged = errors.New("kafka: consumer group topic subscription changed")

// ConsumerGroup coordinates a fleet of consumers reading the same topics
// under one group ID, handling membership (JoinGroup/SyncGroup), failure
// detection (Heartbeat), and partition rebalancing the way a
// plain Consumer handles a single process's fetch loop, but across
// processes.
type ConsumerGroup interface {
	// Consume joins the group, waits for a partition assignment, and
	// drives handler against it until the session ends — because of a
	// rebalance, a fatal error, or ctx being cancelled. Callers loop on
	// Consume themselves (every new generation gets a fresh session).
	Consume(ctx context.Context, topics []string, handler ConsumerGroupHandler) error

	// Errors surfaces asynchronous failures (heartbeat loop, background
	// commit) that Consume can't return synchronously.
	Errors() <-chan error

	// Pause/Resume mirror Consumer's, scoped to this group's claimed
	// partitions.
	Pause(partitions map[string][]int32)
	Resume(partitions map[string][]int32)
	PauseAll()
	ResumeAll()

	Close() error
}

// ConsumerGroupHandler is implemented by the caller to process claimed
// partitions. Setup/Cleanup bracket every generation; ConsumeClaim is
// called once per claimed partition, concurrently, and must return when
// its claim's Messages() channel closes (session ending) for Consume to
// proceed to the next generation.
type ConsumerGroupHandler interface {
	Setup(ConsumerGroupSession) error
	Cleanup(ConsumerGroupSession) error
	ConsumeClaim(ConsumerGroupSession, ConsumerGroupClaim) error
}

// ConsumerGroupSession represents one generation of group membership: a
// stable member ID, generation number, and partition assignment, alive
// until the next rebalance.
type ConsumerGroupSession interface {
	Claims() map[string][]int32
	MemberID() string
	GenerationID() int32

	MarkOffset(topic string, partition int32, offset int64, metadata string)
	ResetOffset(topic string, partition int32, offset int64, metadata string)
	Commit()

	Context() context.Context
}

// ConsumerGroupClaim is the message stream for one partition this session
// was assigned.
type ConsumerGroupClaim interface {
	Topic() string
	Partition() int32
	InitialOffset() int64
	HighWaterMarkOffset() int64
	Messages() <-chan *ConsumerMessage
}

type consumerGroup struct {
	client     Client
	conf       *Config
	ownsClient bool
	groupID    string

	lock     sync.Mutex
	memberID string
	closed   bool
	errors   chan error

	// topics refcounts topic interest across every concurrent Consume
	// call on this group, so overlapping subscribers share a rejoin
	// instead of each one triggering its own.
	topics *TopicsMap

	activeSession *consumerGroupSession
}

// NewConsumerGroup dials addrs with its own Client, joining groupID.
func NewConsumerGroup(addrs []string, groupID string, conf *Config) (ConsumerGroup, error) {
	client, err := NewClient(addrs, conf)
	if err != nil {
		return nil, err
	}
	cg, err := NewConsumerGroupFromClient(groupID, client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	cg.(*consumerGroup).ownsClient = true
	return cg, nil
}

// NewConsumerGroupFromClient builds a ConsumerGroup on a caller-owned
// Client; Close does not close client.
func NewConsumerGroupFromClient(groupID string, client Client) (ConsumerGroup, error) {
	if client.Closed() {
		return nil, ErrClosedClient
	}
	return &consumerGroup{
		client:  client,
		conf:    client.Config(),
		groupID: groupID,
		errors:  make(chan error, client.Config().ChannelBufferSize),
		topics:  NewTopicsMap(),
	}, nil
}

func (cg *consumerGroup) Errors() <-chan error { return cg.errors }

func (cg *consumerGroup) sendErr(err error) {
	select {
	case cg.errors <- err:
	default:
		Logger.Printf("consumergroup: error channel full, dropping: %v\n", err)
	}
}

func (cg *consumerGroup) Close() error {
	cg.lock.Lock()
	if cg.closed {
		cg.lock.Unlock()
		return nil
	}
	cg.closed = true
	cg.lock.Unlock()

	if cg.ownsClient {
		return cg.client.Close()
	}
	return nil
}

func (cg *consumerGroup) isClosed() bool {
	cg.lock.Lock()
	defer cg.lock.Unlock()
	return cg.closed
}

// Consume runs exactly one generation and returns once that generation's
// session has ended. Callers wrap this in a `for` loop (the usual
// convention for group consumers) so a rebalance resumes automatically.
func (cg *consumerGroup) Consume(ctx context.Context, topics []string, handler ConsumerGroupHandler) (err error) {
	if cg.isClosed() {
		return ErrClosedConsumerGroup
	}

	_, endSpan := startSpan(ctx, "gokafka.ConsumerGroup.Consume",
		attribute.String("gokafka.group_id", cg.groupID),
		attribute.StringSlice("gokafka.topics", topics))
	defer func() { endSpan(err) }()

	sort.Strings(topics)

	// Register interest in topics before joining. If that changes the
	// group's net subscription (some topic here wasn't already covered by
	// another concurrent Consume call), force any session already running
	// to rebalance so its next generation reflects the new union rather
	// than racing this call's own join against a stale assignment.
	if cg.topics.track(topics) {
		cg.lock.Lock()
		active := cg.activeSession
		cg.lock.Unlock()
		if active != nil {
			active.endWithRebalance(errTopicSubscriptionChanged)
		}
	}
	defer cg.topics.untrack(topics)

	subscribedTopics := cg.topics.snapshot()

	coordinator, err := cg.client.Coordinator(cg.groupID)
	if err != nil {
		return err
	}

	if cg.conf.Consumer.Group.Protocol == GroupProtocolConsumer {
		return cg.consumeModern(ctx, coordinator, subscribedTopics, handler)
	}
	return cg.consumeClassic(ctx, coordinator, subscribedTopics, handler)
}

// consumeClassic runs one generation of the JoinGroup/SyncGroup/Heartbeat
// protocol: client-side assignment computed by whichever member JoinGroup
// names leader, pushed to the rest via SyncGroup.
func (cg *consumerGroup) consumeClassic(ctx context.Context, coordinator *Broker, subscribedTopics []string, handler ConsumerGroupHandler) (err error) {
	joinResp, err := cg.joinGroup(coordinator, subscribedTopics)
	if err != nil {
		return err
	}

	var plan BalanceStrategyPlan
	if joinResp.LeaderID == joinResp.MemberID {
		plan, err = cg.balance(joinResp, subscribedTopics)
		if err != nil {
			_ = cg.leaveGroup(coordinator, joinResp.MemberID)
			return err
		}
	}

	assignment, err := cg.syncGroup(coordinator, joinResp, plan)
	if err != nil {
		if isRetriableGroupCoordinatorError(err) {
			_ = cg.client.RefreshCoordinator(cg.groupID)
		}
		return err
	}

	cg.lock.Lock()
	cg.memberID = joinResp.MemberID
	cg.lock.Unlock()

	sess, err := cg.newSession(ctx, joinResp.MemberID, joinResp.GenerationID, assignment)
	if err != nil {
		return err
	}
	cg.lock.Lock()
	cg.activeSession = sess
	cg.lock.Unlock()
	defer func() {
		cg.lock.Lock()
		if cg.activeSession == sess {
			cg.activeSession = nil
		}
		cg.lock.Unlock()
	}()

	if err := handler.Setup(sess); err != nil {
		sess.close()
		_ = cg.leaveGroup(coordinator, joinResp.MemberID)
		return err
	}

	var wg sync.WaitGroup
	for _, claim := range sess.claimList() {
		wg.Add(1)
		claim := claim
		go func() {
			defer wg.Done()
			if err := handler.ConsumeClaim(sess, claim); err != nil {
				cg.sendErr(err)
			}
		}()
	}

	go withRecover(func() { cg.heartbeatLoop(coordinator, sess) })

	// the session ends on ctx cancellation, a heartbeat failure
	// (endWithRebalance), or Setup/external code cancelling it directly;
	// closing the session tears down the partition consumers, which
	// closes every claim's Messages channel so ConsumeClaim can return.
	<-sess.Context().Done()
	sess.close()
	wg.Wait()

	cleanupErr := handler.Cleanup(sess)
	if cleanupErr != nil {
		cg.sendErr(cleanupErr)
	}

	if sess.rebalanceErr == nil {
		_ = cg.leaveGroup(coordinator, joinResp.MemberID)
	}
	return nil
}

// consumeModern runs one generation under the KIP-848 ConsumerGroupHeartbeat
// protocol: a single RPC replaces JoinGroup/SyncGroup/Heartbeat, the broker
// computes assignment, and the member just reports back what it currently
// owns on every beat. There is no leader and no client-side assignor.
func (cg *consumerGroup) consumeModern(ctx context.Context, coordinator *Broker, subscribedTopics []string, handler ConsumerGroupHandler) (err error) {
	resp, err := cg.heartbeatModern(coordinator, "", 0, subscribedTopics, nil)
	if err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		return NewProtocolError(resp.Err, "ConsumerGroupHeartbeat")
	}
	memberID := resp.MemberID
	epoch := resp.MemberEpoch

	// the broker may not hand out an assignment on the very first beat;
	// keep beating at the interval it quotes until one arrives.
	for resp.Assignment == nil {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(heartbeatModernInterval(resp)):
		}
		resp, err = cg.heartbeatModern(coordinator, memberID, epoch, subscribedTopics, nil)
		if err != nil {
			return err
		}
		if resp.Err != ErrNoError {
			return NewProtocolError(resp.Err, "ConsumerGroupHeartbeat")
		}
		epoch = resp.MemberEpoch
	}

	assignment, err := cg.decodeModernAssignment(resp.Assignment)
	if err != nil {
		_ = cg.leaveGroupModern(coordinator, memberID, epoch)
		return err
	}

	cg.lock.Lock()
	cg.memberID = memberID
	cg.lock.Unlock()

	sess, err := cg.newSession(ctx, memberID, epoch, assignment)
	if err != nil {
		return err
	}
	cg.lock.Lock()
	cg.activeSession = sess
	cg.lock.Unlock()
	defer func() {
		cg.lock.Lock()
		if cg.activeSession == sess {
			cg.activeSession = nil
		}
		cg.lock.Unlock()
	}()

	if err := handler.Setup(sess); err != nil {
		sess.close()
		_ = cg.leaveGroupModern(coordinator, memberID, epoch)
		return err
	}

	var wg sync.WaitGroup
	for _, claim := range sess.claimList() {
		wg.Add(1)
		claim := claim
		go func() {
			defer wg.Done()
			if err := handler.ConsumeClaim(sess, claim); err != nil {
				cg.sendErr(err)
			}
		}()
	}

	go withRecover(func() { cg.heartbeatLoopModern(coordinator, sess, subscribedTopics, epoch) })

	<-sess.Context().Done()
	sess.close()
	wg.Wait()

	cleanupErr := handler.Cleanup(sess)
	if cleanupErr != nil {
		cg.sendErr(cleanupErr)
	}

	if sess.rebalanceErr == nil {
		_ = cg.leaveGroupModern(coordinator, memberID, epoch)
	}
	return nil
}

func heartbeatModernInterval(resp *ConsumerGroupHeartbeatResponse) time.Duration {
	if resp.HeartbeatInterval <= 0 {
		return time.Second
	}
	return time.Duration(resp.HeartbeatInterval) * time.Millisecond
}

// heartbeatModern sends one ConsumerGroupHeartbeatRequest, reporting owned
// as this member's current assignment (nil on the very first beat, before
// the broker has assigned anything).
func (cg *consumerGroup) heartbeatModern(coordinator *Broker, memberID string, epoch int32, subscribedTopics []string, owned *GroupMemberAssignment) (*ConsumerGroupHeartbeatResponse, error) {
	req := &ConsumerGroupHeartbeatRequest{
		GroupID:            cg.groupID,
		MemberID:           memberID,
		MemberEpoch:        epoch,
		RebalanceTimeoutMs: int32(cg.conf.Consumer.Group.Rebalance.Timeout / time.Millisecond),
	}
	if epoch == 0 {
		req.SubscribedTopicNames = subscribedTopics
	}
	if owned != nil {
		parts, err := cg.encodeModernOwnership(owned)
		if err != nil {
			return nil, err
		}
		req.TopicPartitions = parts
	}
	return coordinator.ConsumerGroupHeartbeat(req)
}

func (cg *consumerGroup) leaveGroupModern(coordinator *Broker, memberID string, epoch int32) error {
	req := &ConsumerGroupHeartbeatRequest{
		GroupID:     cg.groupID,
		MemberID:    memberID,
		MemberEpoch: -1,
	}
	_, err := coordinator.ConsumerGroupHeartbeat(req)
	return err
}

// heartbeatLoopModern keeps renewing this member's epoch. A changed
// assignment or a fatal error both end the session so the caller's next
// Consume call starts a fresh generation, matching consumeClassic's
// contract of one generation per call.
func (cg *consumerGroup) heartbeatLoopModern(coordinator *Broker, sess *consumerGroupSession, subscribedTopics []string, epoch int32) {
	owned := &GroupMemberAssignment{Version: 0, Topics: sess.claims}
	ticker := time.NewTicker(cg.conf.Consumer.Group.Heartbeat.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			resp, err := cg.heartbeatModern(coordinator, sess.memberID, epoch, subscribedTopics, owned)
			if err != nil {
				cg.sendErr(err)
				sess.endWithRebalance(err)
				return
			}
			switch resp.Err {
			case ErrNoError:
			case ErrRebalanceInProgress, ErrUnknownMemberId, ErrFencedMemberEpoch:
				sess.endWithRebalance(NewProtocolError(resp.Err, "ConsumerGroupHeartbeat"))
				return
			default:
				cg.sendErr(NewProtocolError(resp.Err, "ConsumerGroupHeartbeat"))
				sess.endWithRebalance(NewProtocolError(resp.Err, "ConsumerGroupHeartbeat"))
				return
			}
			epoch = resp.MemberEpoch
			if resp.Assignment != nil {
				// the broker is proposing a different assignment than this
				// session was built with; end it so the caller rejoins and
				// newSession picks up the new claims.
				sess.endWithRebalance(errTopicSubscriptionChanged)
				return
			}
		}
	}
}

// encodeModernOwnership converts a GroupMemberAssignment's topic/partition
// map into the topic-ID-addressed shape ConsumerGroupHeartbeatRequest wants
// on the wire.
func (cg *consumerGroup) encodeModernOwnership(a *GroupMemberAssignment) ([]ConsumerGroupHeartbeatTopicPartitions, error) {
	out := make([]ConsumerGroupHeartbeatTopicPartitions, 0, len(a.Topics))
	for topic, partitions := range a.Topics {
		id, err := cg.client.TopicID(topic)
		if err != nil {
			return nil, err
		}
		out = append(out, ConsumerGroupHeartbeatTopicPartitions{TopicID: id, Partitions: partitions})
	}
	return out, nil
}

// decodeModernAssignment resolves the broker's topic-ID-addressed
// assignment back into topic names, which every other part of this client
// (PartitionConsumer, OffsetManager) keys on.
func (cg *consumerGroup) decodeModernAssignment(a *ConsumerGroupHeartbeatAssignment) (*GroupMemberAssignment, error) {
	topics := make(map[string][]int32, len(a.TopicPartitions))
	for _, tp := range a.TopicPartitions {
		name, err := cg.topicNameByID(tp.TopicID)
		if err != nil {
			return nil, err
		}
		topics[name] = tp.Partitions
	}
	return &GroupMemberAssignment{Version: 0, Topics: topics}, nil
}

// topicNameByID resolves a topic UUID against every topic this client
// currently has metadata cached for. ConsumerGroupHeartbeat only ever
// assigns topics this member subscribed to by name, so its metadata is
// already warm.
func (cg *consumerGroup) topicNameByID(id [16]byte) (string, error) {
	topics, err := cg.client.Topics()
	if err != nil {
		return "", err
	}
	for _, topic := range topics {
		topicID, err := cg.client.TopicID(topic)
		if err != nil {
			continue
		}
		if topicID == id {
			return topic, nil
		}
	}
	return "", fmt.Errorf("kafka: consumer group heartbeat assigned unknown topic ID %x", id)
}

func (cg *consumerGroup) groupProtocolVersion() int16 {
	switch {
	case cg.conf.Version.IsAtLeast(V2_3_0_0):
		return 5
	case cg.conf.Version.IsAtLeast(V2_0_0_0):
		return 3
	case cg.conf.Version.IsAtLeast(V0_11_0_0):
		return 1
	default:
		return 0
	}
}

func (cg *consumerGroup) joinGroup(coordinator *Broker, topics []string) (*JoinGroupResponse, error) {
	meta := GroupMemberMetadata{Version: 0, Topics: topics}
	metaBytes, err := meta.encode()
	if err != nil {
		return nil, err
	}

	cg.lock.Lock()
	memberID := cg.memberID
	cg.lock.Unlock()

	req := &JoinGroupRequest{
		Version:          coordinator.negotiatedVersion(apiKeyJoinGroup, cg.groupProtocolVersion()),
		GroupID:          cg.groupID,
		SessionTimeout:   cg.conf.Consumer.Group.Session.Timeout,
		RebalanceTimeout: cg.conf.Consumer.Group.Rebalance.Timeout,
		MemberID:         memberID,
		ProtocolType:     "consumer",
		GroupProtocols: []GroupProtocol{
			{Name: cg.conf.Consumer.Group.Rebalance.Strategy.Name(), Metadata: metaBytes},
		},
	}

	resp, err := coordinator.JoinGroup(req)
	if err != nil {
		return nil, err
	}
	if resp.Err != ErrNoError {
		return nil, NewProtocolError(resp.Err, "JoinGroup")
	}
	return resp, nil
}

// balance runs on whichever member JoinGroup names as leader: decode every
// member's subscription metadata and compute the assignment plan.
func (cg *consumerGroup) balance(joinResp *JoinGroupResponse, topics []string) (BalanceStrategyPlan, error) {
	members := make(map[string]GroupMemberMetadata, len(joinResp.Members))
	topicSet := make(map[string]bool)
	for _, m := range joinResp.Members {
		var meta GroupMemberMetadata
		if err := meta.decode(m.Metadata); err != nil {
			return nil, err
		}
		members[m.MemberID] = meta
		for _, t := range meta.Topics {
			topicSet[t] = true
		}
	}

	topicPartitions := make(map[string][]int32, len(topicSet))
	for topic := range topicSet {
		partitions, err := cg.client.Partitions(topic)
		if err != nil {
			return nil, err
		}
		topicPartitions[topic] = partitions
	}

	return cg.conf.Consumer.Group.Rebalance.Strategy.Plan(members, topicPartitions)
}

func (cg *consumerGroup) syncGroup(coordinator *Broker, joinResp *JoinGroupResponse, plan BalanceStrategyPlan) (*GroupMemberAssignment, error) {
	req := &SyncGroupRequest{
		Version:      coordinator.negotiatedVersion(apiKeySyncGroup, cg.groupProtocolVersion()),
		GroupID:      cg.groupID,
		GenerationID: joinResp.GenerationID,
		MemberID:     joinResp.MemberID,
		ProtocolType: strPtr("consumer"),
		ProtocolName: strPtr(joinResp.GroupProtocol),
	}

	if joinResp.LeaderID == joinResp.MemberID {
		for memberID, topicPartitions := range plan {
			assign := GroupMemberAssignment{Version: 0, Topics: topicPartitions}
			assignBytes, err := assign.encode()
			if err != nil {
				return nil, err
			}
			req.GroupAssignments = append(req.GroupAssignments, SyncGroupAssignment{
				MemberID:   memberID,
				Assignment: assignBytes,
			})
		}
	}

	resp, err := coordinator.SyncGroup(req)
	if err != nil {
		return nil, err
	}
	if resp.Err != ErrNoError {
		return nil, NewProtocolError(resp.Err, "SyncGroup")
	}

	var assignment GroupMemberAssignment
	if err := assignment.decode(resp.MemberAssignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (cg *consumerGroup) leaveGroup(coordinator *Broker, memberID string) error {
	req := &LeaveGroupRequest{
		Version:  coordinator.negotiatedVersion(apiKeyLeaveGroup, cg.groupProtocolVersion()),
		GroupID:  cg.groupID,
		MemberID: memberID,
	}
	if req.Version >= 3 {
		req.Members = []LeaveGroupMember{{MemberID: memberID}}
	}
	_, err := coordinator.LeaveGroup(req)
	return err
}

func (cg *consumerGroup) heartbeatLoop(coordinator *Broker, sess *consumerGroupSession) {
	ticker := time.NewTicker(cg.conf.Consumer.Group.Heartbeat.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			req := &HeartbeatRequest{
				Version:      coordinator.negotiatedVersion(apiKeyHeartbeat, cg.groupProtocolVersion()),
				GroupID:      cg.groupID,
				GenerationID: sess.generationID,
				MemberID:     sess.memberID,
			}
			resp, err := coordinator.Heartbeat(req)
			if err != nil {
				cg.sendErr(err)
				sess.endWithRebalance(err)
				return
			}
			switch resp.Err {
			case ErrNoError:
				continue
			case ErrRebalanceInProgress, ErrIllegalGeneration, ErrUnknownMemberId:
				sess.endWithRebalance(NewProtocolError(resp.Err, "Heartbeat"))
				return
			default:
				cg.sendErr(NewProtocolError(resp.Err, "Heartbeat"))
				sess.endWithRebalance(NewProtocolError(resp.Err, "Heartbeat"))
				return
			}
		}
	}
}

func (cg *consumerGroup) eachActiveClaim(topics map[string][]int32, fn func(*consumerGroupClaim)) {
	cg.lock.Lock()
	sess := cg.activeSession
	cg.lock.Unlock()
	if sess == nil {
		return
	}
	for _, c := range sess.claimsList {
		claim := c.(*consumerGroupClaim)
		if topics == nil {
			fn(claim)
			continue
		}
		for _, p := range topics[claim.topic] {
			if p == claim.partition {
				fn(claim)
				break
			}
		}
	}
}

func (cg *consumerGroup) Pause(partitions map[string][]int32) {
	cg.eachActiveClaim(partitions, func(c *consumerGroupClaim) { c.pc.Pause() })
}

func (cg *consumerGroup) Resume(partitions map[string][]int32) {
	cg.eachActiveClaim(partitions, func(c *consumerGroupClaim) { c.pc.Resume() })
}

func (cg *consumerGroup) PauseAll() {
	cg.eachActiveClaim(nil, func(c *consumerGroupClaim) { c.pc.Pause() })
}

func (cg *consumerGroup) ResumeAll() {
	cg.eachActiveClaim(nil, func(c *consumerGroupClaim) { c.pc.Resume() })
}

type consumerGroupSession struct {
	parent       *consumerGroup
	memberID     string
	generationID int32
	claims       map[string][]int32

	consumer Consumer
	om       OffsetManager

	ctx        context.Context
	cancel     context.CancelFunc
	rebalanceErr error
	once       sync.Once

	claimsList []ConsumerGroupClaim
}

func (cg *consumerGroup) newSession(parentCtx context.Context, memberID string, generationID int32, assignment *GroupMemberAssignment) (*consumerGroupSession, error) {
	consumerImpl, err := NewConsumerFromClient(cg.client)
	if err != nil {
		return nil, err
	}
	om, err := NewOffsetManagerFromClient(cg.groupID, cg.client)
	if err != nil {
		_ = consumerImpl.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(parentCtx)
	sess := &consumerGroupSession{
		parent:       cg,
		memberID:     memberID,
		generationID: generationID,
		claims:       assignment.Topics,
		consumer:     consumerImpl,
		om:           om,
		ctx:          ctx,
		cancel:       cancel,
	}

	for topic, partitions := range assignment.Topics {
		for _, partition := range partitions {
			pom, err := om.ManagePartition(topic, partition)
			if err != nil {
				sess.close()
				return nil, err
			}
			offset, _, err := pom.NextOffset()
			if err != nil {
				sess.close()
				return nil, err
			}
			pc, err := consumerImpl.ConsumePartition(topic, partition, offset)
			if err != nil {
				sess.close()
				return nil, err
			}
			sess.claimsList = append(sess.claimsList, &consumerGroupClaim{
				topic: topic, partition: partition, initialOffset: offset, pc: pc,
			})
		}
	}

	go func() {
		<-ctx.Done()
		om.Commit()
	}()

	return sess, nil
}

func (sess *consumerGroupSession) claimList() []ConsumerGroupClaim { return sess.claimsList }

func (sess *consumerGroupSession) Claims() map[string][]int32 { return sess.claims }
func (sess *consumerGroupSession) MemberID() string            { return sess.memberID }
func (sess *consumerGroupSession) GenerationID() int32          { return sess.generationID }
func (sess *consumerGroupSession) Context() context.Context    { return sess.ctx }

func (sess *consumerGroupSession) partitionOffsetManager(topic string, partition int32) *partitionOffsetManager {
	om := sess.om.(*offsetManager)
	om.lock.Lock()
	defer om.lock.Unlock()
	return om.poms[topic][partition]
}

func (sess *consumerGroupSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {
	if pom := sess.partitionOffsetManager(topic, partition); pom != nil {
		pom.MarkOffset(offset, metadata)
	}
}

func (sess *consumerGroupSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {
	if pom := sess.partitionOffsetManager(topic, partition); pom != nil {
		pom.ResetOffset(offset, metadata)
	}
}

func (sess *consumerGroupSession) Commit() { sess.om.Commit() }

func (sess *consumerGroupSession) endWithRebalance(err error) {
	sess.once.Do(func() {
		sess.rebalanceErr = err
		sess.cancel()
	})
}

func (sess *consumerGroupSession) close() {
	sess.once.Do(func() { sess.cancel() })
	for _, claim := range sess.claimsList {
		_ = claim.(*consumerGroupClaim).pc.Close()
	}
	_ = sess.om.Close()
	_ = sess.consumer.Close()
}

type consumerGroupClaim struct {
	topic         string
	partition     int32
	initialOffset int64
	pc            PartitionConsumer
}

func (c *consumerGroupClaim) Topic() string     { return c.topic }
func (c *consumerGroupClaim) Partition() int32  { return c.partition }
func (c *consumerGroupClaim) InitialOffset() int64 { return c.initialOffset }
func (c *consumerGroupClaim) HighWaterMarkOffset() int64 { return c.pc.HighWaterMarkOffset() }
func (c *consumerGroupClaim) Messages() <-chan *ConsumerMessage { return c.pc.Messages() }

func strPtr(s string) *string { return &s }
