package gokafka

import (
	"fmt"
	"sync"
	"time"
)

// OffsetManager tracks committed offsets for a consumer group the way the
// low-level Consumer tracks fetch positions: one PartitionOffsetManager per
// topic/partition, with a single autocommit ticker on the OffsetManager
// committing all of them together.
// ConsumerGroup uses one internally per claimed partition; it is also
// usable standalone for callers who want manual offset tracking without
// the rest of the group-membership machinery.
type OffsetManager interface {
	ManagePartition(topic string, partition int32) (PartitionOffsetManager, error)
	Close() error
	Commit()
}

type offsetManager struct {
	client Client
	conf   *Config
	group  string

	lock sync.Mutex
	poms map[string]map[int32]*partitionOffsetManager

	closeOnce sync.Once
	closing   chan struct{}
}

// NewOffsetManagerFromClient builds an OffsetManager for group on a
// caller-owned Client, mirroring NewOffsetManagerFromClient.
func NewOffsetManagerFromClient(group string, client Client) (OffsetManager, error) {
	if client.Closed() {
		return nil, ErrClosedClient
	}
	om := &offsetManager{
		client:  client,
		conf:    client.Config(),
		group:   group,
		poms:    make(map[string]map[int32]*partitionOffsetManager),
		closing: make(chan struct{}),
	}
	if om.conf.Consumer.Offsets.AutoCommit.Enable {
		go withRecover(om.autocommitLoop)
	}
	return om, nil
}

func (om *offsetManager) ManagePartition(topic string, partition int32) (PartitionOffsetManager, error) {
	om.lock.Lock()
	defer om.lock.Unlock()

	topicManagers := om.poms[topic]
	if topicManagers == nil {
		topicManagers = make(map[int32]*partitionOffsetManager)
		om.poms[topic] = topicManagers
	}
	if _, ok := topicManagers[partition]; ok {
		return nil, ConfigurationError("kafka: partition already managed")
	}

	pom, err := om.newPartitionOffsetManager(topic, partition)
	if err != nil {
		return nil, err
	}
	topicManagers[partition] = pom
	return pom, nil
}

func (om *offsetManager) autocommitLoop() {
	ticker := time.NewTicker(om.conf.Consumer.Offsets.AutoCommit.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			om.Commit()
		case <-om.closing:
			return
		}
	}
}

func (om *offsetManager) Commit() {
	om.lock.Lock()
	defer om.lock.Unlock()

	for topic, partitions := range om.poms {
		for partition, pom := range partitions {
			if err := pom.commit(); err != nil {
				Logger.Printf("offsets: commit failed for %s/%d: %v\n", topic, partition, err)
			}
		}
	}
}

func (om *offsetManager) Close() error {
	om.closeOnce.Do(func() {
		close(om.closing)
		om.Commit()
	})
	return nil
}

// PartitionOffsetManager tracks, and periodically commits, the consume
// position for one topic/partition within a consumer group.
type PartitionOffsetManager interface {
	// NextOffset returns the offset to resume consuming from, plus any
	// metadata a previous commit attached to it. When this partition has
	// never had an offset committed under the group, the result is
	// governed by Config.Consumer.Offsets.AutoReset: earliest/latest
	// resolve to the log's current bounds, fail returns a *UserError.
	NextOffset() (int64, string, error)

	// MarkOffset records offset as given (the next offset to consume),
	// with optional metadata, for the next autocommit or explicit Commit
	// to flush. An offset lower than the one already marked is ignored.
	MarkOffset(offset int64, metadata string)

	// ResetOffset sets the tracked position unconditionally, e.g. to
	// rewind after reprocessing a failed batch; unlike MarkOffset it
	// accepts an offset lower than the one already marked.
	ResetOffset(offset int64, metadata string)

	Errors() <-chan *ConsumerError

	AsyncClose()
	Close() error
}

type offsetStamp struct {
	offset   int64
	metadata string
}

type partitionOffsetManager struct {
	parent    *offsetManager
	topic     string
	partition int32

	lock           sync.Mutex
	clean          offsetStamp // last offset successfully committed
	dirty          offsetStamp // last offset marked, may be uncommitted
	dirtyIsSet     bool
	releaseOnce    sync.Once
	errors         chan *ConsumerError
}

func (om *offsetManager) newPartitionOffsetManager(topic string, partition int32) (*partitionOffsetManager, error) {
	pom := &partitionOffsetManager{
		parent:    om,
		topic:     topic,
		partition: partition,
		errors:    make(chan *ConsumerError, om.conf.ChannelBufferSize),
	}

	offset, metadata, err := pom.fetchInitialOffset()
	if err != nil {
		return nil, err
	}
	pom.clean = offsetStamp{offset: offset, metadata: metadata}
	return pom, nil
}

func (pom *partitionOffsetManager) fetchInitialOffset() (int64, string, error) {
	req := &OffsetFetchRequest{ConsumerGroup: pom.parent.group}
	req.AddPartition(pom.topic, pom.partition)

	coordinator, err := pom.parent.client.Coordinator(pom.parent.group)
	if err != nil {
		return 0, "", err
	}
	resp, err := coordinator.FetchOffset(req)
	if err != nil {
		return 0, "", err
	}
	block := resp.GetBlock(pom.topic, pom.partition)
	if block == nil {
		return 0, "", ErrIncompleteResponse
	}
	if block.Err != ErrNoError {
		return 0, "", block.Err
	}
	return block.Offset, block.Metadata, nil
}

func (pom *partitionOffsetManager) NextOffset() (int64, string, error) {
	pom.lock.Lock()
	defer pom.lock.Unlock()
	if pom.dirtyIsSet {
		if pom.dirty.offset >= 0 {
			return pom.dirty.offset, pom.dirty.metadata, nil
		}
	}
	if pom.clean.offset >= 0 {
		return pom.clean.offset, pom.clean.metadata, nil
	}
	return pom.resetOnMissingCommit()
}

// resetOnMissingCommit resolves the starting offset for a partition that has
// never had an offset committed under this group, per
// Config.Consumer.Offsets.AutoReset.
func (pom *partitionOffsetManager) resetOnMissingCommit() (int64, string, error) {
	switch pom.parent.conf.Consumer.Offsets.AutoReset {
	case OffsetResetEarliest:
		offset, err := pom.parent.client.GetOffset(pom.topic, pom.partition, OffsetOldest)
		return offset, "", err
	case OffsetResetLatest:
		offset, err := pom.parent.client.GetOffset(pom.topic, pom.partition, OffsetNewest)
		return offset, "", err
	default:
		return 0, "", &UserError{Message: fmt.Sprintf(
			"no committed offset for %s/%d in group %s", pom.topic, pom.partition, pom.parent.group)}
	}
}

func (pom *partitionOffsetManager) MarkOffset(offset int64, metadata string) {
	pom.lock.Lock()
	defer pom.lock.Unlock()
	if offset > pom.dirty.offset || !pom.dirtyIsSet {
		pom.dirty = offsetStamp{offset: offset, metadata: metadata}
		pom.dirtyIsSet = true
	}
}

func (pom *partitionOffsetManager) ResetOffset(offset int64, metadata string) {
	pom.lock.Lock()
	defer pom.lock.Unlock()
	pom.dirty = offsetStamp{offset: offset, metadata: metadata}
	pom.dirtyIsSet = true
}

func (pom *partitionOffsetManager) Errors() <-chan *ConsumerError {
	return pom.errors
}

func (pom *partitionOffsetManager) commit() error {
	pom.lock.Lock()
	if !pom.dirtyIsSet || pom.dirty == pom.clean {
		pom.lock.Unlock()
		return nil
	}
	toCommit := pom.dirty
	pom.lock.Unlock()

	coordinator, err := pom.parent.client.Coordinator(pom.parent.group)
	if err != nil {
		return err
	}

	req := &OffsetCommitRequest{
		Version:       coordinator.negotiatedVersion(apiKeyOffsetCommit, 2),
		ConsumerGroup: pom.parent.group,
	}
	req.AddBlock(pom.topic, pom.partition, toCommit.offset, 0, toCommit.metadata)

	resp, err := coordinator.CommitOffset(req)
	if err != nil {
		return err
	}
	kerr := resp.Errored(pom.topic, pom.partition)
	if kerr != ErrNoError {
		select {
		case pom.errors <- &ConsumerError{Topic: pom.topic, Partition: pom.partition, Err: NewProtocolError(kerr, "OffsetCommit")}:
		default:
		}
		if isRetriableGroupCoordinatorError(kerr) {
			_ = pom.parent.client.RefreshCoordinator(pom.parent.group)
		}
		return kerr
	}

	pom.lock.Lock()
	pom.clean = toCommit
	pom.lock.Unlock()
	return nil
}

func (pom *partitionOffsetManager) AsyncClose() {
	pom.releaseOnce.Do(func() {
		pom.parent.lock.Lock()
		delete(pom.parent.poms[pom.topic], pom.partition)
		pom.parent.lock.Unlock()
	})
}

func (pom *partitionOffsetManager) Close() error {
	pom.AsyncClose()
	return pom.commit()
}
