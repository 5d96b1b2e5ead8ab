package gokafka

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"go.opentelemetry.io/otel/attribute"

	"github.com/google/uuid"
)

// PartitionMetadata is the client-facing view of one partition's current
// leader/replica assignment, derived from a MetadataResponse block.
type PartitionMetadata struct {
	ID              int32
	Leader          int32
	LeaderEpoch     int32
	Replicas        []int32
	ISR             []int32
	OfflineReplicas []int32
	Err             KError
}

// TopicMetadata is the client-facing view of one topic's metadata. ID
// mirrors the real Kafka topic-id field (KIP-516).
type TopicMetadata struct {
	Name       string
	ID         uuid.UUID
	IsInternal bool
	Partitions []PartitionMetadata
	Err        KError
}

// Client is the base client every higher-level component (Consumer,
// Producer, ClusterAdmin) is built on: bootstrap, cluster metadata cache
// with TTL and forced refresh, broker connection lookup, and the
// single entry point for invoking any API with retry.
type Client interface {
	Config() *Config
	Controller() (*Broker, error)
	RefreshController() (*Broker, error)
	Brokers() []*Broker
	Broker(brokerID int32) (*Broker, error)
	Topics() ([]string, error)
	Partitions(topic string) ([]int32, error)
	TopicID(topic string) ([16]byte, error)
	Leader(topic string, partition int32) (*Broker, error)
	LeaderAndEpoch(topic string, partition int32) (*Broker, int32, error)
	Replicas(topic string, partition int32) ([]int32, error)
	InSyncReplicas(topic string, partition int32) ([]int32, error)
	RefreshMetadata(topics ...string) error
	RefreshFullMetadata() error
	TopicMetadata(topics ...string) ([]*TopicMetadata, error)
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Coordinator(group string) (*Broker, error)
	RefreshCoordinator(group string) error
	Closed() bool
	Close() error
}

type topicPartitionMeta struct {
	id         uuid.UUID
	isInternal bool
	partitions map[int32]*PartitionMetadata
	fetchedAt  time.Time
	err        KError
}

type client struct {
	conf *Config

	lock sync.RWMutex

	pool *brokerPool

	controllerID int32
	coordinators map[string]int32

	metadataCache *lru.Cache // topic -> *topicPartitionMeta

	// inflight dedupes concurrent force-refreshes of the same topic set,
	// keyed by an xxhash fingerprint of the sorted topic list (single
	// flight pattern: a goroutine either starts the refresh or waits on
	// one that's already running).
	inflight   map[uint64]chan struct{}
	inflightMu sync.Mutex

	closed int32
}

// NewClient bootstraps against addrs, fetching an initial full metadata
// snapshot before returning, matching the NewClient contract
// where a client is never returned half-initialized.
func NewClient(addrs []string, conf *Config) (Client, error) {
	if conf == nil {
		conf = NewConfig()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, ConfigurationError("at least one broker address is required")
	}

	cache, err := lru.New(4096)
	if err != nil {
		return nil, err
	}

	c := &client{
		conf:          conf,
		pool:          newBrokerPool(conf),
		controllerID:  -1,
		coordinators:  make(map[string]int32),
		metadataCache: cache,
		inflight:      make(map[uint64]chan struct{}),
	}

	for _, addr := range addrs {
		c.pool.addSeed(addr)
	}

	if err := c.RefreshFullMetadata(); err != nil {
		_ = c.Close()
		return nil, err
	}

	if conf.Metadata.RefreshFrequency > 0 {
		go withRecover(c.backgroundMetadataRefresher)
	}

	return c, nil
}

func (c *client) backgroundMetadataRefresher() {
	ticker := time.NewTicker(c.conf.Metadata.RefreshFrequency)
	defer ticker.Stop()
	for range ticker.C {
		if c.Closed() {
			return
		}
		if err := c.RefreshFullMetadata(); err != nil {
			Logger.Printf("kafka: background metadata refresh failed: %v\n", err)
		}
	}
}

func (c *client) Config() *Config { return c.conf }

func (c *client) Closed() bool { return atomic.LoadInt32(&c.closed) == 1 }

func (c *client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return ErrClosedClient
	}
	return c.pool.close()
}

// anyOpenBroker returns any connected broker, opening a seed broker if
// none is connected yet — the bootstrap case before any Metadata response
// has resolved node IDs. Dialing goes through the connection pool's
// per-broker circuit breaker so a cluster that's wholesale down fails
// fast instead of re-dialing every broker on every call.
func (c *client) anyOpenBroker() (*Broker, error) {
	return c.pool.getFirstAvailable()
}

// invokeWithRetry runs fn against a live broker, retrying transient
// failures with jittered exponential backoff (cenkalti/backoff/v4) up to
// conf.Metadata.Retry.Max retries after the first attempt.
func (c *client) invokeWithRetry(fn func(*Broker) error) error {
	policy := backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(c.conf.Metadata.Retry.Backoff),
		),
		uint64(c.conf.Metadata.Retry.Max),
	)

	return backoff.Retry(func() error {
		b, err := c.anyOpenBroker()
		if err != nil {
			return err
		}
		err = fn(b)
		if err != nil && !canRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (c *client) registerBroker(nodeID int32, host string, port int32) *Broker {
	addr := fmt.Sprintf("%s:%d", host, port)
	return c.pool.register(nodeID, addr)
}

func (c *client) Broker(brokerID int32) (*Broker, error) {
	return c.pool.get(brokerID)
}

func (c *client) Brokers() []*Broker {
	out := c.pool.all()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (c *client) Controller() (*Broker, error) {
	c.lock.RLock()
	id := c.controllerID
	c.lock.RUnlock()
	if id < 0 {
		if err := c.RefreshFullMetadata(); err != nil {
			return nil, err
		}
		c.lock.RLock()
		id = c.controllerID
		c.lock.RUnlock()
	}
	if id < 0 {
		return nil, fmt.Errorf("kafka: no controller currently elected")
	}
	return c.Broker(id)
}

func (c *client) RefreshController() (*Broker, error) {
	if err := c.RefreshFullMetadata(); err != nil {
		return nil, err
	}
	return c.Controller()
}

// fingerprint hashes a sorted topic list for the single-flight dedup key.
func fingerprint(topics []string) uint64 {
	sorted := append([]string(nil), topics...)
	sort.Strings(sorted)
	return xxhash.Sum64String(strings.Join(sorted, "\x00"))
}

func (c *client) RefreshFullMetadata() error {
	return c.refreshMetadata(nil, true)
}

func (c *client) RefreshMetadata(topics ...string) error {
	return c.refreshMetadata(topics, false)
}

// refreshMetadata fetches a fresh MetadataResponse, deduping concurrent
// calls for the same topic set via the inflight single-flight map so a
// thundering herd of partition consumers hitting NOT_LEADER_FOR_PARTITION
// at once doesn't each fire their own Metadata request.
func (c *client) refreshMetadata(topics []string, full bool) (err error) {
	_, endSpan := startSpan(context.Background(), "gokafka.RefreshMetadata",
		attribute.Bool("gokafka.full", full), attribute.Int("gokafka.topic_count", len(topics)))
	defer func() { endSpan(err) }()

	key := fingerprint(topics)
	if full {
		key = 0
	}

	c.inflightMu.Lock()
	if ch, ok := c.inflight[key]; ok {
		c.inflightMu.Unlock()
		<-ch
		return nil
	}
	done := make(chan struct{})
	c.inflight[key] = done
	c.inflightMu.Unlock()

	defer func() {
		c.inflightMu.Lock()
		delete(c.inflight, key)
		c.inflightMu.Unlock()
		close(done)
	}()

	var resp *MetadataResponse
	err = c.invokeWithRetry(func(b *Broker) error {
		req := &MetadataRequest{Version: b.negotiatedVersion(apiKeyMetadata, MaxMetadataVersion), AllowAutoTopicCreation: false}
		if !full {
			req.Topics = topics
		}
		r, err := b.GetMetadata(req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return err
	}

	c.applyMetadata(resp)
	return nil
}

// MaxMetadataVersion is the highest Metadata request version this client
// encodes; broker.negotiatedVersion clamps it down when talking to an
// older broker.
const MaxMetadataVersion int16 = 9

func (c *client) applyMetadata(resp *MetadataResponse) {
	for _, br := range resp.Brokers {
		c.pool.register(br.NodeID, fmt.Sprintf("%s:%d", br.Host, br.Port))
	}

	c.lock.Lock()
	if resp.ControllerID >= 0 {
		c.controllerID = resp.ControllerID
	}
	c.lock.Unlock()

	now := time.Now()
	for _, t := range resp.Topics {
		partitions := make(map[int32]*PartitionMetadata, len(t.Partitions))
		for _, p := range t.Partitions {
			partitions[p.PartitionID] = &PartitionMetadata{
				ID:              p.PartitionID,
				Leader:          p.Leader,
				LeaderEpoch:     p.LeaderEpoch,
				Replicas:        p.Replicas,
				ISR:             p.ISR,
				OfflineReplicas: p.OfflineReplicas,
				Err:             p.Err,
			}
		}
		c.metadataCache.Add(t.Name, &topicPartitionMeta{
			id:         uuid.UUID(t.TopicID),
			isInternal: t.IsInternal,
			partitions: partitions,
			fetchedAt:  now,
			err:        t.Err,
		})
	}
}

// cachedTopic returns this topic's cached partition map, fetching fresh
// metadata first if it's missing or older than Metadata.RefreshFrequency.
func (c *client) cachedTopic(topic string) (*topicPartitionMeta, error) {
	if v, ok := c.metadataCache.Get(topic); ok {
		entry := v.(*topicPartitionMeta)
		if c.conf.Metadata.RefreshFrequency == 0 || time.Since(entry.fetchedAt) < c.conf.Metadata.RefreshFrequency {
			return entry, nil
		}
	}
	if err := c.RefreshMetadata(topic); err != nil {
		return nil, err
	}
	v, ok := c.metadataCache.Get(topic)
	if !ok {
		return nil, fmt.Errorf("kafka: topic %s not found", topic)
	}
	entry := v.(*topicPartitionMeta)
	if entry.err != ErrNoError {
		return nil, NewProtocolError(entry.err, "metadata: topic "+topic)
	}
	return entry, nil
}

func (c *client) Topics() ([]string, error) {
	if err := c.RefreshFullMetadata(); err != nil {
		return nil, err
	}
	keys := c.metadataCache.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.(string))
	}
	sort.Strings(out)
	return out, nil
}

func (c *client) Partitions(topic string) ([]int32, error) {
	entry, err := c.cachedTopic(topic)
	if err != nil {
		return nil, err
	}
	out := make([]int32, 0, len(entry.partitions))
	for id := range entry.partitions {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// TopicID returns the cluster-assigned UUID Kafka uses to refer to this
// topic on wire protocols that address topics by ID rather than by name
// (the KIP-848 consumer-group heartbeat among them).
func (c *client) TopicID(topic string) ([16]byte, error) {
	entry, err := c.cachedTopic(topic)
	if err != nil {
		return [16]byte{}, err
	}
	return [16]byte(entry.id), nil
}

func (c *client) partition(topic string, partition int32) (*PartitionMetadata, error) {
	entry, err := c.cachedTopic(topic)
	if err != nil {
		return nil, err
	}
	p, ok := entry.partitions[partition]
	if !ok {
		return nil, fmt.Errorf("kafka: partition %d not found for topic %s", partition, topic)
	}
	return p, nil
}

func (c *client) Leader(topic string, partition int32) (*Broker, error) {
	b, _, err := c.LeaderAndEpoch(topic, partition)
	return b, err
}

func (c *client) LeaderAndEpoch(topic string, partition int32) (*Broker, int32, error) {
	p, err := c.partition(topic, partition)
	if err != nil {
		return nil, invalidLeaderEpoch, err
	}
	if p.Err == ErrLeaderNotAvailable || p.Err == ErrNotLeaderForPartition {
		if err := c.RefreshMetadata(topic); err != nil {
			return nil, invalidLeaderEpoch, err
		}
		p, err = c.partition(topic, partition)
		if err != nil {
			return nil, invalidLeaderEpoch, err
		}
	}
	b, err := c.Broker(p.Leader)
	if err != nil {
		return nil, invalidLeaderEpoch, err
	}
	return b, p.LeaderEpoch, nil
}

func (c *client) Replicas(topic string, partition int32) ([]int32, error) {
	p, err := c.partition(topic, partition)
	if err != nil {
		return nil, err
	}
	return p.Replicas, nil
}

func (c *client) InSyncReplicas(topic string, partition int32) ([]int32, error) {
	p, err := c.partition(topic, partition)
	if err != nil {
		return nil, err
	}
	return p.ISR, nil
}

func (c *client) TopicMetadata(topics ...string) ([]*TopicMetadata, error) {
	if err := c.refreshMetadata(topics, len(topics) == 0); err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		topics, _ = c.Topics()
	}
	out := make([]*TopicMetadata, 0, len(topics))
	for _, topic := range topics {
		entry, err := c.cachedTopic(topic)
		if err != nil {
			out = append(out, &TopicMetadata{Name: topic, Err: ErrUnknownTopicOrPartition})
			continue
		}
		tm := &TopicMetadata{Name: topic, ID: entry.id, IsInternal: entry.isInternal, Err: entry.err}
		for _, p := range entry.partitions {
			tm.Partitions = append(tm.Partitions, *p)
		}
		sort.Slice(tm.Partitions, func(i, j int) bool { return tm.Partitions[i].ID < tm.Partitions[j].ID })
		out = append(out, tm)
	}
	return out, nil
}

func (c *client) GetOffset(topic string, partition int32, timestamp int64) (int64, error) {
	b, _, err := c.LeaderAndEpoch(topic, partition)
	if err != nil {
		return -1, err
	}

	req := &ListOffsetsRequest{Version: b.negotiatedVersion(apiKeyListOffsets, 2), ReplicaID: -1}
	req.AddBlock(topic, partition, timestamp, 1)

	resp, err := b.GetAvailableOffsets(req)
	if err != nil {
		return -1, err
	}
	block := resp.GetBlock(topic, partition)
	if block == nil {
		return -1, ErrIncompleteResponse
	}
	if block.Err != ErrNoError {
		return -1, block.Err
	}
	if req.Version == 0 && len(block.Offsets) > 0 {
		return block.Offsets[0], nil
	}
	return block.Offset, nil
}

func (c *client) Coordinator(group string) (*Broker, error) {
	c.lock.RLock()
	id, ok := c.coordinators[group]
	c.lock.RUnlock()
	if ok {
		if b, err := c.Broker(id); err == nil {
			return b, nil
		}
	}
	if err := c.RefreshCoordinator(group); err != nil {
		return nil, err
	}
	c.lock.RLock()
	id = c.coordinators[group]
	c.lock.RUnlock()
	return c.Broker(id)
}

func (c *client) RefreshCoordinator(group string) error {
	var resp *FindCoordinatorResponse
	err := c.invokeWithRetry(func(b *Broker) error {
		req := &FindCoordinatorRequest{
			Version:         b.negotiatedVersion(apiKeyFindCoordinator, 2),
			CoordinatorKey:  group,
			CoordinatorType: CoordinatorGroup,
		}
		r, err := b.FindCoordinator(req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		return NewProtocolError(resp.Err, "find coordinator: group "+group)
	}

	c.registerBroker(resp.NodeID, resp.Host, resp.Port)

	c.lock.Lock()
	c.coordinators[group] = resp.NodeID
	c.lock.Unlock()
	return nil
}

// nopCloserClient wraps a Client so Close() is a no-op — used when a
// higher-level component (NewConsumerFromClient, NewProducerFromClient)
// is handed a client it doesn't own and must not close out from under the
// caller. NewClusterAdminFromClient does not wrap its client: closing the
// admin closes the client too.
type nopCloserClient struct {
	Client
}

func (ncc *nopCloserClient) Close() error { return nil }
