//go:build !functional

package gokafka

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	lru "github.com/hashicorp/golang-lru"
)

func newTestClient(t *testing.T) *client {
	t.Helper()
	cache, err := lru.New(4096)
	require.NoError(t, err)
	return &client{
		conf:          NewConfig(),
		pool:          newBrokerPool(NewConfig()),
		controllerID:  -1,
		coordinators:  make(map[string]int32),
		metadataCache: cache,
		inflight:      make(map[uint64]chan struct{}),
	}
}

func TestClientApplyMetadataCachesTopicsAndBrokers(t *testing.T) {
	c := newTestClient(t)

	topicID := uuid.New()
	resp := &MetadataResponse{
		ControllerID: 1,
		Brokers:      []MetadataBroker{{NodeID: 1, Host: "broker1", Port: 9092}},
		Topics: []MetadataTopic{
			{
				Name:    "orders",
				TopicID: [16]byte(topicID),
				Partitions: []MetadataPartition{
					{PartitionID: 0, Leader: 1},
					{PartitionID: 1, Leader: 1},
				},
			},
		},
	}

	c.applyMetadata(resp)

	partitions, err := c.Partitions("orders")
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1}, partitions)

	gotID, err := c.TopicID("orders")
	require.NoError(t, err)
	require.Equal(t, [16]byte(topicID), gotID)

	require.Equal(t, int32(1), c.controllerID)
	require.Len(t, c.pool.all(), 1)
}

func TestClientTopicIDUnknownTopicErrors(t *testing.T) {
	c := newTestClient(t)
	c.conf.Metadata.RefreshFrequency = 0
	_, err := c.TopicID("does-not-exist")
	require.Error(t, err)
}

func TestClientApplyMetadataOnlyAdvancesControllerIDWhenPresent(t *testing.T) {
	c := newTestClient(t)
	c.controllerID = 5

	c.applyMetadata(&MetadataResponse{ControllerID: -1})
	require.Equal(t, int32(5), c.controllerID, "a response with no controller info must not clobber the cached one")
}
