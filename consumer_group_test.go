//go:build !functional

package gokafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestConsumerGroup(t *testing.T, client Client) *consumerGroup {
	t.Helper()
	return &consumerGroup{
		client:  client,
		conf:    NewConfig(),
		groupID: "test-group",
		errors:  make(chan error, 8),
		topics:  NewTopicsMap(),
	}
}

func TestGroupProtocolVersionByKafkaVersion(t *testing.T) {
	cg := newTestConsumerGroup(t, &fakeClient{})

	cg.conf.Version = V2_3_0_0
	require.Equal(t, int16(5), cg.groupProtocolVersion())

	cg.conf.Version = V2_0_0_0
	require.Equal(t, int16(3), cg.groupProtocolVersion())

	cg.conf.Version = V0_11_0_0
	require.Equal(t, int16(1), cg.groupProtocolVersion())

	cg.conf.Version = MinVersion
	require.Equal(t, int16(0), cg.groupProtocolVersion())
}

func TestHeartbeatModernIntervalFallsBackWhenUnset(t *testing.T) {
	require.Equal(t, time.Second, heartbeatModernInterval(&ConsumerGroupHeartbeatResponse{HeartbeatInterval: 0}))
	require.Equal(t, 2*time.Second, heartbeatModernInterval(&ConsumerGroupHeartbeatResponse{HeartbeatInterval: 2000}))
}

func TestEncodeDecodeModernOwnershipRoundTrips(t *testing.T) {
	ordersID := [16]byte{1}
	shippingID := [16]byte{2}

	cg := newTestConsumerGroup(t, &fakeClient{
		topicIDFn: func(topic string) ([16]byte, error) {
			switch topic {
			case "orders":
				return ordersID, nil
			case "shipping":
				return shippingID, nil
			}
			return [16]byte{}, ErrUnknownTopicOrPartition
		},
		topicsFn: func() ([]string, error) { return []string{"orders", "shipping"}, nil },
	})

	owned := &GroupMemberAssignment{Topics: map[string][]int32{
		"orders":   {0, 1},
		"shipping": {0},
	}}

	parts, err := cg.encodeModernOwnership(owned)
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assignment := &ConsumerGroupHeartbeatAssignment{TopicPartitions: parts}
	decoded, err := cg.decodeModernAssignment(assignment)
	require.NoError(t, err)
	require.Equal(t, owned.Topics, decoded.Topics)
}

func TestDecodeModernAssignmentUnknownTopicIDErrors(t *testing.T) {
	cg := newTestConsumerGroup(t, &fakeClient{
		topicsFn: func() ([]string, error) { return []string{"orders"}, nil },
		topicIDFn: func(topic string) ([16]byte, error) {
			return [16]byte{9}, nil
		},
	})

	assignment := &ConsumerGroupHeartbeatAssignment{
		TopicPartitions: []ConsumerGroupHeartbeatTopicPartitions{
			{TopicID: [16]byte{0xff}, Partitions: []int32{0}},
		},
	}
	_, err := cg.decodeModernAssignment(assignment)
	require.Error(t, err)
}

func TestCloseIsIdempotentAndOnlyClosesOwnedClient(t *testing.T) {
	closed := false
	cg := newTestConsumerGroup(t, &fakeClient{})
	cg.client = &fakeClient{
		closedFn: func() bool { return closed },
		closeFn:  func() error { closed = true; return nil },
	}
	cg.ownsClient = false

	require.NoError(t, cg.Close())
	require.True(t, cg.isClosed())
	require.NoError(t, cg.Close(), "closing twice must be a no-op, not an error")
	require.False(t, closed, "Close must not touch a caller-owned client")
}

func TestConsumeOnClosedGroupReturnsImmediately(t *testing.T) {
	cg := newTestConsumerGroup(t, &fakeClient{})
	cg.closed = true

	err := cg.Consume(nil, []string{"orders"}, nil) //nolint:staticcheck // nil ctx never reached: closed check short-circuits first
	require.ErrorIs(t, err, ErrClosedConsumerGroup)
}
