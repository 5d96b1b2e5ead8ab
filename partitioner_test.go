//go:build !functional

package gokafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPartitionerIsDeterministic(t *testing.T) {
	part := NewHashPartitioner("topic")
	msg := &ProducerMessage{Topic: "topic", Key: StringEncoder("user-42")}

	first, err := part.Partition(msg, 8)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		got, err := part.Partition(msg, 8)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
	require.GreaterOrEqual(t, first, int32(0))
	require.Less(t, first, int32(8))
}

func TestHashPartitionerDifferentKeysCanLandDifferently(t *testing.T) {
	part := NewHashPartitioner("topic")
	seen := make(map[int32]bool)
	for i := 0; i < 20; i++ {
		msg := &ProducerMessage{Topic: "topic", Key: StringEncoder(string(rune('a' + i)))}
		p, err := part.Partition(msg, 8)
		require.NoError(t, err)
		seen[p] = true
	}
	require.Greater(t, len(seen), 1, "expected keys to spread across more than one partition")
}

func TestHashPartitionerFallsBackToRoundRobinForNilKey(t *testing.T) {
	part := NewHashPartitioner("topic")
	msg := &ProducerMessage{Topic: "topic"}
	p, err := part.Partition(msg, 4)
	require.NoError(t, err)
	require.GreaterOrEqual(t, p, int32(0))
	require.Less(t, p, int32(4))
}

func TestRoundRobinPartitionerCycles(t *testing.T) {
	part := NewRoundRobinPartitioner("topic")
	msg := &ProducerMessage{Topic: "topic"}

	var got []int32
	for i := 0; i < 6; i++ {
		p, err := part.Partition(msg, 3)
		require.NoError(t, err)
		got = append(got, p)
	}
	require.Equal(t, []int32{0, 1, 2, 0, 1, 2}, got)
}

func TestPartitionersReportConsistency(t *testing.T) {
	require.True(t, NewHashPartitioner("t").RequiresConsistency())
	require.False(t, NewRandomPartitioner("t").RequiresConsistency())
}
