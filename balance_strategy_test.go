//go:build !functional

package gokafka

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestGroupMemberMetadataRoundTrip(t *testing.T) {
	meta := &GroupMemberMetadata{
		Version:  1,
		Topics:   []string{"orders", "payments"},
		UserData: []byte("hello"),
	}

	raw, err := meta.encode()
	require.NoError(t, err)

	var decoded GroupMemberMetadata
	require.NoError(t, decoded.decode(raw))

	if diff := cmp.Diff(*meta, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupMemberAssignmentRoundTrip(t *testing.T) {
	assignment := &GroupMemberAssignment{
		Version: 0,
		Topics: map[string][]int32{
			"orders":   {0, 1, 2},
			"payments": {3},
		},
		UserData: []byte("world"),
	}

	raw, err := assignment.encode()
	require.NoError(t, err)

	var decoded GroupMemberAssignment
	require.NoError(t, decoded.decode(raw))

	if diff := cmp.Diff(*assignment, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBalanceStrategyRangeSplitsContiguousPartitions(t *testing.T) {
	strategy := NewBalanceStrategyRange()
	members := map[string]GroupMemberMetadata{
		"m1": {Topics: []string{"orders"}},
		"m2": {Topics: []string{"orders"}},
	}
	topicPartitions := map[string][]int32{"orders": {0, 1, 2, 3}}

	plan, err := strategy.Plan(members, topicPartitions)
	require.NoError(t, err)

	require.ElementsMatch(t, []int32{0, 1}, plan["m1"]["orders"])
	require.ElementsMatch(t, []int32{2, 3}, plan["m2"]["orders"])
}

func TestBalanceStrategyRangeIsExhaustive(t *testing.T) {
	strategy := NewBalanceStrategyRange()
	members := map[string]GroupMemberMetadata{
		"m1": {Topics: []string{"orders"}},
		"m2": {Topics: []string{"orders"}},
		"m3": {Topics: []string{"orders"}},
	}
	topicPartitions := map[string][]int32{"orders": {0, 1, 2, 3, 4}}

	plan, err := strategy.Plan(members, topicPartitions)
	require.NoError(t, err)

	var assigned []int32
	for _, byTopic := range plan {
		assigned = append(assigned, byTopic["orders"]...)
	}
	require.ElementsMatch(t, []int32{0, 1, 2, 3, 4}, assigned)
}

func TestBalanceStrategyRoundRobinSpreadsEvenly(t *testing.T) {
	strategy := NewBalanceStrategyRoundRobin()
	members := map[string]GroupMemberMetadata{
		"m1": {Topics: []string{"orders"}},
		"m2": {Topics: []string{"orders"}},
	}
	topicPartitions := map[string][]int32{"orders": {0, 1, 2, 3}}

	plan, err := strategy.Plan(members, topicPartitions)
	require.NoError(t, err)

	require.Len(t, plan["m1"]["orders"], 2)
	require.Len(t, plan["m2"]["orders"], 2)
}

func TestBalanceStrategyNames(t *testing.T) {
	require.Equal(t, "range", NewBalanceStrategyRange().Name())
	require.Equal(t, "roundrobin", NewBalanceStrategyRoundRobin().Name())
}
