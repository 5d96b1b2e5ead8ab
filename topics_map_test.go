//go:build !functional

package gokafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopicsMapTrackUntrackAreInverses(t *testing.T) {
	tm := NewTopicsMap()

	changed := tm.track([]string{"orders"})
	require.True(t, changed, "first reference should change the subscribed set")
	require.Equal(t, 1, tm.refCount("orders"))

	changed = tm.track([]string{"orders"})
	require.False(t, changed, "second reference to an already-tracked topic is not a change")
	require.Equal(t, 2, tm.refCount("orders"))

	changed = tm.untrack([]string{"orders"})
	require.False(t, changed, "dropping one of two references doesn't leave the set")
	require.Equal(t, 1, tm.refCount("orders"))

	changed = tm.untrack([]string{"orders"})
	require.True(t, changed, "dropping the last reference changes the subscribed set")
	require.Equal(t, 0, tm.refCount("orders"))
}

func TestTopicsMapUntrackWithoutTrackIsNoop(t *testing.T) {
	tm := NewTopicsMap()
	changed := tm.untrack([]string{"orders"})
	require.False(t, changed)
	require.Equal(t, 0, tm.refCount("orders"))
}

func TestTopicsMapSnapshotIsSortedUnion(t *testing.T) {
	tm := NewTopicsMap()
	tm.track([]string{"payments", "orders"})
	tm.track([]string{"orders", "shipping"})

	require.Equal(t, []string{"orders", "payments", "shipping"}, tm.snapshot())
}

func TestTopicsMapSharedSubscriptionDoesNotDoubleRejoin(t *testing.T) {
	tm := NewTopicsMap()

	firstChanged := tm.track([]string{"orders", "payments"})
	require.True(t, firstChanged)

	secondChanged := tm.track([]string{"payments"})
	require.False(t, secondChanged, "a topic already referenced by another subscriber shouldn't trigger a rejoin")

	firstRemoved := tm.untrack([]string{"orders", "payments"})
	require.True(t, firstRemoved, "orders left the set entirely")

	secondRemoved := tm.untrack([]string{"payments"})
	require.True(t, secondRemoved, "payments' last reference is now gone too")

	require.Empty(t, tm.snapshot())
}
