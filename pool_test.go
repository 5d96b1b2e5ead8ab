//go:build !functional

package gokafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrokerPoolAddSeedDedupesByAddr(t *testing.T) {
	p := newBrokerPool(NewConfig())

	b1 := p.addSeed("broker1:9092")
	b2 := p.addSeed("broker1:9092")
	require.Same(t, b1, b2, "addSeed for an already-seeded address must return the existing broker")
	require.Len(t, p.all(), 1)
}

func TestBrokerPoolRegisterPromotesExistingSeed(t *testing.T) {
	p := newBrokerPool(NewConfig())

	seed := p.addSeed("broker1:9092")
	promoted := p.register(7, "broker1:9092")

	require.Same(t, seed, promoted, "register must promote the seed broker rather than create a new one")
	require.Equal(t, int32(7), promoted.ID())
	require.Len(t, p.all(), 1, "the promoted seed must no longer also appear under byAddr")
}

func TestBrokerPoolRegisterIsIdempotentByNodeID(t *testing.T) {
	p := newBrokerPool(NewConfig())

	b1 := p.register(7, "broker1:9092")
	b2 := p.register(7, "broker1:9092-stale-addr-wouldnt-matter")

	require.Same(t, b1, b2, "a second register call for a known node ID returns the existing broker")
	require.Len(t, p.all(), 1)
}

func TestBrokerPoolRegisterWithoutSeedCreatesNewEntry(t *testing.T) {
	p := newBrokerPool(NewConfig())

	b := p.register(3, "broker3:9092")
	require.Equal(t, int32(3), b.ID())
	require.Equal(t, "broker3:9092", b.Addr())
}

func TestBrokerPoolGetUnknownNodeIsOutOfBrokers(t *testing.T) {
	p := newBrokerPool(NewConfig())
	_, err := p.get(99)
	require.ErrorIs(t, err, ErrOutOfBrokers)
}

func TestBrokerPoolIsActiveBeforeOpenIsFalse(t *testing.T) {
	p := newBrokerPool(NewConfig())
	p.register(1, "broker1:9092")
	require.False(t, p.isActive(1), "a registered-but-never-opened broker has no connection yet")
	require.False(t, p.isActive(42), "an unknown node ID is never active")
}

func TestBrokerPoolAllCombinesSeedsAndRegistered(t *testing.T) {
	p := newBrokerPool(NewConfig())
	p.addSeed("seed:9092")
	p.register(1, "broker1:9092")

	require.Len(t, p.all(), 2)
}

func TestBrokerPoolCloseOnUnopenedBrokersIsClean(t *testing.T) {
	p := newBrokerPool(NewConfig())
	p.addSeed("seed:9092")
	p.register(1, "broker1:9092")
	require.NoError(t, p.close())
}
