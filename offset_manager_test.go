//go:build !functional

package gokafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPOM(t *testing.T, autoReset OffsetResetStrategy, getOffset func(string, int32, int64) (int64, error)) *partitionOffsetManager {
	t.Helper()
	conf := NewConfig()
	conf.Consumer.Offsets.AutoReset = autoReset
	om := &offsetManager{
		conf:  conf,
		group: "test-group",
		client: &fakeClient{
			getOffsetFn: getOffset,
		},
	}
	return &partitionOffsetManager{parent: om, topic: "orders", partition: 0, clean: offsetStamp{offset: -1}}
}

func TestNextOffsetPrefersDirtyOverClean(t *testing.T) {
	pom := newTestPOM(t, OffsetResetFail, nil)
	pom.clean = offsetStamp{offset: 10, metadata: "clean"}
	pom.dirty = offsetStamp{offset: 20, metadata: "dirty"}
	pom.dirtyIsSet = true

	offset, metadata, err := pom.NextOffset()
	require.NoError(t, err)
	require.Equal(t, int64(20), offset)
	require.Equal(t, "dirty", metadata)
}

func TestNextOffsetFallsBackToCleanWhenNoDirty(t *testing.T) {
	pom := newTestPOM(t, OffsetResetFail, nil)
	pom.clean = offsetStamp{offset: 10, metadata: "clean"}

	offset, metadata, err := pom.NextOffset()
	require.NoError(t, err)
	require.Equal(t, int64(10), offset)
	require.Equal(t, "clean", metadata)
}

func TestNextOffsetAutoResetEarliest(t *testing.T) {
	pom := newTestPOM(t, OffsetResetEarliest, func(topic string, partition int32, ts int64) (int64, error) {
		require.Equal(t, OffsetOldest, ts)
		return 5, nil
	})

	offset, _, err := pom.NextOffset()
	require.NoError(t, err)
	require.Equal(t, int64(5), offset)
}

func TestNextOffsetAutoResetLatest(t *testing.T) {
	pom := newTestPOM(t, OffsetResetLatest, func(topic string, partition int32, ts int64) (int64, error) {
		require.Equal(t, OffsetNewest, ts)
		return 99, nil
	})

	offset, _, err := pom.NextOffset()
	require.NoError(t, err)
	require.Equal(t, int64(99), offset)
}

func TestNextOffsetAutoResetFailSurfacesUserError(t *testing.T) {
	pom := newTestPOM(t, OffsetResetFail, nil)

	_, _, err := pom.NextOffset()
	require.Error(t, err)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	require.Contains(t, userErr.Error(), "no committed offset")
}

func TestNextOffsetUnrecognizedAutoResetAlsoFails(t *testing.T) {
	pom := newTestPOM(t, OffsetResetStrategy("garbage"), nil)

	_, _, err := pom.NextOffset()
	require.Error(t, err)
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
}

func TestMarkOffsetOnlyAdvancesDirty(t *testing.T) {
	pom := newTestPOM(t, OffsetResetFail, nil)
	pom.MarkOffset(5, "a")
	pom.MarkOffset(3, "b")
	require.Equal(t, int64(5), pom.dirty.offset, "a lower offset must not regress the dirty mark")

	pom.MarkOffset(10, "c")
	require.Equal(t, int64(10), pom.dirty.offset)
}

func TestResetOffsetAlwaysOverwritesDirty(t *testing.T) {
	pom := newTestPOM(t, OffsetResetFail, nil)
	pom.MarkOffset(10, "a")
	pom.ResetOffset(3, "rewound")
	require.Equal(t, int64(3), pom.dirty.offset, "ResetOffset rewinds regardless of the previous mark")
	require.Equal(t, "rewound", pom.dirty.metadata)
}
