//go:build !functional

package gokafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaultsAreValid(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.Validate())
	require.Equal(t, WaitForLocal, conf.Producer.RequiredAcks)
	require.Equal(t, 3, conf.Metadata.Retry.Max)
	require.NotNil(t, conf.Producer.Partitioner)
}

func TestConfigValidateRejectsBadMaxOpenRequests(t *testing.T) {
	conf := NewConfig()
	conf.Net.MaxOpenRequests = 0
	require.EqualError(t, conf.Validate(), "kafka: invalid configuration (Net.MaxOpenRequests must be > 0)")
}

func TestConfigValidateRejectsIdempotentWithoutWaitForAll(t *testing.T) {
	conf := NewConfig()
	conf.Producer.Idempotent = true
	conf.Producer.RequiredAcks = WaitForLocal
	err := conf.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "RequiredAcks=WaitForAll")
}

func TestConfigValidateRejectsIdempotentWithConcurrentRequests(t *testing.T) {
	conf := NewConfig()
	conf.Producer.Idempotent = true
	conf.Producer.RequiredAcks = WaitForAll
	conf.Net.MaxOpenRequests = 5
	err := conf.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "MaxOpenRequests=1")
}

func TestConfigValidateRejectsTransactionIDWithoutIdempotent(t *testing.T) {
	conf := NewConfig()
	conf.Producer.Transaction.ID = "txn-1"
	conf.Producer.Idempotent = false
	err := conf.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "Producer.Transaction.ID")
}
