//go:build !functional

package gokafka

// fakeClient is a minimal Client stand-in for unit tests that exercise
// logic built on top of the Client interface without a live broker
// connection. A method with a func field calls it when it is set. When it is
// unset, the lookup methods panic, while Config, Closed, Close and the
// Refresh* methods fall back to NewConfig(), false and nil, so a test only
// needs to wire the handful of methods its code path actually calls.
type fakeClient struct {
	configFn          func() *Config
	topicsFn          func() ([]string, error)
	partitionsFn      func(string) ([]int32, error)
	topicIDFn         func(string) ([16]byte, error)
	getOffsetFn       func(string, int32, int64) (int64, error)
	coordinatorFn     func(string) (*Broker, error)
	refreshCoordFn    func(string) error
	closedFn          func() bool
	closeFn           func() error
}

func (f *fakeClient) Config() *Config {
	if f.configFn != nil {
		return f.configFn()
	}
	return NewConfig()
}
func (f *fakeClient) Controller() (*Broker, error)        { panic("not wired for this test") }
func (f *fakeClient) RefreshController() (*Broker, error) { panic("not wired for this test") }
func (f *fakeClient) Brokers() []*Broker                  { panic("not wired for this test") }
func (f *fakeClient) Broker(int32) (*Broker, error)       { panic("not wired for this test") }
func (f *fakeClient) Topics() ([]string, error) {
	if f.topicsFn != nil {
		return f.topicsFn()
	}
	panic("not wired for this test")
}
func (f *fakeClient) Partitions(topic string) ([]int32, error) {
	if f.partitionsFn != nil {
		return f.partitionsFn(topic)
	}
	panic("not wired for this test")
}
func (f *fakeClient) TopicID(topic string) ([16]byte, error) {
	if f.topicIDFn != nil {
		return f.topicIDFn(topic)
	}
	panic("not wired for this test")
}
func (f *fakeClient) Leader(string, int32) (*Broker, error) { panic("not wired for this test") }
func (f *fakeClient) LeaderAndEpoch(string, int32) (*Broker, int32, error) {
	panic("not wired for this test")
}
func (f *fakeClient) Replicas(string, int32) ([]int32, error)       { panic("not wired for this test") }
func (f *fakeClient) InSyncReplicas(string, int32) ([]int32, error) { panic("not wired for this test") }
func (f *fakeClient) RefreshMetadata(...string) error                { return nil }
func (f *fakeClient) RefreshFullMetadata() error                     { return nil }
func (f *fakeClient) TopicMetadata(...string) ([]*TopicMetadata, error) {
	panic("not wired for this test")
}
func (f *fakeClient) GetOffset(topic string, partition int32, timestamp int64) (int64, error) {
	if f.getOffsetFn != nil {
		return f.getOffsetFn(topic, partition, timestamp)
	}
	panic("not wired for this test")
}
func (f *fakeClient) Coordinator(group string) (*Broker, error) {
	if f.coordinatorFn != nil {
		return f.coordinatorFn(group)
	}
	panic("not wired for this test")
}
func (f *fakeClient) RefreshCoordinator(group string) error {
	if f.refreshCoordFn != nil {
		return f.refreshCoordFn(group)
	}
	return nil
}
func (f *fakeClient) Closed() bool {
	if f.closedFn != nil {
		return f.closedFn()
	}
	return false
}
func (f *fakeClient) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}
