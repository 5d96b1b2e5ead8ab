package gokafka

import "time"

// MetadataBroker is one entry in the broker list of a MetadataResponse,
// the raw material the base client's ClusterMetadata cache is rebuilt from
// on every refresh.
type MetadataBroker struct {
	NodeID int32
	Host   string
	Port   int32
	Rack   *string
}

func (b *MetadataBroker) encode(pe packetEncoder, flexible bool) error {
	pe.putInt32(b.NodeID)
	var err error
	if flexible {
		err = pe.putCompactString(b.Host)
	} else {
		err = pe.putString(b.Host)
	}
	if err != nil {
		return err
	}
	pe.putInt32(b.Port)
	if flexible {
		err = pe.putNullableCompactString(b.Rack)
	} else {
		err = pe.putNullableString(b.Rack)
	}
	if err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (b *MetadataBroker) decode(pd packetDecoder, flexible bool) (err error) {
	if b.NodeID, err = pd.getInt32(); err != nil {
		return err
	}
	if flexible {
		b.Host, err = pd.getCompactString()
	} else {
		b.Host, err = pd.getString()
	}
	if err != nil {
		return err
	}
	if b.Port, err = pd.getInt32(); err != nil {
		return err
	}
	if flexible {
		b.Rack, err = pd.getCompactNullableString()
	} else {
		b.Rack, err = pd.getNullableString()
	}
	if err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

// MetadataPartition describes one partition's leader/replica/ISR state as
// of this refresh; ClusterMetadata keys its partition index off PartitionID.
type MetadataPartition struct {
	Err             KError
	PartitionID     int32
	Leader          int32
	LeaderEpoch     int32
	Replicas        []int32
	ISR             []int32
	OfflineReplicas []int32
}

func (p *MetadataPartition) encode(pe packetEncoder, flexible bool, version int16) error {
	pe.putInt16(int16(p.Err))
	pe.putInt32(p.PartitionID)
	pe.putInt32(p.Leader)
	if version >= 7 {
		pe.putInt32(p.LeaderEpoch)
	}

	var err error
	if flexible {
		pe.putCompactArrayLength(len(p.Replicas))
	} else if err = pe.putArrayLength(len(p.Replicas)); err != nil {
		return err
	}
	if err := putInt32ArrayRaw(pe, p.Replicas); err != nil {
		return err
	}

	if flexible {
		pe.putCompactArrayLength(len(p.ISR))
	} else if err = pe.putArrayLength(len(p.ISR)); err != nil {
		return err
	}
	if err := putInt32ArrayRaw(pe, p.ISR); err != nil {
		return err
	}

	if version >= 5 {
		if flexible {
			pe.putCompactArrayLength(len(p.OfflineReplicas))
		} else if err = pe.putArrayLength(len(p.OfflineReplicas)); err != nil {
			return err
		}
		if err := putInt32ArrayRaw(pe, p.OfflineReplicas); err != nil {
			return err
		}
	}

	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func putInt32ArrayRaw(pe packetEncoder, xs []int32) error {
	for _, x := range xs {
		pe.putInt32(x)
	}
	return nil
}

func getInt32ArrayOfLen(pd packetDecoder, n int) ([]int32, error) {
	xs := make([]int32, n)
	for i := 0; i < n; i++ {
		v, err := pd.getInt32()
		if err != nil {
			return nil, err
		}
		xs[i] = v
	}
	return xs, nil
}

func (p *MetadataPartition) decode(pd packetDecoder, flexible bool, version int16) (err error) {
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	p.Err = KError(errCode)

	if p.PartitionID, err = pd.getInt32(); err != nil {
		return err
	}
	if p.Leader, err = pd.getInt32(); err != nil {
		return err
	}
	if version >= 7 {
		if p.LeaderEpoch, err = pd.getInt32(); err != nil {
			return err
		}
	}

	var n int
	if flexible {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	if p.Replicas, err = getInt32ArrayOfLen(pd, n); err != nil {
		return err
	}

	if flexible {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	if p.ISR, err = getInt32ArrayOfLen(pd, n); err != nil {
		return err
	}

	if version >= 5 {
		if flexible {
			n, err = pd.getCompactArrayLength()
		} else {
			n, err = pd.getArrayLength()
		}
		if err != nil {
			return err
		}
		if p.OfflineReplicas, err = getInt32ArrayOfLen(pd, n); err != nil {
			return err
		}
	}

	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

// MetadataTopic is one topic's metadata: its error (if any), ID, partitions,
// and whether it is internal (e.g. __consumer_offsets).
type MetadataTopic struct {
	Err                     KError
	Name                    string
	TopicID                 [16]byte
	IsInternal              bool
	Partitions              []MetadataPartition
	AuthorizedOperations    int32
}

func (t *MetadataTopic) encode(pe packetEncoder, flexible bool, version int16) error {
	pe.putInt16(int16(t.Err))

	var err error
	if flexible {
		err = pe.putCompactString(t.Name)
	} else {
		err = pe.putString(t.Name)
	}
	if err != nil {
		return err
	}

	if version >= 10 {
		pe.putUUID(t.TopicID)
	}

	if version >= 1 {
		pe.putBool(t.IsInternal)
	}

	if flexible {
		pe.putCompactArrayLength(len(t.Partitions))
	} else if err := pe.putArrayLength(len(t.Partitions)); err != nil {
		return err
	}
	for i := range t.Partitions {
		if err := t.Partitions[i].encode(pe, flexible, version); err != nil {
			return err
		}
	}

	if version >= 8 {
		pe.putInt32(t.AuthorizedOperations)
	}

	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (t *MetadataTopic) decode(pd packetDecoder, flexible bool, version int16) (err error) {
	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	t.Err = KError(errCode)

	if flexible {
		t.Name, err = pd.getCompactString()
	} else {
		t.Name, err = pd.getString()
	}
	if err != nil {
		return err
	}

	if version >= 10 {
		if t.TopicID, err = pd.getUUID(); err != nil {
			return err
		}
	}

	if version >= 1 {
		if t.IsInternal, err = pd.getBool(); err != nil {
			return err
		}
	}

	var n int
	if flexible {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	t.Partitions = make([]MetadataPartition, n)
	for i := 0; i < n; i++ {
		if err := t.Partitions[i].decode(pd, flexible, version); err != nil {
			return err
		}
	}

	if version >= 8 {
		if t.AuthorizedOperations, err = pd.getInt32(); err != nil {
			return err
		}
	}

	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

// MetadataResponse is the broker's cluster topology snapshot; the base
// client's ClusterMetadata cache is rebuilt wholesale from one of these on
// every refresh).
type MetadataResponse struct {
	Version                    int16
	ThrottleTime               time.Duration
	Brokers                    []MetadataBroker
	ClusterID                  *string
	ControllerID               int32
	Topics                     []MetadataTopic
	ClusterAuthorizedOperations int32
}

func (r *MetadataResponse) setVersion(v int16) { r.Version = v }

func (r *MetadataResponse) flexible() bool { return r.Version >= 9 }

func (r *MetadataResponse) encode(pe packetEncoder) error {
	if r.Version >= 3 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}

	if r.flexible() {
		pe.putCompactArrayLength(len(r.Brokers))
	} else if err := pe.putArrayLength(len(r.Brokers)); err != nil {
		return err
	}
	for i := range r.Brokers {
		if err := r.Brokers[i].encode(pe, r.flexible()); err != nil {
			return err
		}
	}

	if r.Version >= 2 {
		var err error
		if r.flexible() {
			err = pe.putNullableCompactString(r.ClusterID)
		} else {
			err = pe.putNullableString(r.ClusterID)
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 1 {
		pe.putInt32(r.ControllerID)
	}

	if r.flexible() {
		pe.putCompactArrayLength(len(r.Topics))
	} else if err := pe.putArrayLength(len(r.Topics)); err != nil {
		return err
	}
	for i := range r.Topics {
		if err := r.Topics[i].encode(pe, r.flexible(), r.Version); err != nil {
			return err
		}
	}

	if r.Version >= 8 {
		pe.putInt32(r.ClusterAuthorizedOperations)
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *MetadataResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	if r.Version >= 3 {
		throttleTime, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond
	}

	var n int
	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	r.Brokers = make([]MetadataBroker, n)
	for i := 0; i < n; i++ {
		if err := r.Brokers[i].decode(pd, r.flexible()); err != nil {
			return err
		}
	}

	if r.Version >= 2 {
		if r.flexible() {
			r.ClusterID, err = pd.getCompactNullableString()
		} else {
			r.ClusterID, err = pd.getNullableString()
		}
		if err != nil {
			return err
		}
	}

	if r.Version >= 1 {
		if r.ControllerID, err = pd.getInt32(); err != nil {
			return err
		}
	} else {
		r.ControllerID = invalidPreferredReplicaID
	}

	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}
	r.Topics = make([]MetadataTopic, n)
	for i := 0; i < n; i++ {
		if err := r.Topics[i].decode(pd, r.flexible(), r.Version); err != nil {
			return err
		}
	}

	if r.Version >= 8 {
		if r.ClusterAuthorizedOperations, err = pd.getInt32(); err != nil {
			return err
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *MetadataResponse) key() int16     { return apiKeyMetadata }
func (r *MetadataResponse) version() int16 { return r.Version }
func (r *MetadataResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *MetadataResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 9 }
func (r *MetadataResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 9:
		return V2_4_0_0
	case r.Version >= 7:
		return V2_1_0_0
	case r.Version >= 4:
		return V0_11_0_0
	case r.Version >= 1:
		return V0_10_0_0
	default:
		return V0_9_0_0
	}
}
func (r *MetadataResponse) throttleTime() time.Duration { return r.ThrottleTime }
