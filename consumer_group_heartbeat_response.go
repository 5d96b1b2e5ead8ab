package gokafka

import "time"

// ConsumerGroupHeartbeatAssignment is the broker-computed partition
// assignment pushed to this member — under KIP-848 the member no longer
// runs a client-side assignor, it just applies what the broker sends.
type ConsumerGroupHeartbeatAssignment struct {
	TopicPartitions []ConsumerGroupHeartbeatTopicPartitions
}

func (a *ConsumerGroupHeartbeatAssignment) encode(pe packetEncoder) error {
	pe.putCompactArrayLength(len(a.TopicPartitions))
	for i := range a.TopicPartitions {
		if err := a.TopicPartitions[i].encode(pe); err != nil {
			return err
		}
	}
	pe.putEmptyTaggedFieldArray()
	return nil
}

func (a *ConsumerGroupHeartbeatAssignment) decode(pd packetDecoder) (err error) {
	n, err := pd.getCompactArrayLength()
	if err != nil {
		return err
	}
	a.TopicPartitions = make([]ConsumerGroupHeartbeatTopicPartitions, n)
	for i := 0; i < n; i++ {
		if err := a.TopicPartitions[i].decode(pd); err != nil {
			return err
		}
	}
	_, err = pd.getEmptyTaggedFieldArray()
	return err
}

// ConsumerGroupHeartbeatResponse carries the member's new epoch and (when
// the assignment changed) the new Assignment; heartbeatLoopModern ends the
// current session when an Assignment arrives, so the next Consume call
// builds its claims from it.
type ConsumerGroupHeartbeatResponse struct {
	Version           int16
	ThrottleTime      time.Duration
	Err               KError
	ErrMsg            *string
	MemberID          string
	MemberEpoch       int32
	HeartbeatInterval int32
	Assignment        *ConsumerGroupHeartbeatAssignment
}

func (r *ConsumerGroupHeartbeatResponse) setVersion(v int16) { r.Version = v }

func (r *ConsumerGroupHeartbeatResponse) encode(pe packetEncoder) error {
	pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	pe.putInt16(int16(r.Err))
	if err := pe.putNullableCompactString(r.ErrMsg); err != nil {
		return err
	}
	if err := pe.putCompactString(r.MemberID); err != nil {
		return err
	}
	pe.putInt32(r.MemberEpoch)
	pe.putInt32(r.HeartbeatInterval)

	if r.Assignment != nil {
		pe.putInt8(1)
		if err := r.Assignment.encode(pe); err != nil {
			return err
		}
	} else {
		pe.putInt8(0)
	}

	pe.putEmptyTaggedFieldArray()
	return nil
}

func (r *ConsumerGroupHeartbeatResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	throttleTime, err := pd.getInt32()
	if err != nil {
		return err
	}
	r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond

	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	r.Err = KError(errCode)

	if r.ErrMsg, err = pd.getCompactNullableString(); err != nil {
		return err
	}
	if r.MemberID, err = pd.getCompactString(); err != nil {
		return err
	}
	if r.MemberEpoch, err = pd.getInt32(); err != nil {
		return err
	}
	if r.HeartbeatInterval, err = pd.getInt32(); err != nil {
		return err
	}

	present, err := pd.getInt8()
	if err != nil {
		return err
	}
	if present != 0 {
		r.Assignment = &ConsumerGroupHeartbeatAssignment{}
		if err := r.Assignment.decode(pd); err != nil {
			return err
		}
	}

	_, err = pd.getEmptyTaggedFieldArray()
	return err
}

func (r *ConsumerGroupHeartbeatResponse) key() int16           { return apiKeyConsumerGroupHeartbeat }
func (r *ConsumerGroupHeartbeatResponse) version() int16       { return r.Version }
func (r *ConsumerGroupHeartbeatResponse) headerVersion() int16 { return 1 }
func (r *ConsumerGroupHeartbeatResponse) isValidVersion() bool { return r.Version == 0 }
func (r *ConsumerGroupHeartbeatResponse) requiredVersion() KafkaVersion {
	return V3_5_0_0
}
func (r *ConsumerGroupHeartbeatResponse) throttleTime() time.Duration { return r.ThrottleTime }
