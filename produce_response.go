package gokafka

import "time"

// ProduceResponseBlock is one partition's result from a Produce call: the
// offset of the first appended record, or an error the producer's
// per-partition error handling branches on to decide
// retry vs. give-up vs. renegotiate-sequence.
type ProduceResponseBlock struct {
	Err         KError
	Offset      int64
	Timestamp   time.Time
	StartOffset int64
	RecordErrors []ProduceResponseRecordError
	ErrorMessage *string
}

// ProduceResponseRecordError is one KIP-467 per-record error: most
// ProduceResponses fail (or succeed) as a whole batch, but some broker
// validation errors (like an oversized individual record) are reported
// record-by-record.
type ProduceResponseRecordError struct {
	BatchIndex        int32
	BatchIndexErrMsg  *string
}

func (e *ProduceResponseRecordError) encode(pe packetEncoder, flexible bool) error {
	pe.putInt32(e.BatchIndex)
	var err error
	if flexible {
		err = pe.putNullableCompactString(e.BatchIndexErrMsg)
	} else {
		err = pe.putNullableString(e.BatchIndexErrMsg)
	}
	if err != nil {
		return err
	}
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (e *ProduceResponseRecordError) decode(pd packetDecoder, flexible bool) (err error) {
	if e.BatchIndex, err = pd.getInt32(); err != nil {
		return err
	}
	if flexible {
		e.BatchIndexErrMsg, err = pd.getCompactNullableString()
	} else {
		e.BatchIndexErrMsg, err = pd.getNullableString()
	}
	if err != nil {
		return err
	}
	if flexible {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (b *ProduceResponseBlock) decode(pd packetDecoder, version int16) (err error) {
	if b.Offset, err = pd.getInt64(); err != nil {
		return err
	}

	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	b.Err = KError(errCode)

	if version >= 2 {
		if millis, err := pd.getInt64(); err != nil {
			return err
		} else if millis != -1 {
			b.Timestamp = time.Unix(millis/1000, (millis%1000)*int64(time.Millisecond))
		}
	}

	if version >= 5 {
		if b.StartOffset, err = pd.getInt64(); err != nil {
			return err
		}
	}

	if version >= 8 {
		n, err := pd.getArrayLength()
		if err != nil {
			return err
		}
		b.RecordErrors = make([]ProduceResponseRecordError, n)
		for i := 0; i < n; i++ {
			if err := b.RecordErrors[i].decode(pd, false); err != nil {
				return err
			}
		}
		if b.ErrorMessage, err = pd.getNullableString(); err != nil {
			return err
		}
	}

	return nil
}

func (b *ProduceResponseBlock) encode(pe packetEncoder, version int16) error {
	pe.putInt64(b.Offset)
	pe.putInt16(int16(b.Err))

	if version >= 2 {
		timestamp := int64(-1)
		if !b.Timestamp.IsZero() {
			timestamp = b.Timestamp.UnixNano() / int64(time.Millisecond)
		}
		pe.putInt64(timestamp)
	}

	if version >= 5 {
		pe.putInt64(b.StartOffset)
	}

	if version >= 8 {
		if err := pe.putArrayLength(len(b.RecordErrors)); err != nil {
			return err
		}
		for i := range b.RecordErrors {
			if err := b.RecordErrors[i].encode(pe, false); err != nil {
				return err
			}
		}
		if err := pe.putNullableString(b.ErrorMessage); err != nil {
			return err
		}
	}

	return nil
}

// ProduceResponse mirrors a ProduceRequest's topics/partitions one for one;
// the producer's retry logic keys off each block's Err to decide whether to
// requeue a batch, bump the idempotence sequence, or surface a permanent
// failure to the caller.
type ProduceResponse struct {
	Version      int16
	Blocks       map[string]map[int32]*ProduceResponseBlock
	ThrottleTime time.Duration
}

func (r *ProduceResponse) setVersion(v int16) { r.Version = v }

func (r *ProduceResponse) GetBlock(topic string, partition int32) *ProduceResponseBlock {
	if r.Blocks == nil {
		return nil
	}
	return r.Blocks[topic][partition]
}

func (r *ProduceResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	numTopics, err := pd.getArrayLength()
	if err != nil {
		return err
	}

	r.Blocks = make(map[string]map[int32]*ProduceResponseBlock, numTopics)
	for i := 0; i < numTopics; i++ {
		name, err := pd.getString()
		if err != nil {
			return err
		}

		numBlocks, err := pd.getArrayLength()
		if err != nil {
			return err
		}

		r.Blocks[name] = make(map[int32]*ProduceResponseBlock, numBlocks)

		for j := 0; j < numBlocks; j++ {
			id, err := pd.getInt32()
			if err != nil {
				return err
			}
			block := new(ProduceResponseBlock)
			if err := block.decode(pd, r.Version); err != nil {
				return err
			}
			r.Blocks[name][id] = block
		}
	}

	if r.Version >= 1 {
		throttleTime, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond
	}

	return nil
}

func (r *ProduceResponse) encode(pe packetEncoder) error {
	if err := pe.putArrayLength(len(r.Blocks)); err != nil {
		return err
	}
	for topic, partitions := range r.Blocks {
		if err := pe.putString(topic); err != nil {
			return err
		}
		if err := pe.putArrayLength(len(partitions)); err != nil {
			return err
		}
		for id, block := range partitions {
			pe.putInt32(id)
			if err := block.encode(pe, r.Version); err != nil {
				return err
			}
		}
	}

	if r.Version >= 1 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}

	return nil
}

func (r *ProduceResponse) key() int16     { return apiKeyProduce }
func (r *ProduceResponse) version() int16 { return r.Version }
func (r *ProduceResponse) headerVersion() int16 {
	return 0
}
func (r *ProduceResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 9 }
func (r *ProduceResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 7:
		return V2_1_0_0
	case r.Version >= 3:
		return V0_11_0_0
	case r.Version >= 2:
		return V0_10_0_0
	case r.Version >= 1:
		return V0_9_0_0
	default:
		return MinVersion
	}
}
func (r *ProduceResponse) throttleTime() time.Duration { return r.ThrottleTime }
