package gokafka

import "time"

// RecordHeader is a single key/value header attached to a v2-format record
// (KIP-82). Only populated for magic 2 batches; legacy messages carry no
// headers.
type RecordHeader struct {
	Key   []byte
	Value []byte
}

func (h *RecordHeader) encode(pe packetEncoder) error {
	if err := pe.putVarintBytes(h.Key); err != nil {
		return err
	}
	return pe.putVarintBytes(h.Value)
}

func (h *RecordHeader) decode(pd packetDecoder) (err error) {
	if h.Key, err = pd.getVarintBytes(); err != nil {
		return err
	}
	if h.Value, err = pd.getVarintBytes(); err != nil {
		return err
	}
	return nil
}

// Record is a single entry of a v2 RecordBatch. Offsets and timestamps are
// stored as deltas from the owning batch's FirstOffset/FirstTimestamp to
// keep the wire form small; RecordBatch.decode resolves them into absolute
// values for parseRecords to read back out.
type Record struct {
	Attributes     int8
	TimestampDelta time.Duration
	OffsetDelta    int64
	Key            []byte
	Value          []byte
	Headers        []*RecordHeader

	length varintLengthField
}

func (r *Record) encode(pe packetEncoder) error {
	pe.push(&r.length)
	pe.putInt8(r.Attributes)
	pe.putVarint(int64(r.TimestampDelta / time.Millisecond))
	pe.putVarint(r.OffsetDelta)
	if err := pe.putVarintBytes(r.Key); err != nil {
		return err
	}
	if err := pe.putVarintBytes(r.Value); err != nil {
		return err
	}
	pe.putVarint(int64(len(r.Headers)))
	for _, h := range r.Headers {
		if err := h.encode(pe); err != nil {
			return err
		}
	}
	return pe.pop()
}

func (r *Record) decode(pd packetDecoder) (err error) {
	if err = pd.push(&r.length); err != nil {
		return err
	}

	if r.Attributes, err = pd.getInt8(); err != nil {
		return err
	}

	timestamp, err := pd.getVarint()
	if err != nil {
		return err
	}
	r.TimestampDelta = time.Duration(timestamp) * time.Millisecond

	if r.OffsetDelta, err = pd.getVarint(); err != nil {
		return err
	}

	if r.Key, err = pd.getVarintBytes(); err != nil {
		return err
	}

	if r.Value, err = pd.getVarintBytes(); err != nil {
		return err
	}

	numHeaders, err := pd.getVarint()
	if err != nil {
		return err
	}

	if numHeaders >= 0 {
		r.Headers = make([]*RecordHeader, numHeaders)
	}
	for i := int64(0); i < numHeaders; i++ {
		hdr := new(RecordHeader)
		if err := hdr.decode(pd); err != nil {
			return err
		}
		r.Headers[i] = hdr
	}

	return pd.pop()
}

// controlRecordType distinguishes the two control-batch record bodies
// Kafka uses to mark a transaction's outcome (KIP-98 §"Control Batches").
type controlRecordType int

const (
	ControlRecordUnknown controlRecordType = iota
	ControlRecordAbort
	ControlRecordCommit
)

// ControlRecord is the decoded key of a control-batch record. Its value is
// unused by the core (broker-internal marker payload); only the type
// matters for consumer-side transaction filtering.
type ControlRecord struct {
	Version int16
	Type    controlRecordType
}

func (cr *ControlRecord) decode(key, value packetDecoder) (err error) {
	if cr.Version, err = key.getInt16(); err != nil {
		return err
	}

	coordinatorType, err := key.getInt16()
	if err != nil {
		return err
	}

	switch coordinatorType {
	case 0:
		cr.Type = ControlRecordAbort
	case 1:
		cr.Type = ControlRecordCommit
	default:
		cr.Type = ControlRecordUnknown
	}

	return nil
}
