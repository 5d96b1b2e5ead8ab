package gokafka

import (
	"time"
)

const recordBatchOverhead = 49

type recordsArray []*Record

func (e recordsArray) encode(pe packetEncoder) error {
	for _, r := range e {
		if err := r.encode(pe); err != nil {
			return err
		}
	}
	return nil
}

func decodeRecordsArray(pd packetDecoder, n int) ([]*Record, error) {
	records := make([]*Record, n)
	for i := 0; i < n; i++ {
		rec := &Record{}
		if err := rec.decode(pd); err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

// RecordBatch is the v2 (KIP-98/KIP-32) record container: a single
// CRC-32C-protected batch holding one or more Records, with batch-level
// timestamps/offsets/producer identity that each Record deltas against
//.
type RecordBatch struct {
	FirstOffset           int64
	PartitionLeaderEpoch  int32
	Version               int8 // magic byte, always 2
	Codec                 CompressionCodec
	Control               bool
	LogAppendTime         bool
	LastOffsetDelta       int32
	FirstTimestamp        time.Time
	MaxTimestamp          time.Time
	ProducerID            int64
	ProducerEpoch         int16
	FirstSequence         int32
	Records               []*Record
	PartialTrailingRecord bool
	IsTransactional       bool

	compressedRecords []byte
	recordsLen        int // size of records in bytes, either compressed or not
}

func (b *RecordBatch) LastOffset() int64 {
	return b.FirstOffset + int64(b.LastOffsetDelta)
}

func (b *RecordBatch) encode(pe packetEncoder) error {
	pe.putInt64(b.FirstOffset)
	pe.push(&lengthField{})
	pe.putInt32(b.PartitionLeaderEpoch)
	pe.putInt8(2) // magic byte
	pe.push(&crc32Field{})
	pe.putInt16(b.computeAttributes())
	pe.putInt32(b.LastOffsetDelta)

	if err := (Timestamp{&b.FirstTimestamp}).encode(pe); err != nil {
		return err
	}
	if err := (Timestamp{&b.MaxTimestamp}).encode(pe); err != nil {
		return err
	}

	pe.putInt64(b.ProducerID)
	pe.putInt16(b.ProducerEpoch)
	pe.putInt32(b.FirstSequence)

	if err := pe.putArrayLength(len(b.Records)); err != nil {
		return err
	}

	if b.compressedRecords == nil {
		if err := b.encodeRecords(pe); err != nil {
			return err
		}
	}
	if err := pe.putRawBytes(b.compressedRecords); err != nil {
		return err
	}

	return pe.pop() // crc32Field
}

func (b *RecordBatch) computeAttributes() int16 {
	attr := int16(b.Codec) & int16(compressionCodecMask)
	if b.Control {
		attr |= 0x20
	}
	if b.LogAppendTime {
		attr |= 0x08
	}
	if b.IsTransactional {
		attr |= 0x10
	}
	return attr
}

func (b *RecordBatch) encodeRecords(pe packetEncoder) error {
	var raw []byte
	var err error
	if raw, err = encode(recordsArray(b.Records), nil); err != nil {
		return err
	}

	b.recordsLen = len(raw)

	if b.Codec == CompressionNone {
		b.compressedRecords = raw
		return nil
	}

	b.compressedRecords, err = compress(b.Codec, DefaultCompressionLevel, raw)
	return err
}

func (b *RecordBatch) decode(pd packetDecoder) (err error) {
	if b.FirstOffset, err = pd.getInt64(); err != nil {
		return err
	}

	batchLen, err := pd.getInt32()
	if err != nil {
		return err
	}

	if b.PartitionLeaderEpoch, err = pd.getInt32(); err != nil {
		return err
	}

	if b.Version, err = pd.getInt8(); err != nil {
		return err
	}

	if err = pd.push(&crc32Field{}); err != nil {
		return err
	}

	attributes, err := pd.getInt16()
	if err != nil {
		return err
	}
	b.Codec = CompressionCodec(int8(attributes) & compressionCodecMask)
	b.Control = attributes&0x20 != 0
	b.LogAppendTime = attributes&0x08 != 0
	b.IsTransactional = attributes&0x10 != 0

	if b.LastOffsetDelta, err = pd.getInt32(); err != nil {
		return err
	}

	if err = (Timestamp{&b.FirstTimestamp}).decode(pd); err != nil {
		return err
	}

	if err = (Timestamp{&b.MaxTimestamp}).decode(pd); err != nil {
		return err
	}

	if b.ProducerID, err = pd.getInt64(); err != nil {
		return err
	}

	if b.ProducerEpoch, err = pd.getInt16(); err != nil {
		return err
	}

	if b.FirstSequence, err = pd.getInt32(); err != nil {
		return err
	}

	numRecs, err := pd.getArrayLength()
	if err != nil {
		return err
	}

	bufSize := int(batchLen) - recordBatchOverhead
	recBuffer, err := pd.getRawBytes(bufSize)
	if err != nil {
		if err == ErrInsufficientData {
			b.PartialTrailingRecord = true
			b.Records = nil
			return pd.pop()
		}
		return err
	}

	if err = pd.pop(); err != nil {
		return err
	}

	if b.Codec != CompressionNone {
		if recBuffer, err = decompress(b.Codec, recBuffer); err != nil {
			return err
		}
	}

	recPd := &realDecoder{raw: recBuffer}
	if b.Records, err = decodeRecordsArray(recPd, numRecs); err != nil {
		if err == ErrInsufficientData {
			b.PartialTrailingRecord = true
			return nil
		}
		return err
	}

	return nil
}

// Timestamp wraps a *time.Time so it can go through the push/pop-free
// millisecond-since-epoch encoding Kafka uses for batch-level timestamps,
// with -1 representing the zero value.
type Timestamp struct {
	*time.Time
}

func (t Timestamp) encode(pe packetEncoder) error {
	timestamp := int64(-1)

	if !t.Before(time.Unix(0, 0)) {
		timestamp = t.UnixNano() / int64(time.Millisecond)
	} else if !t.IsZero() {
		return PacketEncodingError{"invalid timestamp"}
	}

	pe.putInt64(timestamp)
	return nil
}

func (t Timestamp) decode(pd packetDecoder) error {
	millis, err := pd.getInt64()
	if err != nil {
		return err
	}

	if millis == -1 {
		return nil
	}

	if millis < 0 {
		return PacketDecodingError{"invalid timestamp"}
	}

	*t.Time = time.Unix(millis/1000, (millis%1000)*int64(time.Millisecond))
	return nil
}
