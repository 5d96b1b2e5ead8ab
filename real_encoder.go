package gokafka

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// realEncoder is the concrete packetEncoder that writes into a
// pre-sized byte slice (its size having been computed by a prior
// prepEncoder pass over the same structure).
type realEncoder struct {
	raw   []byte
	off   int
	stack []pushEncoder
}

func (re *realEncoder) putInt8(in int8) {
	re.raw[re.off] = byte(in)
	re.off++
}

func (re *realEncoder) putInt16(in int16) {
	binary.BigEndian.PutUint16(re.raw[re.off:], uint16(in))
	re.off += 2
}

func (re *realEncoder) putInt32(in int32) {
	binary.BigEndian.PutUint32(re.raw[re.off:], uint32(in))
	re.off += 4
}

func (re *realEncoder) putInt64(in int64) {
	binary.BigEndian.PutUint64(re.raw[re.off:], uint64(in))
	re.off += 8
}

func (re *realEncoder) putVarint(in int64) {
	re.putUVarint(uint64((in << 1) ^ (in >> 63)))
}

func (re *realEncoder) putUVarint(in uint64) {
	n := binary.PutUvarint(re.raw[re.off:], in)
	re.off += n
}

func (re *realEncoder) putFloat64(in float64) {
	binary.BigEndian.PutUint64(re.raw[re.off:], math.Float64bits(in))
	re.off += 8
}

func (re *realEncoder) putArrayLength(in int) error {
	if in > math.MaxInt32 {
		return PacketEncodingError{"array too long"}
	}
	re.putInt32(int32(in))
	return nil
}

func (re *realEncoder) putCompactArrayLength(in int) {
	// compact arrays are encoded as unsigned varint length + 1, 0 meaning nil
	re.putUVarint(uint64(in + 1))
}

func (re *realEncoder) putBool(in bool) {
	if in {
		re.putInt8(1)
	} else {
		re.putInt8(0)
	}
}

func (re *realEncoder) putUUID(in [16]byte) {
	copy(re.raw[re.off:], in[:])
	re.off += 16
}

func (re *realEncoder) putRawBytes(in []byte) error {
	copy(re.raw[re.off:], in)
	re.off += len(in)
	return nil
}

func (re *realEncoder) putBytes(in []byte) error {
	if in == nil {
		re.putInt32(-1)
		return nil
	}
	re.putInt32(int32(len(in)))
	return re.putRawBytes(in)
}

func (re *realEncoder) putVarintBytes(in []byte) error {
	if in == nil {
		re.putVarint(-1)
		return nil
	}
	re.putVarint(int64(len(in)))
	return re.putRawBytes(in)
}

func (re *realEncoder) putCompactBytes(in []byte) error {
	re.putUVarint(uint64(len(in) + 1))
	return re.putRawBytes(in)
}

func (re *realEncoder) putCompactString(in string) error {
	return re.putCompactBytes([]byte(in))
}

func (re *realEncoder) putNullableCompactString(in *string) error {
	if in == nil {
		re.putUVarint(0)
		return nil
	}
	return re.putCompactString(*in)
}

func (re *realEncoder) putString(in string) error {
	re.putInt16(int16(len(in)))
	return re.putRawBytes([]byte(in))
}

func (re *realEncoder) putNullableString(in *string) error {
	if in == nil {
		re.putInt16(-1)
		return nil
	}
	return re.putString(*in)
}

func (re *realEncoder) putStringArray(in []string) error {
	if err := re.putArrayLength(len(in)); err != nil {
		return err
	}
	for _, s := range in {
		if err := re.putString(s); err != nil {
			return err
		}
	}
	return nil
}

func (re *realEncoder) putCompactStringArray(in []string) error {
	re.putCompactArrayLength(len(in))
	for _, s := range in {
		if err := re.putCompactString(s); err != nil {
			return err
		}
	}
	return nil
}

func (re *realEncoder) putInt32Array(in []int32) error {
	if err := re.putArrayLength(len(in)); err != nil {
		return err
	}
	for _, v := range in {
		re.putInt32(v)
	}
	return nil
}

func (re *realEncoder) putInt64Array(in []int64) error {
	if err := re.putArrayLength(len(in)); err != nil {
		return err
	}
	for _, v := range in {
		re.putInt64(v)
	}
	return nil
}

func (re *realEncoder) putEmptyTaggedFieldArray() {
	re.putUVarint(0)
}

func (re *realEncoder) push(in pushEncoder) {
	in.saveOffset(re.off)
	re.off += in.reserveLength()
	re.stack = append(re.stack, in)
}

func (re *realEncoder) pop() error {
	in := re.stack[len(re.stack)-1]
	re.stack = re.stack[:len(re.stack)-1]
	return in.run(re.off, re.raw)
}

// topicUUID is a convenience helper matching TopicMetadata.ID's encoded form.
func topicUUIDBytes(id uuid.UUID) [16]byte {
	var out [16]byte
	copy(out[:], id[:])
	return out
}
