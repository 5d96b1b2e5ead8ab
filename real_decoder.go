package gokafka

import (
	"encoding/binary"
	"math"
)

var errInvalidArrayLength = PacketDecodingError{Info: "invalid array length"}
var errInvalidByteSliceLength = PacketDecodingError{Info: "invalid byteslice length"}
var errInvalidStringLength = PacketDecodingError{Info: "invalid string length"}
var errInvalidSubsetSize = PacketDecodingError{Info: "invalid subset size"}
var errVarintOverflow = PacketDecodingError{Info: "varint overflow"}
var errUVarintOverflow = PacketDecodingError{Info: "uvarint overflow"}
var errInvalidBool = PacketDecodingError{Info: "invalid bool"}

// realDecoder is the concrete packetDecoder that reads sequentially out of a
// byte slice received over the wire.
type realDecoder struct {
	raw   []byte
	off   int
	stack []pushDecoder
}

func (rd *realDecoder) remaining() int {
	return len(rd.raw) - rd.off
}

func (rd *realDecoder) getInt8() (int8, error) {
	if rd.remaining() < 1 {
		return -1, ErrInsufficientData
	}
	tmp := int8(rd.raw[rd.off])
	rd.off++
	return tmp, nil
}

func (rd *realDecoder) getInt16() (int16, error) {
	if rd.remaining() < 2 {
		return -1, ErrInsufficientData
	}
	tmp := int16(binary.BigEndian.Uint16(rd.raw[rd.off:]))
	rd.off += 2
	return tmp, nil
}

func (rd *realDecoder) getInt32() (int32, error) {
	if rd.remaining() < 4 {
		return -1, ErrInsufficientData
	}
	tmp := int32(binary.BigEndian.Uint32(rd.raw[rd.off:]))
	rd.off += 4
	return tmp, nil
}

func (rd *realDecoder) getInt64() (int64, error) {
	if rd.remaining() < 8 {
		return -1, ErrInsufficientData
	}
	tmp := int64(binary.BigEndian.Uint64(rd.raw[rd.off:]))
	rd.off += 8
	return tmp, nil
}

func (rd *realDecoder) getVarint() (int64, error) {
	tmp, n := binary.Varint(rd.raw[rd.off:])
	if n <= 0 {
		return -1, errVarintOverflow
	}
	rd.off += n
	return tmp, nil
}

func (rd *realDecoder) getUVarint() (uint64, error) {
	tmp, n := binary.Uvarint(rd.raw[rd.off:])
	if n <= 0 {
		return 0, errUVarintOverflow
	}
	rd.off += n
	return tmp, nil
}

func (rd *realDecoder) getFloat64() (float64, error) {
	if rd.remaining() < 8 {
		return -1, ErrInsufficientData
	}
	tmp := math.Float64frombits(binary.BigEndian.Uint64(rd.raw[rd.off:]))
	rd.off += 8
	return tmp, nil
}

func (rd *realDecoder) getArrayLength() (int, error) {
	if rd.remaining() < 4 {
		return -1, ErrInsufficientData
	}
	tmp := int(int32(binary.BigEndian.Uint32(rd.raw[rd.off:])))
	rd.off += 4
	if tmp > rd.remaining() && tmp > 2*math.MaxUint16 {
		return -1, errInvalidArrayLength
	}
	return tmp, nil
}

func (rd *realDecoder) getCompactArrayLength() (int, error) {
	n, err := rd.getUVarint()
	if err != nil {
		return -1, err
	}
	if n == 0 {
		return -1, nil
	}
	return int(n) - 1, nil
}

func (rd *realDecoder) getBool() (bool, error) {
	b, err := rd.getInt8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errInvalidBool
	}
}

func (rd *realDecoder) getEmptyTaggedFieldArray() (int, error) {
	n, err := rd.getUVarint()
	if err != nil {
		return 0, err
	}
	// a flexible body may legitimately carry tags we don't understand; skip
	// each tag's (tag, size) then its raw bytes.
	for i := uint64(0); i < n; i++ {
		if _, err := rd.getUVarint(); err != nil { // tag
			return 0, err
		}
		size, err := rd.getUVarint()
		if err != nil {
			return 0, err
		}
		if _, err := rd.getRawBytes(int(size)); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

func (rd *realDecoder) getUUID() ([16]byte, error) {
	var out [16]byte
	if rd.remaining() < 16 {
		return out, ErrInsufficientData
	}
	copy(out[:], rd.raw[rd.off:rd.off+16])
	rd.off += 16
	return out, nil
}

func (rd *realDecoder) getRawBytes(length int) ([]byte, error) {
	if length < 0 {
		return nil, errInvalidByteSliceLength
	} else if length == 0 {
		return nil, nil
	}
	if rd.remaining() < length {
		return nil, ErrInsufficientData
	}
	start := rd.off
	rd.off += length
	return rd.raw[start:rd.off], nil
}

func (rd *realDecoder) getBytes() ([]byte, error) {
	tmp, err := rd.getInt32()
	if err != nil {
		return nil, err
	}
	if tmp == -1 {
		return nil, nil
	}
	return rd.getRawBytes(int(tmp))
}

func (rd *realDecoder) getVarintBytes() ([]byte, error) {
	tmp, err := rd.getVarint()
	if err != nil {
		return nil, err
	}
	if tmp == -1 {
		return nil, nil
	}
	return rd.getRawBytes(int(tmp))
}

func (rd *realDecoder) getCompactBytes() ([]byte, error) {
	n, err := rd.getUVarint()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return rd.getRawBytes(int(n) - 1)
}

func (rd *realDecoder) getStringLength() (int, error) {
	length, err := rd.getInt16()
	if err != nil {
		return 0, err
	}
	n := int(length)
	switch {
	case n < -1:
		return 0, errInvalidStringLength
	case n == -1:
		return -1, nil
	case n > rd.remaining():
		return 0, ErrInsufficientData
	}
	return n, nil
}

func (rd *realDecoder) getString() (string, error) {
	n, err := rd.getStringLength()
	if err != nil || n == -1 {
		return "", err
	}
	start := rd.off
	rd.off += n
	return string(rd.raw[start:rd.off]), nil
}

func (rd *realDecoder) getNullableString() (*string, error) {
	n, err := rd.getStringLength()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	start := rd.off
	rd.off += n
	s := string(rd.raw[start:rd.off])
	return &s, nil
}

func (rd *realDecoder) getCompactString() (string, error) {
	b, err := rd.getCompactBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (rd *realDecoder) getCompactNullableString() (*string, error) {
	b, err := rd.getCompactBytes()
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	s := string(b)
	return &s, nil
}

func (rd *realDecoder) getInt32Array() ([]int32, error) {
	n, err := rd.getArrayLength()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if rd.remaining() < 4*n {
		return nil, ErrInsufficientData
	}
	ret := make([]int32, n)
	for i := range ret {
		ret[i] = int32(binary.BigEndian.Uint32(rd.raw[rd.off:]))
		rd.off += 4
	}
	return ret, nil
}

func (rd *realDecoder) getCompactInt32Array() ([]int32, error) {
	n, err := rd.getCompactArrayLength()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	if rd.remaining() < 4*n {
		return nil, ErrInsufficientData
	}
	ret := make([]int32, n)
	for i := range ret {
		ret[i] = int32(binary.BigEndian.Uint32(rd.raw[rd.off:]))
		rd.off += 4
	}
	return ret, nil
}

func (rd *realDecoder) getInt64Array() ([]int64, error) {
	n, err := rd.getArrayLength()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if rd.remaining() < 8*n {
		return nil, ErrInsufficientData
	}
	ret := make([]int64, n)
	for i := range ret {
		ret[i] = int64(binary.BigEndian.Uint64(rd.raw[rd.off:]))
		rd.off += 8
	}
	return ret, nil
}

func (rd *realDecoder) getStringArray() ([]string, error) {
	n, err := rd.getArrayLength()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	ret := make([]string, n)
	for i := range ret {
		if ret[i], err = rd.getString(); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (rd *realDecoder) getSubset(length int) (packetDecoder, error) {
	buf, err := rd.getRawBytes(length)
	if err != nil {
		return nil, err
	}
	return &realDecoder{raw: buf}, nil
}

func (rd *realDecoder) peek(offset, length int) (packetDecoder, error) {
	if rd.remaining() < offset+length {
		return nil, ErrInsufficientData
	}
	off := rd.off + offset
	return &realDecoder{raw: rd.raw[off : off+length]}, nil
}

func (rd *realDecoder) peekInt8(offset int) (int8, error) {
	if rd.remaining() < offset+1 {
		return -1, ErrInsufficientData
	}
	return int8(rd.raw[rd.off+offset]), nil
}

func (rd *realDecoder) push(in pushDecoder) error {
	in.saveOffset(rd.off)

	reserve := in.reserveLength()
	if rd.remaining() < reserve {
		return ErrInsufficientData
	}

	rd.stack = append(rd.stack, in)
	rd.off += reserve
	return nil
}

func (rd *realDecoder) pop() error {
	in := rd.stack[len(rd.stack)-1]
	rd.stack = rd.stack[:len(rd.stack)-1]
	return in.check(rd.off, rd.raw)
}
