package gokafka

import "encoding/binary"

// lengthField implements the push/pop protocol for a field whose value is
// the byte length of everything written between push() and pop() — used
// both for top-level frames (`i32 size`) and for legacy message sets.
type lengthField struct {
	startOffset int
}

func (l *lengthField) saveOffset(in int) {
	l.startOffset = in
}

func (l *lengthField) reserveLength() int {
	return 4
}

func (l *lengthField) run(curOffset int, buf []byte) error {
	binary.BigEndian.PutUint32(buf[l.startOffset:], uint32(curOffset-l.startOffset-4))
	return nil
}

func (l *lengthField) check(curOffset int, buf []byte) error {
	if curOffset-l.startOffset-4 != int(binary.BigEndian.Uint32(buf[l.startOffset:])) {
		return PacketDecodingError{"length field invalid"}
	}
	return nil
}

// varintLengthField is the flexible-protocol analogue: the length prefix is
// an unsigned varint rather than a fixed i32, so its own encoded width can
// change once the body size is known. This implements dynamicPushEncoder so
// the caller can shift already-written bytes if the varint grows.
type varintLengthField struct {
	startOffset int
	length      int
}

func (l *varintLengthField) saveOffset(in int) {
	l.startOffset = in
}

func (l *varintLengthField) adjustLength(currOffset int) int {
	l.length = currOffset - l.startOffset - reservedLength(l.length)
	return reservedLength(l.length) - reservedLength(0)
}

func (l *varintLengthField) reserveLength() int {
	var tmp [binary.MaxVarintLen64]byte
	return binary.PutUvarint(tmp[:], uint64(l.length))
}

func (l *varintLengthField) run(curOffset int, buf []byte) error {
	binary.PutUvarint(buf[l.startOffset:], uint64(l.length))
	return nil
}

func (l *varintLengthField) check(curOffset int, buf []byte) error {
	if curOffset-l.startOffset-l.reserveLength() != l.length {
		return PacketDecodingError{"varint length field invalid"}
	}
	return nil
}

func reservedLength(n int) int {
	var tmp [binary.MaxVarintLen64]byte
	return binary.PutUvarint(tmp[:], uint64(n))
}
