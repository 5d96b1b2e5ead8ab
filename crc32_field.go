package gokafka

import (
	"encoding/binary"
	"hash/crc32"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// crc32Field implements the push/pop protocol for the record batch's
// CRC-32C (Castagnoli) checksum: it is computed over every byte written
// after the crc field itself, written on encode, and verified on decode —
// a mismatch on decode is a hard CorruptMessage failure,
// never a silent pass-through.
type crc32Field struct {
	startOffset int
}

func (c *crc32Field) saveOffset(in int) {
	c.startOffset = in
}

func (c *crc32Field) reserveLength() int {
	return 4
}

func (c *crc32Field) run(curOffset int, buf []byte) error {
	crc := crc32.Checksum(buf[c.startOffset+4:curOffset], castagnoliTable)
	binary.BigEndian.PutUint32(buf[c.startOffset:], crc)
	return nil
}

func (c *crc32Field) check(curOffset int, buf []byte) error {
	crc := crc32.Checksum(buf[c.startOffset+4:curOffset], castagnoliTable)
	expected := binary.BigEndian.Uint32(buf[c.startOffset:])
	if crc != expected {
		return ErrCorruptMessage
	}
	return nil
}
