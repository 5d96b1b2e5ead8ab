package gokafka

import (
	"fmt"
	"time"
)

// packetEncoder is the interface providing helpers for writing with Kafka's
// frame and type conventions. Types implementing encoder are responsible for
// calling these helpers in the correct order as described by the Kafka
// protocol definitions.
type packetEncoder interface {
	// primitives
	putInt8(in int8)
	putInt16(in int16)
	putInt32(in int32)
	putInt64(in int64)
	putVarint(in int64)
	putUVarint(in uint64)
	putFloat64(in float64)
	putArrayLength(in int) error
	putCompactArrayLength(in int)
	putBool(in bool)
	putUUID(in [16]byte)

	// arrays
	putBytes(in []byte) error
	putVarintBytes(in []byte) error
	putCompactBytes(in []byte) error
	putRawBytes(in []byte) error
	putCompactString(in string) error
	putNullableCompactString(in *string) error
	putString(in string) error
	putNullableString(in *string) error
	putStringArray(in []string) error
	putCompactStringArray(in []string) error
	putInt32Array(in []int32) error
	putInt64Array(in []int64) error
	putEmptyTaggedFieldArray()

	// stacks, see PushEncoder
	push(in pushEncoder)
	pop() error
}

// packetDecoder is the interface providing helpers for reading with Kafka's
// frame and type conventions. Types implementing decoder are responsible for
// reading fields in the same order in which they were written.
type packetDecoder interface {
	// primitives
	getInt8() (int8, error)
	getInt16() (int16, error)
	getInt32() (int32, error)
	getInt64() (int64, error)
	getVarint() (int64, error)
	getUVarint() (uint64, error)
	getFloat64() (float64, error)
	getArrayLength() (int, error)
	getCompactArrayLength() (int, error)
	getBool() (bool, error)
	getEmptyTaggedFieldArray() (int, error)
	getUUID() ([16]byte, error)

	// arrays
	getBytes() ([]byte, error)
	getVarintBytes() ([]byte, error)
	getCompactBytes() ([]byte, error)
	getRawBytes(length int) ([]byte, error)
	getString() (string, error)
	getNullableString() (*string, error)
	getCompactString() (string, error)
	getCompactNullableString() (*string, error)
	getCompactInt32Array() ([]int32, error)
	getInt32Array() ([]int32, error)
	getInt64Array() ([]int64, error)
	getStringArray() ([]string, error)

	// subsets
	remaining() int
	getSubset(length int) (packetDecoder, error)
	peek(offset, length int) (packetDecoder, error)
	peekInt8(offset int) (int8, error)

	// stacks, see PushDecoder
	push(in pushDecoder) error
	pop() error
}

// pushEncoder is the interface for encoding fields whose values require
// information about the length of the rest of the message before they can be
// encoded (length or CRC fields). Such a field sets itself as the current
// pushEncoder, writes a placeholder, and returns control; when the structure
// is done encoding, calling pop() once more computes and overwrites the
// placeholder.
type pushEncoder interface {
	// saveOffset marks the current position so the eventual pop() can
	// overwrite the reserved bytes.
	saveOffset(in int)
	// reserveLength returns the number of placeholder bytes needed.
	reserveLength() int
	// run is called once the enclosing structure is completely encoded.
	run(curOffset int, buf []byte) error
}

// pushDecoder is the mirror of pushEncoder used during decode to validate
// length-prefixed or CRC-protected fields.
type pushDecoder interface {
	saveOffset(in int)
	reserveLength() int
	check(curOffset int, buf []byte) error
}

// dynamicPushEncoder extends pushEncoder for fields that need to adjust
// their own encoded width after encoding completes (compact/varint length
// prefixes).
type dynamicPushEncoder interface {
	pushEncoder

	adjustLength(currOffset int) int
}

type encoderWithHeaders interface {
	packetEncoder
	headerVersion() int16
}

type encoderVersionChecker interface {
	isValidVersion() bool
	version() int16
}

// encode runs a two-pass encode of e: a prepEncoder tally pass to size the
// buffer exactly, then a realEncoder pass that writes into it. metricRegistry
// is accepted for signature parity and is not used.
func encode(e encoder, metricRegistry interface{}) ([]byte, error) {
	if e == nil {
		return nil, nil
	}

	var prepEnc prepEncoder
	var realEnc realEncoder

	err := e.encode(&prepEnc)
	if err != nil {
		return nil, err
	}

	if prepEnc.length < 0 || prepEnc.length > int(MaxRequestSize) {
		return nil, PacketEncodingError{fmt.Sprintf("invalid request size (%d)", prepEnc.length)}
	}

	realEnc.raw = make([]byte, prepEnc.length)
	err = e.encode(&realEnc)
	if err != nil {
		return nil, err
	}

	return realEnc.raw, nil
}

// decode parses buf into in using a single realDecoder pass.
func decode(buf []byte, in decoder, metricRegistry interface{}) error {
	if len(buf) == 0 {
		return nil
	}
	d := &realDecoder{raw: buf}
	if err := in.decode(d); err != nil {
		return err
	}
	if len(d.stack) != 0 {
		return PacketDecodingError{"invalid decoder stack state, unresolved push()"}
	}
	return nil
}

// Each request/response pair implements this small interface; the
// implementation is generated per Kafka API
// and lives in the <api>_request.go / <api>_response.go files.
type protocolBody interface {
	versionedDecoder
	encoder
	key() int16
	version() int16
	setVersion(v int16)
	headerVersion() int16
	isValidVersion() bool
	requiredVersion() KafkaVersion
}

type encoder interface {
	encode(pe packetEncoder) error
}

type decoder interface {
	decode(pd packetDecoder) error
}

type versionedDecoder interface {
	decode(pd packetDecoder, version int16) error
}

// throttleAwareResponse is implemented by every response body so the client
// can surface the broker-reported throttle delay uniformly.
type throttleAwareResponse interface {
	throttleTime() time.Duration
}

// noResponse is implemented by request bodies whose acks=0 semantics mean
// the broker never sends a response frame back (fire-and-forget Produce).
type noResponse interface {
	expectsResponse() bool
}
