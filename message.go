package gokafka

import (
	"fmt"
	"time"
)

// CompressionCodec represents the low 3 bits of a legacy message's (or v2
// batch's) attributes field.
type CompressionCodec int8

const (
	CompressionNone   CompressionCodec = 0
	CompressionGZIP   CompressionCodec = 1
	CompressionSnappy CompressionCodec = 2
	CompressionLZ4    CompressionCodec = 3
	CompressionZSTD   CompressionCodec = 4

	compressionCodecMask int8 = 0x07
)

func (cc CompressionCodec) String() string {
	switch cc {
	case CompressionNone:
		return "none"
	case CompressionGZIP:
		return "gzip"
	case CompressionSnappy:
		return "snappy"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", int8(cc))
	}
}

func (cc *CompressionCodec) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*cc = CompressionNone
	case "gzip":
		*cc = CompressionGZIP
	case "snappy":
		*cc = CompressionSnappy
	case "lz4":
		*cc = CompressionLZ4
	case "zstd":
		*cc = CompressionZSTD
	default:
		return PacketDecodingError{fmt.Sprintf("unknown compression codec: %q", text)}
	}
	return nil
}

// CompressionLevel carries a codec-specific tuning knob; DefaultCompressionLevel
// tells each codec's compressor to use its own library default.
const DefaultCompressionLevel = -1000

// Message is a single legacy (magic 0/1) Kafka message, as opposed to the
// v2 record batch format (record.go/record_batch.go). Kept for wire
// compatibility with brokers/topics still on the pre-KIP-98 log format and
// because consumer.go parses both.
type Message struct {
	Codec            CompressionCodec // codec used to compress the message contents
	CompressionLevel int              // compression level
	LogAppendTime    bool             // the used timestamp is LogAppendTime
	Key              []byte           // the message key
	Value            []byte           // the message contents
	Set              *MessageSet      // the message set a compressed message contains
	Version          int8             // message format version
	Timestamp        time.Time        // the timestamp of the message (version 1+ only)

	compressedCache []byte
	compressedSize  int // size of the last encoded (possibly compressed) body
}

func (m *Message) encode(pe packetEncoder) error {
	pe.push(&crc32Field{})

	pe.putInt8(m.Version)

	attributes := int8(m.Codec) & compressionCodecMask
	if m.LogAppendTime {
		attributes |= 0x08
	}
	pe.putInt8(attributes)

	if m.Version >= 1 {
		timestamp := m.Timestamp
		if timestamp.IsZero() {
			timestamp = time.Unix(0, 0)
		}
		pe.putInt64(timestamp.UnixNano() / int64(time.Millisecond))
	}

	err := pe.putBytes(m.Key)
	if err != nil {
		return err
	}

	var body []byte
	if m.Set != nil {
		body, err = encode(m.Set, nil)
		if err != nil {
			return err
		}
	} else {
		body = m.Value
	}

	if m.compressedCache != nil {
		body = m.compressedCache
		m.compressedCache = nil
	} else if m.Codec != CompressionNone && body != nil {
		body, err = compress(m.Codec, m.CompressionLevel, body)
		if err != nil {
			return err
		}
		m.compressedCache = body
	}
	m.compressedSize = len(body)

	if err = pe.putBytes(body); err != nil {
		return err
	}

	return pe.pop()
}

func (m *Message) decode(pd packetDecoder) (err error) {
	err = pd.push(&crc32Field{})
	if err != nil {
		return err
	}

	m.Version, err = pd.getInt8()
	if err != nil {
		return err
	}

	if m.Version > 1 {
		return PacketDecodingError{fmt.Sprintf("unknown magic byte (%v)", m.Version)}
	}

	attribute, err := pd.getInt8()
	if err != nil {
		return err
	}
	m.Codec = CompressionCodec(attribute & compressionCodecMask)
	m.LogAppendTime = attribute&0x08 != 0

	if m.Version == 1 {
		millis, err := pd.getInt64()
		if err != nil {
			return err
		}
		if millis != -1 {
			m.Timestamp = time.Unix(millis/1000, (millis%1000)*int64(time.Millisecond))
		}
	}

	m.Key, err = pd.getBytes()
	if err != nil {
		return err
	}

	m.Value, err = pd.getBytes()
	if err != nil {
		return err
	}

	if m.Codec != CompressionNone && m.Value != nil {
		decompressed, err := decompress(m.Codec, m.Value)
		if err != nil {
			return err
		}
		m.Value = decompressed
		if m.Set, err = decodeMessageSetInner(decompressed); err != nil {
			return err
		}
	}

	return pd.pop()
}

func decodeMessageSetInner(raw []byte) (*MessageSet, error) {
	set := &MessageSet{}
	if err := decode(raw, set, nil); err != nil {
		return nil, err
	}
	return set, nil
}
