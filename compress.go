package gokafka

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression: individual codecs are a
// pluggable capability, not reimplemented by this core. Each codec below
// is backed by a real third-party library
// and the core only does enum dispatch + the xerial/LZ4 framing Kafka
// itself expects on the wire.

var xerialSnappyMagic = []byte{130, 83, 78, 65, 80, 80, 89, 0}

// compress dispatches by codec enum to the registered compressor. level ==
// DefaultCompressionLevel lets the codec pick its own library default.
func compress(cc CompressionCodec, level int, data []byte) ([]byte, error) {
	switch cc {
	case CompressionNone:
		return data, nil
	case CompressionGZIP:
		return compressGzip(level, data)
	case CompressionSnappy:
		return compressSnappyXerial(data), nil
	case CompressionLZ4:
		return compressLZ4(data)
	case CompressionZSTD:
		return compressZstd(level, data)
	default:
		return nil, PacketEncodingError{fmt.Sprintf("unsupported compression codec (%d)", cc)}
	}
}

// decompress is the symmetric counterpart; the core requires every
// registered codec to satisfy compress∘decompress == identity.
func decompress(cc CompressionCodec, data []byte) ([]byte, error) {
	switch cc {
	case CompressionNone:
		return data, nil
	case CompressionGZIP:
		return decompressGzip(data)
	case CompressionSnappy:
		return decompressSnappy(data)
	case CompressionLZ4:
		return decompressLZ4(data)
	case CompressionZSTD:
		return decompressZstd(data)
	default:
		return nil, PacketDecodingError{fmt.Sprintf("unsupported compression codec (%d)", cc)}
	}
}

func compressGzip(level int, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	lvl := level
	if lvl == DefaultCompressionLevel {
		lvl = gzip.DefaultCompression
	}
	w, err := gzip.NewWriterLevel(&buf, lvl)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// compressSnappyXerial frames snappy-compressed blocks the way the Kafka
// Java client's "xerial" snappy wrapper does: an 8-byte magic header
// ("\x82SNAPPY\x00"), a 4-byte minimum-compatible-version, a 4-byte
// current version, then a sequence of [4-byte big-endian block length][raw
// snappy block] chunks.
func compressSnappyXerial(data []byte) []byte {
	var buf bytes.Buffer
	buf.Write(xerialSnappyMagic)
	_ = binary.Write(&buf, binary.BigEndian, int32(1))
	_ = binary.Write(&buf, binary.BigEndian, int32(1))

	const maxChunk = 32 * 1024
	for len(data) > 0 {
		chunkLen := maxChunk
		if chunkLen > len(data) {
			chunkLen = len(data)
		}
		chunk := data[:chunkLen]
		data = data[chunkLen:]

		compressed := snappy.Encode(nil, chunk)
		_ = binary.Write(&buf, binary.BigEndian, int32(len(compressed)))
		buf.Write(compressed)
	}
	return buf.Bytes()
}

func decompressSnappy(data []byte) ([]byte, error) {
	if len(data) >= len(xerialSnappyMagic) && bytes.Equal(data[:len(xerialSnappyMagic)], xerialSnappyMagic) {
		return decompressSnappyXerial(data)
	}
	return snappy.Decode(nil, data)
}

func decompressSnappyXerial(data []byte) ([]byte, error) {
	pos := len(xerialSnappyMagic) + 8 // magic + min-version + version
	var out []byte
	for pos < len(data) {
		if pos+4 > len(data) {
			return nil, PacketDecodingError{"truncated xerial snappy chunk length"}
		}
		chunkLen := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if pos+chunkLen > len(data) {
			return nil, PacketDecodingError{"truncated xerial snappy chunk"}
		}
		decoded, err := snappy.Decode(nil, data[pos:pos+chunkLen])
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
		pos += chunkLen
	}
	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.ChecksumOption(true), lz4.BlockChecksumOption(false)); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}

func compressZstd(level int, data []byte) ([]byte, error) {
	lvl := zstd.SpeedDefault
	if level != DefaultCompressionLevel {
		lvl = zstd.EncoderLevelFromZstd(level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(lvl))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
