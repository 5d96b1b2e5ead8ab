package gokafka

import (
	"time"
)

// Encoder is the interface that wraps the basic Encode method. Anything
// implementing Encoder can be used as the Key or Value of a ProducerMessage.
type Encoder interface {
	Encode() ([]byte, error)
	Length() int
}

// StringEncoder implements Encoder for a plain string.
type StringEncoder string

func (s StringEncoder) Encode() ([]byte, error) { return []byte(s), nil }
func (s StringEncoder) Length() int             { return len(s) }

// ByteEncoder implements Encoder for a raw byte slice.
type ByteEncoder []byte

func (b ByteEncoder) Encode() ([]byte, error) { return b, nil }
func (b ByteEncoder) Length() int             { return len(b) }

// ProducerMessage is the unit of work accepted by the producer. Key and
// Value are Encoders rather than raw bytes so callers can hand in anything
// from a plain string to a pre-serialized protobuf envelope without an
// intermediate copy.
type ProducerMessage struct {
	Topic    string
	Key      Encoder
	Value    Encoder
	Headers  []RecordHeader
	Metadata interface{}

	// Partition is set by the partitioner before the message is sent, or
	// may be set by the caller ahead of time when Config.Producer.Partitioner
	// is a manual partitioner.
	Partition int32
	// Offset is filled in after a successful send. Timestamp is neither
	// sent nor filled in by the producer.
	Offset    int64
	Timestamp time.Time

	retries        int
	flags          flagSet
	expiration     time.Time
	sequenceNumber int32
	producerEpoch  int16
	hasSequence    bool

	// expectation, when set by SyncProducer, receives this message's
	// outcome directly instead of the producer's shared Successes/Errors
	// channels, so concurrent synchronous sends can't steal each other's
	// results.
	expectation chan *ProducerError
}

type flagSet int8

const (
	syn flagSet = 1 << iota
	fin
	shutdown
)

func (m *ProducerMessage) byteSize(version int) int {
	var size int
	if version >= 2 {
		size = recordOverhead
	} else {
		size = producerMessageOverhead
	}
	if m.Key != nil {
		size += m.Key.Length()
	}
	if m.Value != nil {
		size += m.Value.Length()
	}
	if version >= 2 {
		for _, h := range m.Headers {
			size += len(h.Key) + len(h.Value) + 2*binaryVarintOverhead
		}
	}
	return size
}

func (m *ProducerMessage) clear() {
	m.retries = 0
	m.flags = 0
}

const (
	producerMessageOverhead = 26 // overhead for legacy v0/v1 messages
	recordOverhead          = 21 // conservative per-record overhead inside a v2 batch
	binaryVarintOverhead    = 5
)

// ProducerError wraps an error that occurred while attempting to send a
// message, together with the message itself so the caller can retry or log
// it without having correlated it by hand.
type ProducerError struct {
	Msg *ProducerMessage
	Err error
}

func (pe ProducerError) Error() string {
	return "kafka: Failed to produce message to topic " + pe.Msg.Topic + ": " + pe.Err.Error()
}

func (pe ProducerError) Unwrap() error {
	return pe.Err
}

// ProducerErrors is a collection of ProducerError, returned by
// SyncProducer.SendMessages when one or more messages in the batch failed.
type ProducerErrors []*ProducerError

func (pe ProducerErrors) Error() string {
	return "kafka: Failed to deliver messages to topic: " + pe[0].Err.Error()
}
