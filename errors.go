package gokafka

import (
	"errors"
	"fmt"
	"strings"
)

// KError is a numeric error code as returned inline in a Kafka response
// body (the broker's error_code field). It is distinct from the error
// *kinds* below (NetworkError, TimeoutError, ...) — a KError is
// wrapped inside a ProtocolError once the client classifies it.
type KError int16

const (
	ErrNoError                     KError = 0
	ErrUnknown                     KError = -1
	ErrOffsetOutOfRange            KError = 1
	ErrCorruptMessage              KError = 2
	ErrUnknownTopicOrPartition     KError = 3
	ErrInvalidMessageSize          KError = 4
	ErrLeaderNotAvailable          KError = 5
	ErrNotLeaderForPartition       KError = 6
	ErrRequestTimedOut             KError = 7
	ErrBrokerNotAvailable          KError = 8
	ErrReplicaNotAvailable         KError = 9
	ErrMessageSizeTooLarge         KError = 10
	ErrStaleControllerEpochCode    KError = 11
	ErrOffsetMetadataTooLarge      KError = 12
	ErrNetworkException            KError = 13
	ErrOffsetsLoadInProgress       KError = 14
	ErrConsumerCoordinatorNotAvailable KError = 15
	ErrNotCoordinatorForConsumer   KError = 16
	ErrInvalidTopic                KError = 17
	ErrRecordListTooLarge          KError = 18
	ErrNotEnoughReplicas           KError = 19
	ErrNotEnoughReplicasAfterAppend KError = 20
	ErrInvalidRequiredAcks         KError = 21
	ErrIllegalGeneration           KError = 22
	ErrInconsistentGroupProtocol   KError = 23
	ErrInvalidGroupId              KError = 24
	ErrUnknownMemberId             KError = 25
	ErrInvalidSessionTimeout       KError = 26
	ErrRebalanceInProgress         KError = 27
	ErrInvalidCommitOffsetSize     KError = 28
	ErrTopicAuthorizationFailed    KError = 29
	ErrGroupAuthorizationFailed    KError = 30
	ErrClusterAuthorizationFailed  KError = 31
	ErrInvalidTimestamp            KError = 32
	ErrUnsupportedSASLMechanism    KError = 33
	ErrIllegalSASLState            KError = 34
	ErrUnsupportedVersion          KError = 35
	ErrTopicAlreadyExists          KError = 36
	ErrInvalidPartitions           KError = 37
	ErrInvalidReplicationFactor    KError = 38
	ErrInvalidReplicaAssignment    KError = 39
	ErrInvalidConfig               KError = 40
	ErrNotController               KError = 41
	ErrInvalidRequest              KError = 42
	ErrUnsupportedForMessageFormat KError = 43
	ErrPolicyViolation             KError = 44
	ErrOutOfOrderSequenceNumber    KError = 45
	ErrDuplicateSequenceNumber     KError = 46
	ErrInvalidProducerEpoch        KError = 47
	ErrInvalidTxnState             KError = 48
	ErrInvalidProducerIDMapping    KError = 49
	ErrInvalidTransactionTimeout   KError = 50
	ErrConcurrentTransactions      KError = 51
	ErrTransactionCoordinatorFenced KError = 52
	ErrTransactionalIDAuthorizationFailed KError = 53
	ErrSecurityDisabled            KError = 54
	ErrOperationNotAttempted       KError = 55
	ErrFencedInstanceID            KError = 82
	ErrFencedLeaderEpoch           KError = 83
	ErrUnknownLeaderEpoch          KError = 84
	ErrUnknownMemberEpoch          KError = 110
	ErrFencedMemberEpoch           KError = 113
)

var kerrorNames = map[KError]string{
	ErrNoError:                            "NO_ERROR",
	ErrUnknown:                            "UNKNOWN_SERVER_ERROR",
	ErrOffsetOutOfRange:                   "OFFSET_OUT_OF_RANGE",
	ErrCorruptMessage:                     "CORRUPT_MESSAGE",
	ErrUnknownTopicOrPartition:            "UNKNOWN_TOPIC_OR_PARTITION",
	ErrLeaderNotAvailable:                 "LEADER_NOT_AVAILABLE",
	ErrNotLeaderForPartition:              "NOT_LEADER_OR_FOLLOWER",
	ErrRequestTimedOut:                    "REQUEST_TIMED_OUT",
	ErrMessageSizeTooLarge:                "MESSAGE_TOO_LARGE",
	ErrRebalanceInProgress:                "REBALANCE_IN_PROGRESS",
	ErrUnknownMemberId:                    "UNKNOWN_MEMBER_ID",
	ErrInvalidProducerEpoch:               "INVALID_PRODUCER_EPOCH",
	ErrOutOfOrderSequenceNumber:           "OUT_OF_ORDER_SEQUENCE_NUMBER",
	ErrDuplicateSequenceNumber:            "DUPLICATE_SEQUENCE_NUMBER",
	ErrFencedInstanceID:                   "FENCED_INSTANCE_ID",
	ErrFencedLeaderEpoch:                  "FENCED_LEADER_EPOCH",
	ErrUnknownLeaderEpoch:                 "UNKNOWN_LEADER_EPOCH",
	ErrUnknownMemberEpoch:                 "UNKNOWN_MEMBER_EPOCH",
	ErrFencedMemberEpoch:                  "FENCED_MEMBER_EPOCH",
	ErrNotCoordinatorForConsumer:          "NOT_COORDINATOR",
	ErrReplicaNotAvailable:                "REPLICA_NOT_AVAILABLE",
}

func (e KError) Error() string {
	if name, ok := kerrorNames[e]; ok {
		return strings.ToLower(strings.ReplaceAll(name, "_", " "))
	}
	return fmt.Sprintf("kafka server: error code %d", int16(e))
}

// retriableKErrors is ProtocolError.CanRetry's table: a
// curated subset of broker error codes the base client's retry loop treats
// as transient.
var retriableKErrors = map[KError]bool{
	ErrOffsetsLoadInProgress:              true,
	ErrConsumerCoordinatorNotAvailable:    true,
	ErrNotCoordinatorForConsumer:          true,
	ErrLeaderNotAvailable:                 true,
	ErrNotLeaderForPartition:              true,
	ErrRequestTimedOut:                    true,
	ErrReplicaNotAvailable:                true,
	ErrNetworkException:                   true,
	ErrRebalanceInProgress:                true,
	ErrUnknownTopicOrPartition:            true,
	ErrNotController:                      true,
	ErrNotEnoughReplicas:                  true,
	ErrNotEnoughReplicasAfterAppend:       true,
	ErrConcurrentTransactions:             true,
	ErrFencedLeaderEpoch:                  true,
	ErrUnknownLeaderEpoch:                 true,
	ErrDuplicateSequenceNumber:            true, // treated as success, see ProtocolError.CanRetry doc
}

// fatalForIdempotentProducer: these codes are
// fatal for an idempotent producer and require re-initialization rather
// than a retry.
var fatalForIdempotentProducer = map[KError]bool{
	ErrOutOfOrderSequenceNumber: true,
	ErrInvalidProducerEpoch:     true,
	ErrInvalidProducerIDMapping: true,
	ErrInvalidTxnState:          true,
}

// fencesMembership: these codes clear the consumer's
// member identity and force a caller-initiated rejoin.
var fencesMembership = map[KError]bool{
	ErrUnknownMemberId:    true,
	ErrFencedInstanceID:   true,
	ErrUnknownMemberEpoch: true,
	ErrFencedMemberEpoch:  true,
	ErrIllegalGeneration:  true,
}

// refreshesMetadata: any NOT_LEADER_*,
// UNKNOWN_TOPIC_OR_PARTITION, LEADER_NOT_AVAILABLE, or coordinator-moved
// error forces a metadata refresh.
var refreshesMetadata = map[KError]bool{
	ErrNotLeaderForPartition:   true,
	ErrUnknownTopicOrPartition: true,
	ErrLeaderNotAvailable:      true,
	ErrNotCoordinatorForConsumer: true,
	ErrFencedLeaderEpoch:       true,
	ErrUnknownLeaderEpoch:      true,
}

// ErrClosedClient, ErrClosedConsumerGroup, ErrOutOfBrokers etc. are
// sentinel errors surfaced directly to callers (not broker error codes).
var (
	ErrClosedClient        = errors.New("kafka: tried to use a client that was closed")
	ErrClosedConsumerGroup = errors.New("kafka: tried to use a consumer group that was closed")
	ErrOutOfBrokers        = errors.New("kafka: client has run out of available brokers to talk to")
	ErrClosedConnection    = errors.New("kafka: connection closed")
	ErrIncompleteResponse  = errors.New("kafka: response did not contain all the expected topic/partition blocks")
	ErrMessageTooLarge     = errors.New("kafka: message is larger than configured max")
)

// --- error taxonomy -------------------------------------------------------

// NetworkError wraps a transport failure (dial, read, write). can_retry is
// always true.
type NetworkError struct {
	Cause error
	Kind  string // "timeout" | "refused" | ""
}

func (e *NetworkError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("kafka: network error (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("kafka: network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }
func (e *NetworkError) CanRetry() bool { return true }

// TimeoutError is returned when a request's deadline expires before a
// response (or write) completes. can_retry is always true.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string  { return fmt.Sprintf("kafka: timed out waiting for %s", e.Op) }
func (e *TimeoutError) CanRetry() bool { return true }

// AuthenticationError wraps a SASL handshake, credential-provider, or
// token-validator failure. can_retry is always false.
type AuthenticationError struct {
	Cause error
}

func (e *AuthenticationError) Error() string  { return fmt.Sprintf("kafka: authentication failed: %v", e.Cause) }
func (e *AuthenticationError) Unwrap() error  { return e.Cause }
func (e *AuthenticationError) CanRetry() bool { return false }

// ProtocolError wraps a broker-returned KError with the flags the core
// reacts to: CancelMembership, FenceProducer, RefreshMetadata.
type ProtocolError struct {
	Code             KError
	Context          string
	CancelMembership bool
	FenceProducer    bool
	RefreshMetadata  bool
}

func NewProtocolError(code KError, context string) *ProtocolError {
	return &ProtocolError{
		Code:             code,
		Context:          context,
		CancelMembership: fencesMembership[code],
		FenceProducer:    code == ErrInvalidProducerEpoch || code == ErrInvalidProducerIDMapping,
		RefreshMetadata:  refreshesMetadata[code],
	}
}

func (e *ProtocolError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("kafka: %s: %s", e.Context, e.Code.Error())
	}
	return fmt.Sprintf("kafka: %s", e.Code.Error())
}

func (e *ProtocolError) CanRetry() bool {
	if e.Code == ErrDuplicateSequenceNumber {
		// treated as success by the producer, never retried as an error
		return false
	}
	return retriableKErrors[e.Code]
}

// UnsupportedApiError is returned when version negotiation finds no
// mutually-supported version, or the API key is unknown to this client.
type UnsupportedApiError struct {
	API string
}

func (e *UnsupportedApiError) Error() string  { return fmt.Sprintf("kafka: unsupported API %s", e.API) }
func (e *UnsupportedApiError) CanRetry() bool { return false }

// UserError signals invalid arguments or state-machine misuse.
type UserError struct {
	Message string
}

func (e *UserError) Error() string  { return fmt.Sprintf("kafka: %s", e.Message) }
func (e *UserError) CanRetry() bool { return false }

// MultipleErrors aggregates a batch of independent failures (e.g. every
// bootstrap broker failed to connect).
type MultipleErrors struct {
	Message string
	Errors  []error
}

func (e *MultipleErrors) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%s: [%s]", e.Message, strings.Join(parts, "; "))
}

// UnexpectedCorrelationIdError is fatal for the owning connection: a
// response arrived whose correlation id was never (or no longer) in flight.
type UnexpectedCorrelationIdError struct {
	Got int32
}

func (e *UnexpectedCorrelationIdError) Error() string {
	return fmt.Sprintf("kafka: broker sent response for unexpected correlation id %d", e.Got)
}
func (e *UnexpectedCorrelationIdError) CanRetry() bool { return false }

// canRetrier is implemented by every taxonomy kind above; invoke_api_with_retry
// dispatches on it rather than on concrete types.
type canRetrier interface {
	error
	CanRetry() bool
}

// canRetry classifies an arbitrary error returned by the wire layer,
// defaulting to non-retriable for anything outside the taxonomy.
func canRetry(err error) bool {
	var cr canRetrier
	if errors.As(err, &cr) {
		return cr.CanRetry()
	}
	return false
}
