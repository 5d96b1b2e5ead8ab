package gokafka

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// KafkaVersion represents the minimum broker release a particular request
// version requires, mirroring the requiredVersion() convention
// on every protocolBody implementation.
type KafkaVersion struct {
	version [4]uint
}

func newKafkaVersion(major, minor, veryMinor, patch uint) KafkaVersion {
	return KafkaVersion{[4]uint{major, minor, veryMinor, patch}}
}

func (v KafkaVersion) IsAtLeast(other KafkaVersion) bool {
	for i := range v.version {
		if v.version[i] > other.version[i] {
			return true
		}
		if v.version[i] < other.version[i] {
			return false
		}
	}
	return true
}

func (v KafkaVersion) String() string {
	if v.version[0] == 0 {
		return fmt.Sprintf("0.%d.%d.%d", v.version[1], v.version[2], v.version[3])
	}
	return fmt.Sprintf("%d.%d.%d", v.version[0], v.version[1], v.version[2])
}

// Named broker releases relevant to the API versions this client speaks
//.
var (
	V0_8_2_0  = newKafkaVersion(0, 8, 2, 0)
	V0_9_0_0  = newKafkaVersion(0, 9, 0, 0)
	V0_10_0_0 = newKafkaVersion(0, 10, 0, 0)
	V0_10_1_0 = newKafkaVersion(0, 10, 1, 0)
	V0_10_2_0 = newKafkaVersion(0, 10, 2, 0)
	V0_11_0_0 = newKafkaVersion(0, 11, 0, 0)
	V1_0_0_0  = newKafkaVersion(1, 0, 0, 0)
	V1_1_0_0  = newKafkaVersion(1, 1, 0, 0)
	V2_0_0_0  = newKafkaVersion(2, 0, 0, 0)
	V2_1_0_0  = newKafkaVersion(2, 1, 0, 0)
	V2_2_0_0  = newKafkaVersion(2, 2, 0, 0)
	V2_3_0_0  = newKafkaVersion(2, 3, 0, 0)
	V2_4_0_0  = newKafkaVersion(2, 4, 0, 0)
	V2_5_0_0  = newKafkaVersion(2, 5, 0, 0)
	V2_7_0_0  = newKafkaVersion(2, 7, 0, 0)
	V2_8_0_0  = newKafkaVersion(2, 8, 0, 0)
	V3_5_0_0  = newKafkaVersion(3, 5, 0, 0)

	MinVersion = V0_9_0_0
	MaxVersion = V3_5_0_0
)

// API keys for every request this client supports.
const (
	apiKeyProduce              int16 = 0
	apiKeyFetch                int16 = 1
	apiKeyListOffsets          int16 = 2
	apiKeyMetadata             int16 = 3
	apiKeyOffsetCommit         int16 = 8
	apiKeyOffsetFetch          int16 = 9
	apiKeyFindCoordinator      int16 = 10
	apiKeyJoinGroup            int16 = 11
	apiKeyHeartbeat            int16 = 12
	apiKeyLeaveGroup           int16 = 13
	apiKeySyncGroup            int16 = 14
	apiKeyDescribeGroups       int16 = 15
	apiKeyListGroups           int16 = 16
	apiKeySaslHandshake        int16 = 17
	apiKeyApiVersions          int16 = 18
	apiKeyCreateTopics         int16 = 19
	apiKeyDeleteTopics         int16 = 20
	apiKeyDeleteGroups         int16 = 42
	apiKeyInitProducerId       int16 = 22
	apiKeyAddPartitionsToTxn   int16 = 24
	apiKeyAddOffsetsToTxn      int16 = 25
	apiKeyEndTxn               int16 = 26
	apiKeyTxnOffsetCommit      int16 = 28
	apiKeySaslAuthenticate     int16 = 36
	apiKeyConsumerGroupHeartbeat int16 = 68
)

var apiKeyNames = map[int16]string{
	apiKeyProduce:                "Produce",
	apiKeyFetch:                  "Fetch",
	apiKeyListOffsets:            "ListOffsets",
	apiKeyMetadata:               "Metadata",
	apiKeyOffsetCommit:           "OffsetCommit",
	apiKeyOffsetFetch:            "OffsetFetch",
	apiKeyFindCoordinator:        "FindCoordinator",
	apiKeyJoinGroup:              "JoinGroup",
	apiKeyHeartbeat:              "Heartbeat",
	apiKeyLeaveGroup:             "LeaveGroup",
	apiKeySyncGroup:              "SyncGroup",
	apiKeyDescribeGroups:         "DescribeGroups",
	apiKeyListGroups:             "ListGroups",
	apiKeySaslHandshake:          "SaslHandshake",
	apiKeyApiVersions:            "ApiVersions",
	apiKeyCreateTopics:           "CreateTopics",
	apiKeyDeleteTopics:           "DeleteTopics",
	apiKeyDeleteGroups:           "DeleteGroups",
	apiKeyInitProducerId:         "InitProducerId",
	apiKeyAddPartitionsToTxn:     "AddPartitionsToTxn",
	apiKeyAddOffsetsToTxn:        "AddOffsetsToTxn",
	apiKeyEndTxn:                 "EndTxn",
	apiKeyTxnOffsetCommit:        "TxnOffsetCommit",
	apiKeySaslAuthenticate:       "SaslAuthenticate",
	apiKeyConsumerGroupHeartbeat: "ConsumerGroupHeartbeat",
}

func apiKeyName(key int16) string {
	if name, ok := apiKeyNames[key]; ok {
		return name
	}
	return fmt.Sprintf("ApiKey(%d)", key)
}

// Well known offsets, matching the ConsumePartition(offset) contract.
const (
	OffsetNewest int64 = -1
	OffsetOldest int64 = -2
)

const (
	invalidLeaderEpoch        int32 = -1
	invalidPreferredReplicaID int32 = -1
)

// MaxRequestSize/MaxResponseSize bound what this client will encode/accept,
// guarding against a runaway length prefix turning into an enormous alloc.
const (
	MaxRequestSize  int32 = 100 * 1024 * 1024
	MaxResponseSize int32 = 100 * 1024 * 1024
)

type none struct{}

// Logger is the package-wide diagnostic sink. It defaults to a logrus
// logger with output discarded, exactly mirroring the "Logger
// var StdLogger, defaults to a no-op" ambient pattern, but gives embedders structured fields via logrus instead
// of the standard library's bare *log.Logger.
var Logger StdLogger = newDefaultLogger()

// StdLogger is the minimal surface the logging hook requires.
type StdLogger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

type logrusStdLogger struct {
	entry *logrus.Entry
}

func newDefaultLogger() StdLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel) // silent by default; callers opt in
	return &logrusStdLogger{entry: logrus.NewEntry(l).WithField("component", "gokafka")}
}

func (l *logrusStdLogger) Print(v ...interface{})                 { l.entry.Print(v...) }
func (l *logrusStdLogger) Printf(format string, v ...interface{}) { l.entry.Printf(format, v...) }
func (l *logrusStdLogger) Println(v ...interface{})               { l.entry.Println(v...) }

// SetLogger lets an embedding application override the diagnostic sink,
// e.g. with a *logrus.Logger at Info level routed to its own handlers.
func SetLogger(l StdLogger) {
	if l != nil {
		Logger = l
	}
}

// withRecover runs fn in the calling goroutine's context; when
// PanicHandler is set, a panic in fn is recovered and passed to it instead
// of crashing the process. It wraps the long-lived internal goroutines
// (dispatcher, autocommitLoop, ...).
func withRecover(fn func()) {
	defer func() {
		handleError := PanicHandler
		if handleError != nil {
			if err := recover(); err != nil {
				handleError(err)
			}
		}
	}()
	fn()
}

// PanicHandler is called with the recovered value when an internal
// goroutine panics. Nil (the default) lets the panic propagate and crash
// the process, matching the package default.
var PanicHandler func(interface{})
