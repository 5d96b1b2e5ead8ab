package gokafka

import (
	"bufio"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcrowley/go-metrics"
)

// Broker represents a single Kafka broker connection: socket framing,
// correlation-id bookkeeping, and one typed method per API this client
// speaks. Mirrors the Broker contract that admin.go and
// consumer.go already call against (Open, Close, ID, Fetch, ...).
type Broker struct {
	id   int32
	addr string
	rack *string

	conf *Config

	lock sync.Mutex
	conn net.Conn

	correlationID int32

	openRequests chan struct{}
	responses    chan responsePromise
	done         chan struct{}

	apiVersions   map[int16]ApiVersionKeyRange
	apiVersionsMu sync.RWMutex

	registry metrics.Registry
}

// responsePromise is one outstanding request's slot in the in-flight
// queue: Kafka guarantees responses on one connection arrive in the same
// order requests were sent, so correlationID is carried for a sanity
// check rather than used to look the promise up out of order.
type responsePromise struct {
	correlationID int32
	headerVersion int16
	packets       chan []byte
	errs          chan error
}

// NewBroker returns a Broker bound to addr; dial happens on Open.
func NewBroker(addr string) *Broker {
	return &Broker{
		id:   -1,
		addr: addr,
		done: make(chan struct{}),
	}
}

// ID returns the broker's cluster-assigned node ID, or -1 if unknown (a
// seed/bootstrap broker before the first Metadata response resolves it).
func (b *Broker) ID() int32 { return atomic.LoadInt32(&b.id) }

// SetID records the broker's node ID once it's been resolved from Metadata.
func (b *Broker) SetID(id int32) { atomic.StoreInt32(&b.id, id) }

// Addr returns the broker's host:port.
func (b *Broker) Addr() string { return b.addr }

// Rack returns the broker's configured rack, or nil if not reported.
func (b *Broker) Rack() *string { return b.rack }

// Open dials the broker, optionally negotiates TLS and SASL, and starts
// the response-reader goroutine. Calling Open on an already-open Broker is
// a no-op, matching the idempotent-Open contract relied on by
// admin.go's `_ = b.Open(ca.conf)` call in ListConsumerGroups.
func (b *Broker) Open(conf *Config) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.conn != nil {
		return nil
	}
	if conf == nil {
		conf = NewConfig()
	}
	b.conf = conf

	dialer := net.Dialer{Timeout: conf.Net.DialTimeout, KeepAlive: conf.Net.KeepAlive}
	conn, err := dialer.Dial("tcp", b.addr)
	if err != nil {
		return &NetworkError{Cause: err}
	}

	if conf.Net.TLS.Enable {
		tlsConn := tls.Client(conn, conf.Net.TLS.Config)
		if err := tlsConn.Handshake(); err != nil {
			_ = conn.Close()
			return &NetworkError{Cause: err}
		}
		conn = tlsConn
	}

	b.conn = conn
	b.openRequests = make(chan struct{}, conf.Net.MaxOpenRequests)
	b.responses = make(chan responsePromise, conf.Net.MaxOpenRequests)
	b.done = make(chan struct{})
	if conf.MetricRegistry != nil {
		b.registry = conf.MetricRegistry
	}

	go withRecover(b.responseReceiver)

	if err := b.negotiateApiVersions(); err != nil {
		Logger.Printf("kafka: broker/%s: ApiVersions negotiation failed, assuming legacy: %v\n", b.addr, err)
	}

	if conf.Net.SASL.Enable {
		if err := b.authenticateSASL(); err != nil {
			_ = b.closeLocked()
			return &AuthenticationError{Cause: err}
		}
	}

	return nil
}

// Connected reports whether Open has succeeded and the socket hasn't been
// closed since.
func (b *Broker) Connected() (bool, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.conn != nil, nil
}

// Close tears the connection down, failing every request still in flight
// with ErrClosedConnection.
func (b *Broker) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.closeLocked()
}

func (b *Broker) closeLocked() error {
	if b.conn == nil {
		return ErrClosedConnection
	}
	close(b.done)
	err := b.conn.Close()
	b.conn = nil
	return err
}

// negotiateApiVersions sends ApiVersionsRequest v0 (always understood,
// even by brokers older than the flexible-header cutover) and records the
// per-key [min,max] table so every later typed call can pick the highest
// mutually supported version instead of hardcoding one.
func (b *Broker) negotiateApiVersions() error {
	req := &ApiVersionsRequest{Version: 0, ClientSoftwareName: "gokafka", ClientSoftwareVersion: "1.0.0"}
	resp := new(ApiVersionsResponse)
	if err := b.sendAndReceive(req, resp); err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		return resp.Err
	}

	table := make(map[int16]ApiVersionKeyRange, len(resp.ApiKeys))
	for _, k := range resp.ApiKeys {
		table[k.ApiKey] = k
	}
	b.apiVersionsMu.Lock()
	b.apiVersions = table
	b.apiVersionsMu.Unlock()
	return nil
}

// negotiatedVersion clamps want to the broker-advertised [min,max] for
// apiKey, falling back to want unchanged if ApiVersions negotiation never
// completed (legacy broker, or negotiation failed and we're assuming the
// client's own ceiling is safe).
func (b *Broker) negotiatedVersion(apiKey, want int16) int16 {
	b.apiVersionsMu.RLock()
	defer b.apiVersionsMu.RUnlock()
	r, ok := b.apiVersions[apiKey]
	if !ok {
		return want
	}
	if want > r.MaxVersion {
		return r.MaxVersion
	}
	if want < r.MinVersion {
		return r.MinVersion
	}
	return want
}

// send writes req to the wire and, unless it's a fire-and-forget Produce
// (noResponse.expectsResponse() == false), enqueues a responsePromise the
// reader goroutine will fulfill in request order.
func (b *Broker) send(rb protocolBody, promiseResponse bool) (*responsePromise, error) {
	b.lock.Lock()
	conn := b.conn
	b.lock.Unlock()
	if conn == nil {
		return nil, ErrClosedConnection
	}

	if !rb.isValidVersion() {
		return nil, &UnsupportedApiError{API: apiKeyName(rb.key())}
	}

	correlationID := atomic.AddInt32(&b.correlationID, 1)

	req := &request{correlationID: correlationID, clientID: b.conf.ClientID, body: rb}
	buf, err := encode(req, b.registry)
	if err != nil {
		return nil, err
	}

	b.openRequests <- struct{}{}

	if b.conf.Net.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(b.conf.Net.WriteTimeout))
	}
	if _, err := conn.Write(buf); err != nil {
		<-b.openRequests
		return nil, &NetworkError{Cause: err}
	}

	if !promiseResponse {
		<-b.openRequests
		return nil, nil
	}

	promise := responsePromise{
		correlationID: correlationID,
		headerVersion: rb.headerVersion(),
		packets:       make(chan []byte, 1),
		errs:          make(chan error, 1),
	}
	b.responses <- promise
	return &promise, nil
}

// sendAndReceive is the synchronous helper every typed API method below
// uses: send the request, block for the matching response, decode it.
func (b *Broker) sendAndReceive(rb protocolBody, res protocolBody) error {
	promiseResponse := true
	if nr, ok := rb.(noResponse); ok {
		promiseResponse = nr.expectsResponse()
	}

	promise, err := b.send(rb, promiseResponse)
	if err != nil {
		return err
	}
	if !promiseResponse {
		return nil
	}

	select {
	case buf := <-promise.packets:
		res.setVersion(rb.version())
		return versionedDecode(buf, res, rb.version(), b.registry)
	case err := <-promise.errs:
		return err
	}
}

// responseReceiver drains b.responses in order, reading exactly one frame
// per outstanding promise off the shared connection — this is what makes
// the correlation id an in-flight *queue* rather than a map: Kafka never
// reorders responses within one TCP connection.
func (b *Broker) responseReceiver() {
	var reader *bufio.Reader
	b.lock.Lock()
	if b.conn != nil {
		reader = bufio.NewReader(b.conn)
	}
	b.lock.Unlock()
	if reader == nil {
		return
	}

	for {
		select {
		case <-b.done:
			b.drainPending(ErrClosedConnection)
			return
		case promise := <-b.responses:
			buf, err := b.readFullResponse(reader, promise.headerVersion, promise.correlationID)
			<-b.openRequests
			if err != nil {
				promise.errs <- err
				b.drainPending(err)
				return
			}
			promise.packets <- buf
		}
	}
}

func (b *Broker) drainPending(err error) {
	for {
		select {
		case promise := <-b.responses:
			promise.errs <- err
		default:
			return
		}
	}
}

// readFullResponse reads the `i32 size` frame, then the correlation-id
// response header (validating it against what the in-flight queue
// expects), and returns the remaining payload for the typed decoder.
func (b *Broker) readFullResponse(reader *bufio.Reader, headerVersion int16, expectedCorrelationID int32) ([]byte, error) {
	if b.conf.Net.ReadTimeout > 0 {
		_ = b.conn.SetReadDeadline(time.Now().Add(b.conf.Net.ReadTimeout))
	}

	var sizeBytes [4]byte
	if _, err := readFull(reader, sizeBytes[:]); err != nil {
		return nil, &NetworkError{Cause: err}
	}
	size := binary.BigEndian.Uint32(sizeBytes[:])
	if size == 0 || int32(size) > MaxResponseSize {
		return nil, PacketDecodingError{fmt.Sprintf("message of length %d too large or too small", size)}
	}

	body := make([]byte, size)
	if _, err := readFull(reader, body); err != nil {
		return nil, &NetworkError{Cause: err}
	}

	hdrLen := 4
	if headerVersion >= 1 {
		hdrLen++ // empty tagged field array, minimum 1 byte (uvarint 0)
	}
	if len(body) < hdrLen {
		return nil, PacketDecodingError{"response shorter than its header"}
	}

	gotCorrelationID := int32(binary.BigEndian.Uint32(body[:4]))
	if gotCorrelationID != expectedCorrelationID {
		return nil, &UnexpectedCorrelationIdError{Got: gotCorrelationID}
	}

	return body[hdrLen:], nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// versionedDecode decodes buf into res at the given request version with a
// single realDecoder pass, rejecting a decode that leaves a push()
// unresolved, so every typed method below shares the same decode path.
func versionedDecode(buf []byte, res protocolBody, version int16, registry metrics.Registry) error {
	d := &realDecoder{raw: buf}
	if err := res.decode(d, version); err != nil {
		return err
	}
	if len(d.stack) != 0 {
		return PacketDecodingError{"invalid decoder stack state, unresolved push()"}
	}
	return nil
}

// --- typed API methods -----------------------------------------------

func (b *Broker) GetMetadata(request *MetadataRequest) (*MetadataResponse, error) {
	response := new(MetadataResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) Produce(request *ProduceRequest) (*ProduceResponse, error) {
	response := new(ProduceResponse)
	err := b.sendAndReceive(request, response)
	if request.RequiredAcks == NoResponse {
		return nil, err
	}
	return response, err
}

func (b *Broker) Fetch(request *FetchRequest) (*FetchResponse, error) {
	response := new(FetchResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) GetAvailableOffsets(request *ListOffsetsRequest) (*ListOffsetsResponse, error) {
	response := new(ListOffsetsResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) CommitOffset(request *OffsetCommitRequest) (*OffsetCommitResponse, error) {
	response := new(OffsetCommitResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) FetchOffset(request *OffsetFetchRequest) (*OffsetFetchResponse, error) {
	response := new(OffsetFetchResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) FindCoordinator(request *FindCoordinatorRequest) (*FindCoordinatorResponse, error) {
	response := new(FindCoordinatorResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) JoinGroup(request *JoinGroupRequest) (*JoinGroupResponse, error) {
	response := new(JoinGroupResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) SyncGroup(request *SyncGroupRequest) (*SyncGroupResponse, error) {
	response := new(SyncGroupResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) Heartbeat(request *HeartbeatRequest) (*HeartbeatResponse, error) {
	response := new(HeartbeatResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) LeaveGroup(request *LeaveGroupRequest) (*LeaveGroupResponse, error) {
	response := new(LeaveGroupResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) DescribeGroups(request *DescribeGroupsRequest) (*DescribeGroupsResponse, error) {
	response := new(DescribeGroupsResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) ListGroups(request *ListGroupsRequest) (*ListGroupsResponse, error) {
	response := new(ListGroupsResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) DeleteGroups(request *DeleteGroupsRequest) (*DeleteGroupsResponse, error) {
	response := new(DeleteGroupsResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) CreateTopics(request *CreateTopicsRequest) (*CreateTopicsResponse, error) {
	response := new(CreateTopicsResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) DeleteTopics(request *DeleteTopicsRequest) (*DeleteTopicsResponse, error) {
	response := new(DeleteTopicsResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) InitProducerID(request *InitProducerIDRequest) (*InitProducerIDResponse, error) {
	response := new(InitProducerIDResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) AddPartitionsToTxn(request *AddPartitionsToTxnRequest) (*AddPartitionsToTxnResponse, error) {
	response := new(AddPartitionsToTxnResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) AddOffsetsToTxn(request *AddOffsetsToTxnRequest) (*AddOffsetsToTxnResponse, error) {
	response := new(AddOffsetsToTxnResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) EndTxn(request *EndTxnRequest) (*EndTxnResponse, error) {
	response := new(EndTxnResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) TxnOffsetCommit(request *TxnOffsetCommitRequest) (*TxnOffsetCommitResponse, error) {
	response := new(TxnOffsetCommitResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) ConsumerGroupHeartbeat(request *ConsumerGroupHeartbeatRequest) (*ConsumerGroupHeartbeatResponse, error) {
	response := new(ConsumerGroupHeartbeatResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) ApiVersions(request *ApiVersionsRequest) (*ApiVersionsResponse, error) {
	response := new(ApiVersionsResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) SaslHandshake(request *SaslHandshakeRequest) (*SaslHandshakeResponse, error) {
	response := new(SaslHandshakeResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}

func (b *Broker) SaslAuthenticate(request *SaslAuthenticateRequest) (*SaslAuthenticateResponse, error) {
	response := new(SaslAuthenticateResponse)
	err := b.sendAndReceive(request, response)
	return response, err
}
