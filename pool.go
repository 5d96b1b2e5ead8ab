package gokafka

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// pooledBroker pairs one Broker with the circuit breaker guarding calls to
// it: once Broker.Open starts failing repeatedly, the breaker trips and
// short-circuits further attempts instead of piling up dial timeouts.
type pooledBroker struct {
	broker  *Broker
	breaker *gobreaker.CircuitBreaker
}

// brokerPool is the connection pool (C3): a broker-id-keyed map of
// connections, coalescing concurrent opens to the same broker and
// tripping a circuit breaker per broker on repeated failure.
type brokerPool struct {
	conf *Config

	lock    sync.Mutex
	entries map[int32]*pooledBroker
	byAddr  map[string]*pooledBroker

	// opening coalesces concurrent Open() calls for the same broker so N
	// goroutines racing to talk to a newly-discovered leader dial exactly
	// once.
	opening map[int32]chan struct{}
}

func newBrokerPool(conf *Config) *brokerPool {
	return &brokerPool{
		conf:    conf,
		entries: make(map[int32]*pooledBroker),
		byAddr:  make(map[string]*pooledBroker),
		opening: make(map[int32]chan struct{}),
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// addSeed registers a bootstrap broker by address, before its node ID is
// known from any Metadata response.
func (p *brokerPool) addSeed(addr string) *Broker {
	p.lock.Lock()
	defer p.lock.Unlock()
	if e, ok := p.byAddr[addr]; ok {
		return e.broker
	}
	b := NewBroker(addr)
	e := &pooledBroker{broker: b, breaker: newCircuitBreaker(addr)}
	p.byAddr[addr] = e
	return b
}

// register promotes a seed (or adds a brand new) broker once its node ID
// is known from cluster metadata.
func (p *brokerPool) register(nodeID int32, addr string) *Broker {
	p.lock.Lock()
	defer p.lock.Unlock()

	if e, ok := p.entries[nodeID]; ok {
		return e.broker
	}
	if e, ok := p.byAddr[addr]; ok {
		e.broker.SetID(nodeID)
		p.entries[nodeID] = e
		delete(p.byAddr, addr)
		return e.broker
	}

	b := NewBroker(addr)
	b.SetID(nodeID)
	e := &pooledBroker{broker: b, breaker: newCircuitBreaker(addr)}
	p.entries[nodeID] = e
	return b
}

// get returns an opened broker for nodeID, coalescing concurrent opens and
// running the dial through the per-broker circuit breaker.
func (p *brokerPool) get(nodeID int32) (*Broker, error) {
	p.lock.Lock()
	e, ok := p.entries[nodeID]
	if !ok {
		p.lock.Unlock()
		return nil, ErrOutOfBrokers
	}
	if ch, opening := p.opening[nodeID]; opening {
		p.lock.Unlock()
		<-ch
		return p.get(nodeID)
	}
	ch := make(chan struct{})
	p.opening[nodeID] = ch
	p.lock.Unlock()

	defer func() {
		p.lock.Lock()
		delete(p.opening, nodeID)
		p.lock.Unlock()
		close(ch)
	}()

	_, err := e.breaker.Execute(func() (interface{}, error) {
		return nil, e.broker.Open(p.conf)
	})
	if err != nil {
		return nil, err
	}
	return e.broker, nil
}

// getFirstAvailable opens and returns any broker in the pool, trying
// registered brokers before falling back to seeds — used for bootstrap and
// cluster-wide metadata refreshes that don't care which broker answers.
func (p *brokerPool) getFirstAvailable() (*Broker, error) {
	p.lock.Lock()
	candidates := make([]*pooledBroker, 0, len(p.entries)+len(p.byAddr))
	for _, e := range p.entries {
		candidates = append(candidates, e)
	}
	for _, e := range p.byAddr {
		candidates = append(candidates, e)
	}
	p.lock.Unlock()

	var lastErr error
	for _, e := range candidates {
		_, err := e.breaker.Execute(func() (interface{}, error) {
			return nil, e.broker.Open(p.conf)
		})
		if err != nil {
			lastErr = err
			continue
		}
		return e.broker, nil
	}
	if lastErr == nil {
		lastErr = ErrOutOfBrokers
	}
	return nil, lastErr
}

// all returns every broker currently known to the pool, seeds included.
func (p *brokerPool) all() []*Broker {
	p.lock.Lock()
	defer p.lock.Unlock()
	out := make([]*Broker, 0, len(p.entries)+len(p.byAddr))
	for _, e := range p.entries {
		out = append(out, e.broker)
	}
	for _, e := range p.byAddr {
		out = append(out, e.broker)
	}
	return out
}

// isActive reports whether nodeID currently has an open connection.
func (p *brokerPool) isActive(nodeID int32) bool {
	p.lock.Lock()
	e, ok := p.entries[nodeID]
	p.lock.Unlock()
	if !ok {
		return false
	}
	connected, _ := e.broker.Connected()
	return connected
}

// close shuts every pooled broker down.
func (p *brokerPool) close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	var firstErr error
	for _, e := range p.entries {
		if err := e.broker.Close(); err != nil && err != ErrClosedConnection && firstErr == nil {
			firstErr = err
		}
	}
	for _, e := range p.byAddr {
		if err := e.broker.Close(); err != nil && err != ErrClosedConnection && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
