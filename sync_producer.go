package gokafka

// SyncProducer wraps Producer to offer a blocking SendMessage, for callers
// who want request/response semantics instead of draining Successes/Errors
// themselves. It requires Return.Successes and Return.Errors both true.
type SyncProducer interface {
	// SendMessage sends msg, blocking until the broker has acknowledged it
	// (or a send fails), and returns the assigned partition and offset.
	SendMessage(msg *ProducerMessage) (partition int32, offset int64, err error)

	// SendMessages sends the whole batch, blocking until every message has
	// been acknowledged or failed. Returns ProducerErrors if any failed.
	SendMessages(msgs []*ProducerMessage) error

	Close() error
}

type syncProducer struct {
	producer *producer
}

// NewSyncProducer creates a SyncProducer dialing addrs with its own Client.
func NewSyncProducer(addrs []string, conf *Config) (SyncProducer, error) {
	conf = ensureSyncProducerConfig(conf)
	p, err := NewProducer(addrs, conf)
	if err != nil {
		return nil, err
	}
	return &syncProducer{producer: p.(*producer)}, nil
}

// NewSyncProducerFromClient builds a SyncProducer on a caller-owned Client.
func NewSyncProducerFromClient(client Client) (SyncProducer, error) {
	p, err := NewProducerFromClient(client)
	if err != nil {
		return nil, err
	}
	return &syncProducer{producer: p.(*producer)}, nil
}

func ensureSyncProducerConfig(conf *Config) *Config {
	if conf == nil {
		conf = NewConfig()
	}
	conf.Producer.Return.Successes = true
	conf.Producer.Return.Errors = true
	return conf
}

func (sp *syncProducer) SendMessage(msg *ProducerMessage) (int32, int64, error) {
	msg.expectation = make(chan *ProducerError, 1)
	defer func() { msg.expectation = nil }()

	sp.producer.produceMessages([]*ProducerMessage{msg})

	if pe := <-msg.expectation; pe != nil {
		return -1, -1, pe.Err
	}
	return msg.Partition, msg.Offset, nil
}

func (sp *syncProducer) SendMessages(msgs []*ProducerMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	for _, msg := range msgs {
		msg.expectation = make(chan *ProducerError, 1)
	}
	defer func() {
		for _, msg := range msgs {
			msg.expectation = nil
		}
	}()

	sp.producer.produceMessages(msgs)

	var errs ProducerErrors
	for _, msg := range msgs {
		if pe := <-msg.expectation; pe != nil {
			errs = append(errs, pe)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (sp *syncProducer) Close() error {
	return sp.producer.Close()
}
