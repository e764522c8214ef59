package pubsub

import (
	"sync"

	"github.com/panduza/pza-runtime/pkg/pzaerr"
)

// Broker is an in-process Session. Each subscriber owns a buffered queue
// drained by its own goroutine, which is what guarantees per-topic FIFO
// delivery even when a handler is slow: one subscriber stalling never
// blocks delivery to another subscriber on a different topic.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[*brokerSubscriber]struct{}
	queryables  map[string]*brokerQueryable
	closed      bool
}

const subscriberQueueCapacity = 256

// NewBroker creates an empty, ready to use Broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string]map[*brokerSubscriber]struct{}),
		queryables:  make(map[string]*brokerQueryable),
	}
}

type brokerSubscriber struct {
	broker  *Broker
	topic   string
	handler func(Sample)
	queue   chan Sample
	stop    chan struct{}
}

func (s *brokerSubscriber) run() {
	for {
		select {
		case sample := <-s.queue:
			s.handler(sample)
		case <-s.stop:
			return
		}
	}
}

func (s *brokerSubscriber) Cancel() error {
	s.broker.mu.Lock()
	if set, ok := s.broker.subscribers[s.topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(s.broker.subscribers, s.topic)
		}
	}
	s.broker.mu.Unlock()
	close(s.stop)
	return nil
}

type brokerQueryable struct {
	broker  *Broker
	topic   string
	handler func(Query)
}

func (q *brokerQueryable) Cancel() error {
	q.broker.mu.Lock()
	if q.broker.queryables[q.topic] == q {
		delete(q.broker.queryables, q.topic)
	}
	q.broker.mu.Unlock()
	return nil
}

type brokerPublisher struct {
	broker *Broker
	topic  string
}

func (p *brokerPublisher) Put(payload []byte) error {
	return p.broker.publish(p.topic, payload)
}

func (p *brokerPublisher) Undeclare() error { return nil }

// DeclarePublisher returns a Publisher bound to topic.
func (b *Broker) DeclarePublisher(topic string) (Publisher, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, pzaerr.Channel("broker is closed")
	}
	return &brokerPublisher{broker: b, topic: topic}, nil
}

// DeclareSubscriber registers handler to receive every Sample published on
// topic, delivered in FIFO order relative to other samples on that topic.
func (b *Broker) DeclareSubscriber(topic string, handler func(Sample)) (Subscriber, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, pzaerr.Channel("broker is closed")
	}
	sub := &brokerSubscriber{
		broker:  b,
		topic:   topic,
		handler: handler,
		queue:   make(chan Sample, subscriberQueueCapacity),
		stop:    make(chan struct{}),
	}
	set, ok := b.subscribers[topic]
	if !ok {
		set = make(map[*brokerSubscriber]struct{})
		b.subscribers[topic] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	go sub.run()
	return sub, nil
}

// DeclareQueryable registers handler as the single query responder for
// topic, replacing any previous queryable on that topic.
func (b *Broker) DeclareQueryable(topic string, handler func(Query)) (Queryable, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, pzaerr.Channel("broker is closed")
	}
	q := &brokerQueryable{broker: b, topic: topic, handler: handler}
	b.queryables[topic] = q
	b.mu.Unlock()
	return q, nil
}

// Query issues a one-shot query against topic's registered queryable, if
// any, and returns the reply payload. It mirrors the "get" half of a
// zenoh-style queryable and is used for late-join seeding.
func (b *Broker) Query(topic string, payload []byte) ([]byte, bool) {
	b.mu.RLock()
	q, ok := b.queryables[topic]
	b.mu.RUnlock()
	if !ok {
		return nil, false
	}

	// The handler runs synchronously; a handler that returns without
	// calling Reply yields (nil, false).
	var (
		reply []byte
		got   bool
	)
	q.handler(Query{
		Topic:   topic,
		Payload: payload,
		reply: func(p []byte) error {
			reply = p
			got = true
			return nil
		},
	})
	return reply, got
}

func (b *Broker) publish(topic string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return pzaerr.Channel("broker is closed")
	}
	set := b.subscribers[topic]
	samples := make([]*brokerSubscriber, 0, len(set))
	for sub := range set {
		samples = append(samples, sub)
	}
	b.mu.RUnlock()

	for _, sub := range samples {
		select {
		case sub.queue <- Sample{Topic: topic, Payload: payload}:
		default:
			// subscriber queue full: drop rather than block the publisher,
			// matching the best-effort delivery the runtime assumes of its
			// transport.
		}
	}
	return nil
}

// Close tears down every subscriber and queryable and marks the broker
// unusable.
func (b *Broker) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := b.subscribers
	b.subscribers = make(map[string]map[*brokerSubscriber]struct{})
	b.queryables = make(map[string]*brokerQueryable)
	b.mu.Unlock()

	for _, set := range subs {
		for sub := range set {
			close(sub.stop)
		}
	}
	return nil
}
