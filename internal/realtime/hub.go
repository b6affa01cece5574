// Package realtime fans out row-insert events to live subscribers.
package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Hub.
type Option func(*options)

type options struct {
	gauge prometheus.Gauge
}

// WithSubscriberGauge tracks the number of live subscriptions in g.
func WithSubscriberGauge(g prometheus.Gauge) Option {
	return func(o *options) { o.gauge = g }
}

// Hub delivers events published on a topic to every subscriber of that topic.
// Each subscriber receives events in publish order on its own goroutine, so Publish never blocks.
type Hub[T any] struct {
	mu     sync.RWMutex
	topics map[uuid.UUID]map[uint64]*subscriber[T]
	nextID uint64
	opts   options
}

func NewHub[T any](opts ...Option) *Hub[T] {
	h := &Hub[T]{topics: make(map[uuid.UUID]map[uint64]*subscriber[T])}
	for _, opt := range opts {
		opt(&h.opts)
	}
	return h
}

// Subscribe registers onEvent for events published on topic after this call returns.
func (h *Hub[T]) Subscribe(topic uuid.UUID, onEvent func(T)) *Subscription {
	return h.Watch(topic, onEvent, nil)
}

// Watch is Subscribe with an onResync callback, run after every Resync call.
// onResync runs on the same goroutine as onEvent, ordered with the published events.
func (h *Hub[T]) Watch(topic uuid.UUID, onEvent func(T), onResync func()) *Subscription {
	sub := newSubscriber(onEvent, onResync)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[uint64]*subscriber[T])
	}
	h.topics[topic][id] = sub
	h.mu.Unlock()

	if h.opts.gauge != nil {
		h.opts.gauge.Inc()
	}
	go sub.run()

	return &Subscription{release: func() {
		h.mu.Lock()
		delete(h.topics[topic], id)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
		h.mu.Unlock()
		sub.stop()
		if h.opts.gauge != nil {
			h.opts.gauge.Dec()
		}
	}}
}

// Publish enqueues event for every current subscriber of topic.
func (h *Hub[T]) Publish(topic uuid.UUID, event T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.topics[topic] {
		sub.enqueue(delivery[T]{event: event})
	}
}

// Resync tells every subscriber on every topic that published events may have been lost.
func (h *Hub[T]) Resync() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subs := range h.topics {
		for _, sub := range subs {
			sub.enqueue(delivery[T]{resync: true})
		}
	}
}

// Subscribers reports how many subscriptions topic currently has.
func (h *Hub[T]) Subscribers(topic uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Subscription is a handle on a live subscription.
type Subscription struct {
	once    sync.Once
	release func()
}

// Release stops delivery and frees the subscription. Calling it again is a no-op.
func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(s.release)
}

type delivery[T any] struct {
	event  T
	resync bool
}

type subscriber[T any] struct {
	onEvent  func(T)
	onResync func()

	mu    sync.Mutex
	queue []delivery[T]
	wake  chan struct{}
	done  chan struct{}
}

func newSubscriber[T any](onEvent func(T), onResync func()) *subscriber[T] {
	return &subscriber[T]{
		onEvent:  onEvent,
		onResync: onResync,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (s *subscriber[T]) enqueue(d delivery[T]) {
	s.mu.Lock()
	s.queue = append(s.queue, d)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) stop() {
	close(s.done)
}

func (s *subscriber[T]) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, d := range batch {
			select {
			case <-s.done:
				return
			default:
			}
			switch {
			case !d.resync:
				s.onEvent(d.event)
			case s.onResync != nil:
				s.onResync()
			}
		}
	}
}
