// Package bus delivers change events to listeners from a single consumer
// goroutine.
//
// Post never blocks and never delivers inline. Events posted by a listener
// while it handles an event are queued behind it, so deliveries never nest.
package bus

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/time/rate"
)

// ErrClosed is returned by Sync after Close.
var ErrClosed = errors.New("bus closed")

// Listener receives events in posting order.
type Listener[E any] func(E)

// Config configures a Bus.
type Config[E any] struct {
	// Adjusting reports whether an event is an intermediate update that may be
	// dropped under load. Nil means no event is throttled.
	Adjusting func(E) bool
	// Rate limits delivered adjusting events per second. Zero disables
	// throttling.
	Rate rate.Limit
	// Burst is the limiter burst. Defaults to 1.
	Burst int
}

type item[E any] struct {
	event   E
	barrier chan struct{}
}

// Bus is an unbounded FIFO with one consumer goroutine.
type Bus[E any] struct {
	cfg     Config[E]
	limiter *rate.Limiter

	lock   sync.Mutex
	cond   sync.Cond
	queue  []item[E]
	closed bool
	done   chan struct{}

	listenersMu sync.RWMutex
	listeners   []*subscription[E]

	dropped uint64
}

type subscription[E any] struct {
	fn Listener[E]
}

// New creates a bus and starts its consumer.
func New[E any](cfg Config[E]) *Bus[E] {
	b := &Bus[E]{
		cfg:  cfg,
		done: make(chan struct{}),
	}
	b.cond.L = &b.lock
	if cfg.Adjusting != nil && cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(cfg.Rate, burst)
	}
	go b.run()
	return b
}

// Subscribe registers a listener. The returned function removes it.
func (b *Bus[E]) Subscribe(l Listener[E]) (unsubscribe func()) {
	s := &subscription[E]{fn: l}
	b.listenersMu.Lock()
	b.listeners = append(b.listeners, s)
	b.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.listenersMu.Lock()
			defer b.listenersMu.Unlock()
			if i := slices.Index(b.listeners, s); i >= 0 {
				b.listeners = slices.Delete(b.listeners, i, i+1)
			}
		})
	}
}

// Post enqueues events. Events posted after Close are discarded.
func (b *Bus[E]) Post(events ...E) {
	if len(events) == 0 {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return
	}
	was0 := len(b.queue) == 0
	for _, e := range events {
		b.queue = append(b.queue, item[E]{event: e})
	}
	if was0 {
		b.cond.Broadcast()
	}
}

// Sync blocks until every event posted before the call has been delivered.
// It must not be called from a listener.
func (b *Bus[E]) Sync(ctx context.Context) error {
	barrier := make(chan struct{})
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return ErrClosed
	}
	b.queue = append(b.queue, item[E]{barrier: barrier})
	b.cond.Broadcast()
	b.lock.Unlock()

	select {
	case <-barrier:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of adjusting events skipped by the limiter.
func (b *Bus[E]) Dropped() uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.dropped
}

// Close delivers the queued events and stops the consumer.
func (b *Bus[E]) Close() {
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		<-b.done
		return
	}
	b.closed = true
	b.cond.Broadcast()
	b.lock.Unlock()
	<-b.done
}

func (b *Bus[E]) run() {
	defer close(b.done)
	for {
		b.lock.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 {
			b.lock.Unlock()
			return
		}
		it := b.queue[0]
		b.queue[0] = item[E]{}
		b.queue = b.queue[1:]
		b.lock.Unlock()

		if it.barrier != nil {
			close(it.barrier)
			continue
		}
		b.deliver(it.event)
	}
}

func (b *Bus[E]) deliver(e E) {
	if b.limiter != nil && b.cfg.Adjusting(e) && !b.limiter.Allow() {
		b.lock.Lock()
		b.dropped++
		b.lock.Unlock()
		return
	}
	b.listenersMu.RLock()
	ls := slices.Clone(b.listeners)
	b.listenersMu.RUnlock()
	for _, s := range ls {
		s.fn(e)
	}
}
