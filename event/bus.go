package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kairei-project/kairei/klog"
)

// LaggedError is returned from a Receiver's next Recv when that subscriber
// fell behind its buffer capacity; the bus resubscribes it transparently
// (§4.6) — events in the gap are simply gone for this subscriber.
type LaggedError struct {
	Count int
}

func (e *LaggedError) Error() string { return "event bus: subscriber lagged, dropped events" }

// ErrClosed is returned once a Receiver's subscription has been dropped.
var ErrClosed = &closedError{}

type closedError struct{}

func (*closedError) Error() string { return "event bus: receiver closed" }

type subscriber struct {
	id      uint64
	events  chan Event
	errs    chan error
	dropped int64 // atomic: events overwritten since the last Lagged report
}

// Bus is a single-process broadcast with bounded per-subscriber capacity
// (§4.6). The zero value is not usable; construct with NewBus. Publishers
// never block: a subscriber that can't keep up has its oldest buffered
// event overwritten and sees a Lagged error on its next receive.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	nextID      uint64
	capacity    int
	log         klog.Logger
}

// NewBus constructs a Bus whose subscriber queues hold up to capacity
// events before the overwrite-oldest-on-lag policy kicks in.
func NewBus(capacity int, log klog.Logger) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	if log == nil {
		log = klog.NoOpLogger{}
	}
	return &Bus{subscribers: map[uint64]*subscriber{}, capacity: capacity, log: log.WithComponent("event-bus")}
}

// Receiver is a subscriber's read side for regular events.
type Receiver struct {
	bus *Bus
	sub *subscriber
}

// ErrorReceiver is a subscriber's read side for published errors.
type ErrorReceiver struct {
	bus *Bus
	sub *subscriber
}

// Subscribe registers a new subscriber and returns its two receivers.
// Dropping both (calling Close on either releases the shared subscription)
// is sufficient to unsubscribe (§4.6 "Cancellation").
func (b *Bus) Subscribe() (*Receiver, *ErrorReceiver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscriber{
		id:     b.nextID,
		events: make(chan Event, b.capacity),
		errs:   make(chan error, b.capacity),
	}
	b.subscribers[sub.id] = sub
	return &Receiver{bus: b, sub: sub}, &ErrorReceiver{bus: b, sub: sub}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.events)
		close(sub.errs)
	}
}

// Publish delivers ev to every live subscriber (§4.6 "publish"). It never
// blocks: a full subscriber queue overwrites its oldest entry.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		overwriteSend(sub.events, ev, &sub.dropped)
	}
}

// PublishError delivers err to every live subscriber's error channel.
func (b *Bus) PublishError(err error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		overwriteSendErr(sub.errs, err, &sub.dropped)
	}
}

func overwriteSend(ch chan Event, ev Event, dropped *int64) {
	for {
		select {
		case ch <- ev:
			return
		default:
			select {
			case <-ch:
				atomic.AddInt64(dropped, 1)
			default:
			}
		}
	}
}

func overwriteSendErr(ch chan error, err error, dropped *int64) {
	for {
		select {
		case ch <- err:
			return
		default:
			select {
			case <-ch:
				atomic.AddInt64(dropped, 1)
			default:
			}
		}
	}
}

// Stats reports the live subscriber count and the total number of events
// currently buffered across every subscriber queue (§6 SystemStatus's
// event_subscribers/event_queue_size).
func (b *Bus) Stats() (subscribers, queueSize int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subscribers = len(b.subscribers)
	for _, sub := range b.subscribers {
		queueSize += len(sub.events)
	}
	return subscribers, queueSize
}

// Recv blocks for the next event, or returns *LaggedError first if this
// subscriber fell behind since its last Recv.
func (r *Receiver) Recv(ctx context.Context) (Event, error) {
	if d := atomic.SwapInt64(&r.sub.dropped, 0); d > 0 {
		return Event{}, &LaggedError{Count: int(d)}
	}
	select {
	case ev, ok := <-r.sub.events:
		if !ok {
			return Event{}, ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close unsubscribes the underlying subscription, releasing both the
// Receiver and its sibling ErrorReceiver.
func (r *Receiver) Close() { r.bus.unsubscribe(r.sub.id) }

// Recv blocks for the next published error, or returns *LaggedError first
// if this subscriber fell behind since its last Recv on either channel.
func (r *ErrorReceiver) Recv(ctx context.Context) (error, error) {
	if d := atomic.SwapInt64(&r.sub.dropped, 0); d > 0 {
		return nil, &LaggedError{Count: int(d)}
	}
	select {
	case err, ok := <-r.sub.errs:
		if !ok {
			return nil, ErrClosed
		}
		return err, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *ErrorReceiver) Close() { r.bus.unsubscribe(r.sub.id) }
