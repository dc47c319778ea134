// Package request implements the KAIREI request manager (§4.7): request/
// reply correlation across the event bus, with per-request timeouts.
package request

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/kaireierr"
	"github.com/kairei-project/kairei/klog"
	"github.com/kairei-project/kairei/value"
)

// slot is a single outstanding request's reply destination. It is completed
// at most once (§4.7 "Concurrency").
type slot struct {
	done   chan struct{}
	once   sync.Once
	value  value.Value
	errVal error
}

func newSlot() *slot { return &slot{done: make(chan struct{})} }

func (s *slot) complete(v value.Value, err error) {
	s.once.Do(func() {
		s.value = v
		s.errVal = err
		close(s.done)
	})
}

// Manager maintains request_id -> pending-reply-slot and drains the bus in
// the background to match ResponseSuccess/ResponseFailure events back to
// their slot.
type Manager struct {
	mu    sync.Mutex
	slots map[string]*slot
	bus   *event.Bus
	log   klog.Logger

	recv    *event.Receiver
	errRecv *event.ErrorReceiver
	cancel  context.CancelFunc
}

// NewManager starts a Manager draining bus in the background. Call Close to
// stop the drain loop and release its subscription.
func NewManager(bus *event.Bus, log klog.Logger) *Manager {
	if log == nil {
		log = klog.NoOpLogger{}
	}
	recv, errRecv := bus.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		slots:   map[string]*slot{},
		bus:     bus,
		log:     log.WithComponent("request-manager"),
		recv:    recv,
		errRecv: errRecv,
		cancel:  cancel,
	}
	go m.drain(ctx)
	go m.drainErrors(ctx)
	return m
}

func (m *Manager) drain(ctx context.Context) {
	for {
		ev, err := m.recv.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Lagged or transient: keep draining.
			continue
		}
		switch ev.Type.Kind {
		case event.KindResponseSuccess:
			m.completeSuccess(ev)
		case event.KindResponseFailure:
			m.completeFailure(ev)
		}
	}
}

func (m *Manager) drainErrors(ctx context.Context) {
	for {
		_, err := m.errRecv.Recv(ctx)
		if err != nil && ctx.Err() != nil {
			return
		}
	}
}

func (m *Manager) completeSuccess(ev event.Event) {
	m.mu.Lock()
	s, ok := m.slots[ev.Type.RequestID]
	if ok {
		delete(m.slots, ev.Type.RequestID)
	}
	m.mu.Unlock()
	if !ok {
		return // late arrival after timeout: dropped silently (§4.7)
	}
	v := ev.Parameters["value"]
	s.complete(v, nil)
}

func (m *Manager) completeFailure(ev event.Event) {
	m.mu.Lock()
	s, ok := m.slots[ev.Type.RequestID]
	if ok {
		delete(m.slots, ev.Type.RequestID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	msg, _ := ev.Parameters["error"].ErrMessage()
	s.complete(value.Null(), kaireierr.New(kaireierr.KindRequest, "request", msg))
}

// Request publishes a Request event and waits up to timeout for a matching
// reply (§4.7). requester/responder/requestType describe who is asking
// whom for what; params become the event's Parameters.
func (m *Manager) Request(ctx context.Context, requester, responder, requestType string, params map[string]value.Value, timeout time.Duration) (value.Value, error) {
	requestID := uuid.NewString()
	s := newSlot()

	m.mu.Lock()
	m.slots[requestID] = s
	m.mu.Unlock()

	m.bus.Publish(event.New(event.Request(requestType, requester, responder, requestID), params))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return s.value, s.errVal
	case <-timer.C:
		m.mu.Lock()
		delete(m.slots, requestID)
		m.mu.Unlock()
		m.log.Warn("request timed out", map[string]any{"request_id": requestID, "responder": responder})
		return value.Null(), kaireierr.Wrap(kaireierr.KindRequest, "request", kaireierr.ErrRequestTimeout).
			WithLocation(kaireierr.Location{AgentName: responder})
	case <-ctx.Done():
		m.mu.Lock()
		delete(m.slots, requestID)
		m.mu.Unlock()
		return value.Null(), ctx.Err()
	}
}

// Pending reports how many requests are currently outstanding (diagnostic
// use only — the count can change the instant it's read).
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// Close stops the background drain loops and releases the bus subscription.
func (m *Manager) Close() {
	m.cancel()
	m.recv.Close()
	m.errRecv.Close()
}
