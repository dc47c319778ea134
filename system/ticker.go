package system

import (
	"context"
	"time"

	"github.com/kairei-project/kairei/event"
)

// Ticker publishes a Tick event on the system bus at a fixed interval,
// driving `observe { on Tick { ... } }` handlers (§4.8, §6).
type Ticker struct {
	bus      *event.Bus
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewTicker(bus *event.Bus, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{bus: bus, interval: interval}
}

func (t *Ticker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx)
}

func (t *Ticker) run(ctx context.Context) {
	defer close(t.done)
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.bus.Publish(event.New(event.Tick(), nil))
		}
	}
}

func (t *Ticker) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
}
