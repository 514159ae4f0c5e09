package events

import (
	"sync"
	"time"
)

// Event records one pipeline occurrence for the ops endpoints.
type Event struct {
	Kind   string    `json:"kind"`
	File   string    `json:"file"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// Bus provides simple in-process pub/sub for observability.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Recorder keeps a bounded ring of recent events drained from the bus.
type Recorder struct {
	mu  sync.Mutex
	buf []Event
	max int
}

func NewRecorder(bus *Bus) *Recorder {
	r := &Recorder{max: 32}
	ch := bus.Subscribe()
	go func() {
		for ev := range ch {
			r.mu.Lock()
			r.buf = append(r.buf, ev)
			if len(r.buf) > r.max {
				r.buf = r.buf[len(r.buf)-r.max:]
			}
			r.mu.Unlock()
		}
	}()
	return r
}

// Recent returns a copy of the buffered events, oldest first.
func (r *Recorder) Recent() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.buf...)
}
