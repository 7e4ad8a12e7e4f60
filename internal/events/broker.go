// Package events fans point lifecycle events out to in-process subscribers
// (live map feeds and the bot notifier).
package events

import (
	"sync"
	"time"

	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

type Type string

const (
	PointCreated   Type = "point.created"
	PointCollected Type = "point.collected"
	PointDeleted   Type = "point.deleted"
)

// Event describes a change to a point. Point is always the redacted player
// view: subscribers never see secrets or collector identity.
type Event struct {
	Type  Type
	Point plasticboy.Point
	At    time.Time
}

// Broker is an in-process pub/sub for point events.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a channel that receives every published event. size is
// the channel buffer; events are dropped for subscribers that fall behind.
func (b *Broker) Subscribe(size int) chan Event {
	ch := make(chan Event, size)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch. It does not close it.
func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish sends ev to all subscribers without blocking.
func (b *Broker) Publish(ev Event) {
	ev.Point = ev.Point.Redacted()
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
