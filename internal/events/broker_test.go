package events

import (
	"testing"

	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

func TestBrokerPublishRedacts(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(1)
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: PointCreated, Point: plasticboy.Point{ID: "p1", QRSecret: "secret", QRCode: "img"}})

	ev := <-ch
	if ev.Type != PointCreated || ev.Point.ID != "p1" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Point.QRSecret != "" || ev.Point.QRCode != "" {
		t.Error("published event leaks secret material")
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(1)

	b.Publish(Event{Type: PointCreated})
	b.Publish(Event{Type: PointDeleted}) // must not block

	if got := len(ch); got != 1 {
		t.Fatalf("buffered events = %d, want 1", got)
	}

	b.Unsubscribe(ch)
	b.Publish(Event{Type: PointCollected})
	if got := len(ch); got != 1 {
		t.Fatalf("unsubscribed channel received event")
	}
}
