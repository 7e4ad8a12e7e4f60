package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codenameh8m/plasticboy-sub000/internal/events"
)

// Notifier announces new and collected points to every subscribed chat.
type Notifier struct {
	sender  Sender
	subs    Subscribers
	mapURL  string
	workers int
	logger  *slog.Logger
	now     func() time.Time
}

func NewNotifier(sender Sender, subs Subscribers, baseURL string, workers int, logger *slog.Logger) *Notifier {
	if workers < 1 {
		workers = 1
	}
	return &Notifier{
		sender:  sender,
		subs:    subs,
		mapURL:  strings.TrimRight(baseURL, "/") + "/",
		workers: workers,
		logger:  logger.With("component", "tg_notifier"),
		now:     time.Now,
	}
}

// Run consumes ch until ctx is done or ch is closed.
func (n *Notifier) Run(ctx context.Context, ch <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			text, ok := n.render(ev)
			if !ok {
				continue
			}
			if err := n.broadcast(ctx, text); err != nil {
				n.logger.Error("broadcast failed", "event", ev.Type, "point_id", ev.Point.ID, "error", err)
			}
		}
	}
}

func (n *Notifier) render(ev events.Event) (string, bool) {
	switch ev.Type {
	case events.PointCreated:
		if ev.Point.ScheduledTime.After(n.now()) {
			return fmt.Sprintf("New point %q appears at %s UTC.",
				ev.Point.Name, ev.Point.ScheduledTime.UTC().Format("2006-01-02 15:04")), true
		}
		return fmt.Sprintf("New point %q is on the map. Go find it!", ev.Point.Name), true
	case events.PointCollected:
		return fmt.Sprintf("Point %q has been collected.", ev.Point.Name), true
	default:
		return "", false
	}
}

// broadcast sends text to all subscribers using a bounded worker pool. Chats
// that can no longer be reached are unsubscribed.
func (n *Notifier) broadcast(ctx context.Context, text string) error {
	ids, err := n.subs.All(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	jobs := make(chan int64)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for range min(n.workers, len(ids)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				err := n.sender.Send(ctx, Message{ChatID: id, Text: text, LinkText: "Open map", LinkURL: n.mapURL})
				if err == nil {
					continue
				}
				if errors.Is(err, ErrRecipientGone) {
					if _, rerr := n.subs.Remove(ctx, id); rerr != nil {
						n.logger.Warn("failed to drop unreachable subscriber", "chat_id", id, "error", rerr)
					} else {
						n.logger.Info("dropped unreachable subscriber", "chat_id", id)
					}
					continue
				}
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}

feed:
	for _, id := range ids {
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("%d of %d deliveries failed", failed, len(ids))
	}
	return nil
}
