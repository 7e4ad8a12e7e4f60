package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/codenameh8m/plasticboy-sub000/internal/leaderboard"
)

// Aggregator supplies the numbers behind /leaderboard and /stats.
type Aggregator interface {
	Compute(ctx context.Context) (leaderboard.Leaderboard, error)
	PointStats(ctx context.Context) (leaderboard.PointStats, error)
}

const leaderboardSize = 10

// RegisterCommands wires the standard command set into r.
func RegisterCommands(r *Router, sender Sender, subs Subscribers, agg Aggregator, baseURL string) {
	mapURL := strings.TrimRight(baseURL, "/") + "/"
	r.Register(&startCommand{sender: sender, subs: subs, mapURL: mapURL})
	r.Register(&stopCommand{sender: sender, subs: subs})
	r.Register(&leaderboardCommand{sender: sender, agg: agg})
	r.Register(&statsCommand{sender: sender, agg: agg})
	r.Register(&mapCommand{sender: sender, mapURL: mapURL})
}

type startCommand struct {
	sender Sender
	subs   Subscribers
	mapURL string
}

func (c *startCommand) Command() Command {
	return Command{Name: "start", Description: "Subscribe to new points"}
}

func (c *startCommand) Handle(ctx context.Context, u Update) error {
	added, err := c.subs.Add(ctx, u.ChatID)
	if err != nil {
		return err
	}
	text := "You are subscribed. I will tell you when a new point appears."
	if !added {
		text = "You are already subscribed."
	}
	return c.sender.Send(ctx, Message{ChatID: u.ChatID, Text: text, LinkText: "Open map", LinkURL: c.mapURL})
}

type stopCommand struct {
	sender Sender
	subs   Subscribers
}

func (c *stopCommand) Command() Command {
	return Command{Name: "stop", Description: "Stop notifications"}
}

func (c *stopCommand) Handle(ctx context.Context, u Update) error {
	removed, err := c.subs.Remove(ctx, u.ChatID)
	if err != nil {
		return err
	}
	text := "Unsubscribed. Send /start to subscribe again."
	if !removed {
		text = "You were not subscribed."
	}
	return c.sender.Send(ctx, Message{ChatID: u.ChatID, Text: text})
}

type leaderboardCommand struct {
	sender Sender
	agg    Aggregator
}

func (c *leaderboardCommand) Command() Command {
	return Command{Name: "leaderboard", Description: "Top collectors"}
}

func (c *leaderboardCommand) Handle(ctx context.Context, u Update) error {
	lb, err := c.agg.Compute(ctx)
	if err != nil {
		return err
	}
	return c.sender.Send(ctx, Message{ChatID: u.ChatID, Text: formatLeaderboard(lb)})
}

func formatLeaderboard(lb leaderboard.Leaderboard) string {
	if len(lb.Entries) == 0 {
		return "Nobody is on the leaderboard yet. Collect a point with Telegram login to be first."
	}
	var b strings.Builder
	b.WriteString("Leaderboard\n")
	for i, e := range lb.Entries {
		if i == leaderboardSize {
			break
		}
		fmt.Fprintf(&b, "%d. %s - %d\n", i+1, displayName(e), e.TotalCollections)
	}
	fmt.Fprintf(&b, "\n%d players, %d points collected", lb.Stats.TotalUsers, lb.Stats.TotalCollections)
	return b.String()
}

func displayName(e leaderboard.Entry) string {
	name := strings.TrimSpace(e.FirstName + " " + e.LastName)
	switch {
	case e.Username != "" && name != "":
		return name + " (@" + e.Username + ")"
	case e.Username != "":
		return "@" + e.Username
	case name != "":
		return name
	default:
		return fmt.Sprintf("player %d", e.TelegramID)
	}
}

type statsCommand struct {
	sender Sender
	agg    Aggregator
}

func (c *statsCommand) Command() Command {
	return Command{Name: "stats", Description: "Point statistics"}
}

func (c *statsCommand) Handle(ctx context.Context, u Update) error {
	s, err := c.agg.PointStats(ctx)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Points: %d\nAvailable: %d\nComing soon: %d\nCollected: %d (%d via Telegram, %d manual)",
		s.Total, s.Available, s.Scheduled, s.Collected, s.TelegramCollections, s.ManualCollections)
	return c.sender.Send(ctx, Message{ChatID: u.ChatID, Text: text})
}

type mapCommand struct {
	sender Sender
	mapURL string
}

func (c *mapCommand) Command() Command {
	return Command{Name: "map", Description: "Open the map"}
}

func (c *mapCommand) Handle(ctx context.Context, u Update) error {
	return c.sender.Send(ctx, Message{ChatID: u.ChatID, Text: c.mapURL, LinkText: "Open map", LinkURL: c.mapURL})
}
