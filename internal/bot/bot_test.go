package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/codenameh8m/plasticboy-sub000/internal/events"
	"github.com/codenameh8m/plasticboy-sub000/internal/leaderboard"
	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	errs map[int64]error
}

func (s *fakeSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[msg.ChatID]; err != nil {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

type fakeAggregator struct {
	lb    leaderboard.Leaderboard
	stats leaderboard.PointStats
}

func (a fakeAggregator) Compute(context.Context) (leaderboard.Leaderboard, error) { return a.lb, nil }
func (a fakeAggregator) PointStats(context.Context) (leaderboard.PointStats, error) {
	return a.stats, nil
}

func command(chatID int64, text string) tgbotapi.Update {
	name, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID, UserName: "hunter"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func newRouter(sender Sender, subs Subscribers, agg Aggregator) *Router {
	r := NewRouter(sender, discard)
	RegisterCommands(r, sender, subs, agg, "https://hunt.example/")
	return r
}

func TestRouterStartStop(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	subs := NewMemorySubscribers()
	r := newRouter(sender, subs, fakeAggregator{})

	r.HandleUpdate(ctx, command(42, "/start"))
	ids, err := subs.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{42}, ids)

	r.HandleUpdate(ctx, command(42, "/start"))
	r.HandleUpdate(ctx, command(42, "/stop"))
	ids, err = subs.All(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	msgs := sender.messages()
	require.Len(t, msgs, 3)
	require.Contains(t, msgs[0].Text, "subscribed")
	require.Equal(t, "https://hunt.example/", msgs[0].LinkURL)
	require.Contains(t, msgs[1].Text, "already")
	require.Contains(t, msgs[2].Text, "Unsubscribed")
}

func TestRouterHelpForUnknownInput(t *testing.T) {
	sender := &fakeSender{}
	r := newRouter(sender, NewMemorySubscribers(), fakeAggregator{})

	r.HandleUpdate(context.Background(), command(1, "/nope"))
	plain := tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 1}}}
	r.HandleUpdate(context.Background(), plain)
	r.HandleUpdate(context.Background(), tgbotapi.Update{})

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		for _, cmd := range r.Commands() {
			require.Contains(t, m.Text, "/"+cmd.Name)
		}
	}
}

func TestLeaderboardAndStatsCommands(t *testing.T) {
	sender := &fakeSender{}
	agg := fakeAggregator{
		lb: leaderboard.Leaderboard{
			Entries: []leaderboard.Entry{
				{TelegramID: 1, FirstName: "Ann", Username: "ann", TotalCollections: 3},
				{TelegramID: 2, TotalCollections: 1},
			},
			Stats: leaderboard.Stats{TotalUsers: 2, TotalCollections: 4},
		},
		stats: leaderboard.PointStats{Total: 6, Available: 1, Scheduled: 1, Collected: 4, TelegramCollections: 4},
	}
	r := newRouter(sender, NewMemorySubscribers(), agg)

	r.HandleUpdate(context.Background(), command(5, "/leaderboard"))
	r.HandleUpdate(context.Background(), command(5, "/stats"))
	r.HandleUpdate(context.Background(), command(5, "/map"))

	msgs := sender.messages()
	require.Len(t, msgs, 3)
	require.Contains(t, msgs[0].Text, "1. Ann (@ann) - 3")
	require.Contains(t, msgs[0].Text, "2. player 2 - 1")
	require.Contains(t, msgs[1].Text, "Points: 6")
	require.Contains(t, msgs[1].Text, "Coming soon: 1")
	require.Equal(t, "https://hunt.example/", msgs[2].LinkURL)
}

func TestEmptyLeaderboard(t *testing.T) {
	require.Contains(t, formatLeaderboard(leaderboard.Leaderboard{}), "Nobody")
}

func TestRedisSubscribers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	subs := NewRedisSubscribers(client)
	ctx := context.Background()

	added, err := subs.Add(ctx, 20)
	require.NoError(t, err)
	require.True(t, added)
	added, err = subs.Add(ctx, 20)
	require.NoError(t, err)
	require.False(t, added)
	_, err = subs.Add(ctx, 3)
	require.NoError(t, err)

	ids, err := subs.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 20}, ids)

	removed, err := subs.Remove(ctx, 20)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = subs.Remove(ctx, 20)
	require.NoError(t, err)
	require.False(t, removed)

	mr.Close()
	_, err = subs.All(ctx)
	require.Error(t, err)
}

func TestNotifierDropsUnreachableChats(t *testing.T) {
	ctx := context.Background()
	subs := NewMemorySubscribers()
	for _, id := range []int64{1, 2, 3} {
		_, err := subs.Add(ctx, id)
		require.NoError(t, err)
	}
	sender := &fakeSender{errs: map[int64]error{
		2: ErrRecipientGone,
		3: errors.New("timeout"),
	}}
	n := NewNotifier(sender, subs, "https://hunt.example", 2, discard)

	err := n.broadcast(ctx, "hello")
	require.ErrorContains(t, err, "1 of 3")

	ids, err := subs.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, ids)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, int64(1), msgs[0].ChatID)
	require.Equal(t, "https://hunt.example/", msgs[0].LinkURL)
}

func TestNotifierRun(t *testing.T) {
	ctx := context.Background()
	subs := NewMemorySubscribers()
	_, err := subs.Add(ctx, 9)
	require.NoError(t, err)
	sender := &fakeSender{}
	n := NewNotifier(sender, subs, "https://hunt.example/", 1, discard)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	ch := make(chan events.Event, 4)
	ch <- events.Event{Type: events.PointCreated, Point: plasticboy.Point{Name: "Fountain", ScheduledTime: now}}
	ch <- events.Event{Type: events.PointCreated, Point: plasticboy.Point{Name: "Bridge", ScheduledTime: now.Add(time.Hour)}}
	ch <- events.Event{Type: events.PointDeleted, Point: plasticboy.Point{Name: "Gone"}}
	ch <- events.Event{Type: events.PointCollected, Point: plasticboy.Point{Name: "Fountain"}}
	close(ch)

	require.NoError(t, n.Run(ctx, ch))

	msgs := sender.messages()
	require.Len(t, msgs, 3)
	require.Contains(t, msgs[0].Text, "Fountain")
	require.Contains(t, msgs[0].Text, "on the map")
	require.Contains(t, msgs[1].Text, "13:00 UTC")
	require.Contains(t, msgs[2].Text, "collected")
}

func TestClassify(t *testing.T) {
	blocked := &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
	require.ErrorIs(t, classify(blocked), ErrRecipientGone)

	missing := &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}
	require.ErrorIs(t, classify(missing), ErrRecipientGone)

	flood := &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}
	require.NotErrorIs(t, classify(flood), ErrRecipientGone)

	plain := errors.New("dial tcp: refused")
	require.Equal(t, plain, classify(plain))
}

type fakeSource struct {
	updates  chan tgbotapi.Update
	requests int
	stopped  bool
	mu       sync.Mutex
}

func (s *fakeSource) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSource) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.updates
}

func (s *fakeSource) StopReceivingUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

type recordingHandler struct {
	mu   sync.Mutex
	seen []int
}

func (h *recordingHandler) HandleUpdate(_ context.Context, u tgbotapi.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, u.UpdateID)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func TestPollerDispatchesAndStops(t *testing.T) {
	src := &fakeSource{updates: make(chan tgbotapi.Update)}
	h := &recordingHandler{}
	p := NewPoller(src, h, 3, discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for i := 1; i <= 5; i++ {
		src.updates <- tgbotapi.Update{UpdateID: i}
	}
	require.Eventually(t, func() bool { return h.count() == 5 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	require.True(t, src.stopped)
	require.Equal(t, 1, src.requests)
}
