// Package leaderboard derives rankings and statistics from the point store.
package leaderboard

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/codenameh8m/plasticboy-sub000/internal/events"
	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

type Entry struct {
	TelegramID       int64     `json:"telegramId"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Username         string    `json:"username"`
	TotalCollections int       `json:"totalCollections"`
	FirstCollectedAt time.Time `json:"-"`
	lastCollectedAt  time.Time
}

type Stats struct {
	TotalUsers       int `json:"totalUsers"`
	TotalCollections int `json:"totalCollections"`
}

type Leaderboard struct {
	Entries []Entry `json:"leaderboard"`
	Stats   Stats   `json:"stats"`
}

// PointStats covers every point regardless of how it was collected.
type PointStats struct {
	Total               int `json:"total"`
	Available           int `json:"available"`
	Scheduled           int `json:"scheduled"`
	Collected           int `json:"collected"`
	ManualCollections   int `json:"manualCollections"`
	TelegramCollections int `json:"telegramCollections"`
}

// Cache holds a computed leaderboard between collections. It is an
// optimization only; a miss or an error falls through to the store.
type Cache interface {
	Get(ctx context.Context) (Leaderboard, bool, error)
	Set(ctx context.Context, lb Leaderboard) error
	Invalidate(ctx context.Context) error
}

type Aggregator struct {
	store  plasticboy.Store
	cache  Cache
	logger *slog.Logger
	now    func() time.Time
	// generation counts invalidations so a Compute that raced one does not
	// leave its result cached.
	generation atomic.Uint64
}

// New returns an Aggregator. cache may be nil.
func New(store plasticboy.Store, cache Cache, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:  store,
		cache:  cache,
		logger: logger.With("component", "leaderboard"),
		now:    time.Now,
	}
}

// Compute ranks Telegram-identified collectors by number of collected points.
// Ties go to whoever collected first. Manual collections are not ranked.
// A cached result reflects every invalidation that happened before it was
// stored; otherwise it is at most one cache TTL old.
func (a *Aggregator) Compute(ctx context.Context) (Leaderboard, error) {
	if a.cache != nil {
		lb, ok, err := a.cache.Get(ctx)
		if err != nil {
			a.logger.Warn("leaderboard cache read failed", "error", err)
		} else if ok {
			return lb, nil
		}
	}

	gen := a.generation.Load()
	lb, err := a.compute(ctx)
	if err != nil {
		return Leaderboard{}, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, lb); err != nil {
			a.logger.Warn("leaderboard cache write failed", "error", err)
		} else if a.generation.Load() != gen {
			// A collection landed while computing; lb may predate it.
			a.dropCache(ctx)
		}
	}
	return lb, nil
}

func (a *Aggregator) compute(ctx context.Context) (Leaderboard, error) {
	byUser := make(map[int64]*Entry)
	total := 0

	filter := plasticboy.PointFilter{Status: plasticboy.StatusCollected, AuthMethod: plasticboy.AuthTelegram}
	for p, err := range a.store.Points(ctx, filter) {
		if err != nil {
			return Leaderboard{}, fmt.Errorf("scanning collected points: %w", err)
		}
		if p.Collector == nil || p.Collector.Telegram == nil || p.CollectedAt == nil {
			continue
		}
		tg := p.Collector.Telegram
		at := *p.CollectedAt
		total++

		e, ok := byUser[tg.ID]
		if !ok {
			e = &Entry{TelegramID: tg.ID, FirstCollectedAt: at}
			byUser[tg.ID] = e
		}
		e.TotalCollections++
		if at.Before(e.FirstCollectedAt) {
			e.FirstCollectedAt = at
		}
		if !at.Before(e.lastCollectedAt) {
			e.lastCollectedAt = at
			e.FirstName, e.LastName, e.Username = tg.FirstName, tg.LastName, tg.Username
		}
	}

	entries := make([]Entry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}
	slices.SortFunc(entries, func(x, y Entry) int {
		return cmp.Or(
			cmp.Compare(y.TotalCollections, x.TotalCollections),
			x.FirstCollectedAt.Compare(y.FirstCollectedAt),
			cmp.Compare(x.TelegramID, y.TelegramID),
		)
	})

	return Leaderboard{
		Entries: entries,
		Stats:   Stats{TotalUsers: len(entries), TotalCollections: total},
	}, nil
}

// PointStats counts points by state over the whole store.
func (a *Aggregator) PointStats(ctx context.Context) (PointStats, error) {
	var s PointStats
	now := a.now()
	for p, err := range a.store.Points(ctx, plasticboy.PointFilter{}) {
		if err != nil {
			return PointStats{}, fmt.Errorf("scanning points: %w", err)
		}
		s.Total++
		switch {
		case p.Status == plasticboy.StatusCollected:
			s.Collected++
			if p.Collector != nil && p.Collector.AuthMethod == plasticboy.AuthTelegram {
				s.TelegramCollections++
			} else {
				s.ManualCollections++
			}
		case !p.Visible(now):
			s.Scheduled++
		default:
			s.Available++
		}
	}
	return s, nil
}

// Invalidate drops any cached leaderboard.
func (a *Aggregator) Invalidate(ctx context.Context) {
	a.generation.Add(1)
	a.dropCache(ctx)
}

func (a *Aggregator) dropCache(ctx context.Context) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx); err != nil {
		a.logger.Warn("leaderboard cache invalidation failed", "error", err)
	}
}

// Watch invalidates the cache whenever a point is collected or deleted. It
// returns when ctx is done or ch is closed.
func (a *Aggregator) Watch(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type == events.PointCollected || ev.Type == events.PointDeleted {
				a.Invalidate(ctx)
			}
		}
	}
}
