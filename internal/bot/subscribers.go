package bot

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Subscribers is the set of chats that receive point announcements.
type Subscribers interface {
	Add(ctx context.Context, chatID int64) (bool, error)
	Remove(ctx context.Context, chatID int64) (bool, error)
	All(ctx context.Context) ([]int64, error)
}

const subscribersKey = "plasticboy:bot:subscribers"

// RedisSubscribers keeps the set in a Redis SET so it survives restarts.
type RedisSubscribers struct {
	client *redis.Client
	key    string
}

func NewRedisSubscribers(client *redis.Client) *RedisSubscribers {
	return &RedisSubscribers{client: client, key: subscribersKey}
}

func (s *RedisSubscribers) Add(ctx context.Context, chatID int64) (bool, error) {
	n, err := s.client.SAdd(ctx, s.key, chatID).Result()
	if err != nil {
		return false, fmt.Errorf("adding subscriber: %w", err)
	}
	return n == 1, nil
}

func (s *RedisSubscribers) Remove(ctx context.Context, chatID int64) (bool, error) {
	n, err := s.client.SRem(ctx, s.key, chatID).Result()
	if err != nil {
		return false, fmt.Errorf("removing subscriber: %w", err)
	}
	return n == 1, nil
}

func (s *RedisSubscribers) All(ctx context.Context) ([]int64, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// MemorySubscribers is used when no Redis is configured. The set is lost on
// restart.
type MemorySubscribers struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func NewMemorySubscribers() *MemorySubscribers {
	return &MemorySubscribers{ids: make(map[int64]struct{})}
}

func (s *MemorySubscribers) Add(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[chatID]; ok {
		return false, nil
	}
	s.ids[chatID] = struct{}{}
	return true, nil
}

func (s *MemorySubscribers) Remove(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[chatID]; !ok {
		return false, nil
	}
	delete(s.ids, chatID)
	return true, nil
}

func (s *MemorySubscribers) All(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
