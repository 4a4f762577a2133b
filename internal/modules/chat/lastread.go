// README: Last-opened tracking for the unread-count derived view.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"rumbo/internal/types"
)

// LastReadStore remembers when a participant last opened a trip's channel.
// Unread counts are derived from it; losing this state only resets badges.
type LastReadStore interface {
	MarkOpened(ctx context.Context, tripID, userID types.ID, at time.Time) error
	LastOpened(ctx context.Context, tripID, userID types.ID) (time.Time, error)
}

const lastReadTTL = 30 * 24 * time.Hour

type RedisLastRead struct {
	redis *redis.Client
}

func NewRedisLastRead(client *redis.Client) *RedisLastRead {
	return &RedisLastRead{redis: client}
}

func lastReadKey(tripID, userID types.ID) string {
	return fmt.Sprintf("chat:lastread:%s:%s", tripID, userID)
}

func (s *RedisLastRead) MarkOpened(ctx context.Context, tripID, userID types.ID, at time.Time) error {
	return s.redis.Set(ctx, lastReadKey(tripID, userID), at.UTC().Format(time.RFC3339Nano), lastReadTTL).Err()
}

func (s *RedisLastRead) LastOpened(ctx context.Context, tripID, userID types.ID) (time.Time, error) {
	val, err := s.redis.Get(ctx, lastReadKey(tripID, userID)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, val)
}

type MemoryLastRead struct {
	mu     sync.RWMutex
	opened map[string]time.Time
}

func NewMemoryLastRead() *MemoryLastRead {
	return &MemoryLastRead{opened: make(map[string]time.Time)}
}

func (s *MemoryLastRead) MarkOpened(ctx context.Context, tripID, userID types.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened[lastReadKey(tripID, userID)] = at
	return nil
}

func (s *MemoryLastRead) LastOpened(ctx context.Context, tripID, userID types.ID) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opened[lastReadKey(tripID, userID)], nil
}
