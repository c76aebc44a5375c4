package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dailybid/internal/models"

	"github.com/redis/go-redis/v9"
)

// recentBidsKey holds the newest-first list of accepted bid entries.
// Postgres stays the source of truth; this list only warms the
// recent-activity read.
const recentBidsKey = "recent_bids"

// recentBidsMaxLen bounds the cached recent-bids list.
const recentBidsMaxLen = 100

type RedisStore struct {
	Client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func (s *RedisStore) Close() error {
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}

func liveItemKey(day time.Time) string {
	return fmt.Sprintf("live_item:%s", day.Format(models.DayFormat))
}

func (s *RedisStore) CacheLiveItem(ctx context.Context, item *models.Item, ttl time.Duration) error {
	itemJSON, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal live item: %w", err)
	}

	if err := s.Client.Set(ctx, liveItemKey(item.DayDate), itemJSON, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache live item: %w", err)
	}
	return nil
}

// GetCachedLiveItem returns the cached live item for day, or nil on a miss.
func (s *RedisStore) GetCachedLiveItem(ctx context.Context, day time.Time) (*models.Item, error) {
	val, err := s.Client.Get(ctx, liveItemKey(day)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached live item: %w", err)
	}

	var item models.Item
	if err := json.Unmarshal([]byte(val), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached live item: %w", err)
	}
	return &item, nil
}

// InvalidateLiveItem drops the cached live item for day, e.g. after a bid
// raised its price or a rollover closed it.
func (s *RedisStore) InvalidateLiveItem(ctx context.Context, day time.Time) error {
	if err := s.Client.Del(ctx, liveItemKey(day)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to invalidate cached live item: %w", err)
	}
	return nil
}

// PushRecentBid prepends an accepted bid to the recent-activity list and
// trims it to its bound.
func (s *RedisStore) PushRecentBid(ctx context.Context, entry models.ActivityEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal activity entry: %w", err)
	}

	pipe := s.Client.TxPipeline()
	pipe.LPush(ctx, recentBidsKey, entryJSON)
	pipe.LTrim(ctx, recentBidsKey, 0, recentBidsMaxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push recent bid: %w", err)
	}
	return nil
}

// GetRecentBids reads up to limit cached activity entries, newest first.
// An empty result means the cache is cold, not that there are no bids.
func (s *RedisStore) GetRecentBids(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	vals, err := s.Client.LRange(ctx, recentBidsKey, 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read recent bids: %w", err)
	}

	entries := make([]models.ActivityEntry, 0, len(vals))
	for _, val := range vals {
		var e models.ActivityEntry
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activity entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
