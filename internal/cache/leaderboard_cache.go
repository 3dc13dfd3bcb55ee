package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache mirrors live duel standings into a Redis ZSET for the
// display path. It is a cache of the attempt ledger, never a source of
// truth: rankings are always recomputed from attempts.
type LeaderboardCache interface {
	UpdateScore(ctx context.Context, duelID, userID string, score int) error
	GetTop(ctx context.Context, duelID string, limit int) ([]Entry, error)
	GetRank(ctx context.Context, duelID, userID string) (int64, error)
	Expire(ctx context.Context, duelID string, ttl time.Duration) error
}

// Entry is a single cached leaderboard row.
type Entry struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
	Rank   int    `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
}

func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{client: client}
}

func (c *leaderboardCache) key(duelID string) string {
	return fmt.Sprintf("duel:%s:lb", duelID)
}

func (c *leaderboardCache) UpdateScore(ctx context.Context, duelID, userID string, score int) error {
	return c.client.ZAdd(ctx, c.key(duelID), redis.Z{
		Score:  float64(score),
		Member: userID,
	}).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, duelID string, limit int) ([]Entry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(duelID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(results))
	for i, z := range results {
		entries[i] = Entry{
			UserID: z.Member.(string),
			Score:  int(z.Score),
			Rank:   i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, duelID, userID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(duelID), userID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

func (c *leaderboardCache) Expire(ctx context.Context, duelID string, ttl time.Duration) error {
	return c.client.Expire(ctx, c.key(duelID), ttl).Err()
}
