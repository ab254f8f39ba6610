package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaderboardRow is the requester-independent part of a leaderboard entry.
type LeaderboardRow struct {
	UserID              string  `json:"user_id"`
	Username            string  `json:"username"`
	AvatarURL           *string `json:"avatar_url,omitempty"`
	CirclePoints        int     `json:"circle_points"`
	ChallengesCompleted int     `json:"challenges_completed"`
}

// LeaderboardCache keeps computed leaderboards in redis. A nil cache or a
// nil client behaves as an always-empty cache so the service works without
// redis configured.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaderboardCache connects to redisURL (redis://host:port/db) and pings it.
func NewLeaderboardCache(ctx context.Context, redisURL, password string, ttl time.Duration) (*LeaderboardCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewLeaderboardCacheWithClient(rdb, ttl), nil
}

func NewLeaderboardCacheWithClient(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

// The board and its generation share a hash tag so the transactions below
// stay on one cluster slot.
func leaderboardKey(circleID int64) string {
	return fmt.Sprintf("circle:{%d}:leaderboard", circleID)
}

func generationKey(circleID int64) string {
	return fmt.Sprintf("circle:{%d}:leaderboard:gen", circleID)
}

// Get returns the cached board. On a miss it returns the current generation,
// which the caller hands back to Set with the rows it computed.
func (c *LeaderboardCache) Get(ctx context.Context, circleID int64) ([]LeaderboardRow, int64, bool, error) {
	if c == nil || c.client == nil {
		return nil, 0, false, nil
	}
	pipe := c.client.Pipeline()
	boardCmd := pipe.Get(ctx, leaderboardKey(circleID))
	genCmd := pipe.Get(ctx, generationKey(circleID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}

	gen, err := genCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}
	raw, err := boardCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	var rows []LeaderboardRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		// a corrupt entry is treated as a miss and overwritten on the next Set
		return nil, gen, false, nil
	}
	return rows, gen, true, nil
}

// Set stores rows only if no Invalidate ran since the Get that returned gen.
// A board read before a committed award is dropped instead of cached.
func (c *LeaderboardCache) Set(ctx context.Context, circleID, gen int64, rows []LeaderboardRow) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	genKey := generationKey(circleID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, leaderboardKey(circleID), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate drops the cached leaderboard after a points or membership
// change and bumps the generation so in-flight fills are discarded.
func (c *LeaderboardCache) Invalidate(ctx context.Context, circleID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(circleID))
		pipe.Del(ctx, leaderboardKey(circleID))
		return nil
	})
	return err
}

func (c *LeaderboardCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
