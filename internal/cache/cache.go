// Package cache keeps live match snapshots in Redis so any server instance
// can serve a reconnecting client without touching SQLite.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client for snapshot operations.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a Redis client from a connection URL. Snapshots expire
// after ttl; zero keeps them forever.
func NewClient(ctx context.Context, redisURL string, ttl time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb, ttl: ttl}, nil
}

// NewClientFromPool wraps an existing redis.Client for use in tests.
func NewClientFromPool(rdb *redis.Client, ttl time.Duration) *Client {
	return &Client{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func snapshotKey(matchID string) string { return "match:" + matchID + ":snapshot" }
func turnKey(matchID string) string     { return "match:" + matchID + ":turn" }

// SetSnapshot stores the live snapshot and its turn number.
func (c *Client) SetSnapshot(ctx context.Context, matchID string, snapshot []byte, turn int) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, snapshotKey(matchID), snapshot, c.ttl)
		p.Set(ctx, turnKey(matchID), turn, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the live snapshot, or nil if none is cached.
func (c *Client) GetSnapshot(ctx context.Context, matchID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return data, nil
}

// GetTurn returns the cached turn number, or 0 if none is cached.
func (c *Client) GetTurn(ctx context.Context, matchID string) (int, error) {
	n, err := c.rdb.Get(ctx, turnKey(matchID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get turn: %w", err)
	}
	return n, nil
}

// Delete removes everything cached for a match.
func (c *Client) Delete(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, snapshotKey(matchID), turnKey(matchID)).Err()
}
