package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicfinder/backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

// probeTimeout bounds the startup ping so a missing Redis degrades quickly
const probeTimeout = 3 * time.Second

// Client wraps the Redis connection backing the geocode and response caches
type Client struct {
	client *redis.Client
}

// NewClient connects to Redis and verifies the connection with a ping
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: probeTimeout,
	})

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := client.Ping(probeCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr(), err)
	}

	return &Client{client: client}, nil
}

// Cmdable exposes the command surface used by the cache adapter
func (c *Client) Cmdable() redis.Cmdable {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}
