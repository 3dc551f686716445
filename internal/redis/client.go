package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/discountcodes/discount-server-go/internal/errors"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

func UsedCodeKey(code string) string {
	return fmt.Sprintf("discount:used:%s", code)
}

// StatusCache records used codes in Redis with a TTL.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func (s *StatusCache) IsUsed(ctx context.Context, code string) (bool, error) {
	err := s.client.Get(ctx, UsedCodeKey(code)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Cache(err)
	}
	return true, nil
}

func (s *StatusCache) SetUsed(ctx context.Context, code string) error {
	if err := s.client.Set(ctx, UsedCodeKey(code), 1, s.ttl).Err(); err != nil {
		return apperrors.Cache(err)
	}
	return nil
}
