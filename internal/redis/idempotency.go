package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrClaimInFlight = errors.New("order is already being processed")

const pendingMarker = "pending"

// OrderClaims makes a payment order produce at most one booking.
//
// Claim returns claimed=true when the caller owns the order and must either
// Complete or Release it. When a previous booking already completed, the
// stored result is returned with claimed=false.
type OrderClaims interface {
	Claim(ctx context.Context, orderID string) (result []byte, claimed bool, err error)
	Complete(ctx context.Context, orderID string, result []byte) error
	Release(ctx context.Context, orderID string) error
}

type redisOrderClaims struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOrderClaims(client *redis.Client, ttl time.Duration) OrderClaims {
	return &redisOrderClaims{client: client, ttl: ttl}
}

func orderKey(orderID string) string {
	return fmt.Sprintf("booking:order:%s", orderID)
}

func (c *redisOrderClaims) Claim(ctx context.Context, orderID string) ([]byte, bool, error) {
	key := orderKey(orderID)

	ok, err := c.client.SetNX(ctx, key, pendingMarker, c.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim order: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the caller may retry
		return nil, false, ErrClaimInFlight
	}
	if err != nil {
		return nil, false, fmt.Errorf("read order claim: %w", err)
	}
	if string(val) == pendingMarker {
		return nil, false, ErrClaimInFlight
	}
	return val, false, nil
}

func (c *redisOrderClaims) Complete(ctx context.Context, orderID string, result []byte) error {
	if err := c.client.Set(ctx, orderKey(orderID), result, c.ttl).Err(); err != nil {
		return fmt.Errorf("complete order claim: %w", err)
	}
	return nil
}

func (c *redisOrderClaims) Release(ctx context.Context, orderID string) error {
	if err := c.client.Del(ctx, orderKey(orderID)).Err(); err != nil {
		return fmt.Errorf("release order claim: %w", err)
	}
	return nil
}
