package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/internal/fees"

	"github.com/go-redis/redis/v8"
)

const (
	idempotencyPrefix  = "checkout:idem:"
	feeScheduleKey     = "fees:schedule:current"
	feeScheduleVersion = "fees:schedule:v%d"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Lookup returns the order id previously recorded for an idempotency key.
// The second return is false when the key is unknown or expired.
func (c *Client) Lookup(ctx context.Context, key string) (int64, bool, error) {
	orderID, err := c.rdb.Get(ctx, idempotencyPrefix+key).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	return orderID, true, nil
}

// Remember associates an idempotency key with the order it produced
func (c *Client) Remember(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyPrefix+key, orderID, ttl).Err()
}

// PublishFeeTable stores the fee schedule as a versioned artifact: one
// immutable key per version plus a pointer to the active one, so pricing
// surfaces outside this service can quote fees without recomputing them.
func (c *Client) PublishFeeTable(ctx context.Context, table *fees.Table) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal fee table: %w", err)
	}

	versionKey := fmt.Sprintf(feeScheduleVersion, table.Version)
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, versionKey, payload, 0)
	pipe.Set(ctx, feeScheduleKey, versionKey, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish fee table: %w", err)
	}
	return nil
}

// CurrentFeeTable loads the published fee schedule, if any
func (c *Client) CurrentFeeTable(ctx context.Context) (*fees.Table, error) {
	versionKey, err := c.rdb.Get(ctx, feeScheduleKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fee table pointer: %w", err)
	}

	payload, err := c.rdb.Get(ctx, versionKey).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to load fee table %s: %w", versionKey, err)
	}

	var table fees.Table
	if err := json.Unmarshal(payload, &table); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fee table: %w", err)
	}
	return &table, nil
}
