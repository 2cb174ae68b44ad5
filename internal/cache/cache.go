package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// JSON wraps Redis helpers for JSON payloads. A nil client or non-positive TTL
// turns every call into a no-op miss.
type JSON struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a JSON cache helper.
func New(client *redis.Client, ttl time.Duration) *JSON {
	return &JSON{client: client, ttl: ttl}
}

func (c *JSON) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *JSON) Get(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errors.Wrapf(err, "cache get %s", key)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "cache decode %s", key)
	}
	return true, nil
}

// Set serialises v as JSON and stores it with the configured TTL.
func (c *JSON) Set(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "cache encode %s", key)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Delete removes keys. Missing keys are ignored.
func (c *JSON) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
