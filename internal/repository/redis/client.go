// Package redis provides the optional revocation fast-path cache.
package redis

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect dials Redis and returns a client, or nil when addr is empty or
// the server is unreachable. Redis is an optimization here, not a source of
// truth, so an unavailable cache downgrades to store-only lookups instead of
// failing startup.
func Connect(addr, password string) *redis.Client {
	if addr == "" {
		log.Println("[REDIS] No address configured, revocation cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[REDIS] Warning: could not connect: %v. Falling back to store-only revocation checks.", err)
		_ = client.Close()
		return nil
	}

	log.Println("[REDIS] Connected successfully")
	return client
}

// Cache adapts redis.Client to the session service's cache contract.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}
