package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/nexochat/nexo/internal/pkg/env"
)

// ErrDisabled is returned by every helper when no cache host is configured.
var ErrDisabled = errors.New("cache disabled")

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the Redis connection. An empty CACHE_HOST leaves the
// cache disabled; callers treat that like a miss.
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "")
	if host == "" {
		log.Info("[Cache] CACHE_HOST not set, cache disabled")
		client = nil
		return
	}
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] could not connect to redis at %s:%s: %v", host, port, err)
	} else {
		log.Infof("[Cache] connected to redis: %s", pong)
	}
}

// SetClient swaps the client. Pass nil to disable caching.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client instance, or nil when disabled.
func GetClient() *redis.Client {
	return client
}

// Enabled reports whether a Redis client is configured.
func Enabled() bool {
	return client != nil
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	if client == nil {
		return ErrDisabled
	}
	return client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	if client == nil {
		return "", ErrDisabled
	}
	return client.Get(ctx, key).Result()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	if client == nil {
		return ErrDisabled
	}
	return client.Del(ctx, key).Err()
}

// IsMiss reports whether err means "nothing cached" rather than a failure.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil) || errors.Is(err, ErrDisabled)
}
