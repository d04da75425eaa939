package common

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"fraternitybase/registry/internal/logging"
)

// NewRedisClient builds a client and pings it once. The client is returned
// even when the ping fails; the pool keeps trying to reconnect.
func NewRedisClient(addr string, password string) *redis.Client {
	redisDB := 0 // Default DB

	logging.Info("Initializing Redis client", "addr", addr, "db", redisDB)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           redisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Error("Failed to ping Redis", "addr", addr, "error", err)
		return client
	}

	logging.Info("Successfully connected to Redis", "addr", addr)
	return client
}
