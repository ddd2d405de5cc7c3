package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis server. Backend failures are
// absorbed: a failed read is a miss, a failed write is a no-op, both
// logged as warnings. The cache being down must never fail a lookup.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the given address. Connectivity is probed once
// so a misconfigured backend shows up in the log at startup, but an
// unreachable server is not an error.
func NewRedis(addr, password string, db int) *Redis {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[WARN] shared cache: redis %s unreachable: %v", addr, err)
	} else {
		log.Printf("[INFO] shared cache: connected to redis %s", addr)
	}
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[WARN] shared cache: get %q: %v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if len(value) == 0 || ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("[WARN] shared cache: set %q: %v", key, err)
	}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error { return r.client.Close() }
