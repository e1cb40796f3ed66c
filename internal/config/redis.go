package config

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from REDIS_ADDR (or REDIS_HOST and
// REDIS_PORT), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func RedisOptions() *redis.Options {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects and pings.  It returns nil when redis is not
// reachable; callers then run without rate limiting and caching.
func NewRedisClient() *redis.Client {
	opts := RedisOptions()
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis: %s unreachable, rate limiting and caching disabled: %v", opts.Addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
