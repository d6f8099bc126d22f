package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"reelcraft-server/modules/common/config"
	"reelcraft-server/modules/common/logger"
)

var log = logger.For("redis")

const (
	dialTimeout = 10 * time.Second
	ioTimeout   = 30 * time.Second
	pingTimeout = 10 * time.Second
)

// Options - client options for the queue, locker and status channel
// BRPOP blocks for up to the dequeue timeout, so the read timeout stays well above it.
func Options(cfg *config.Config) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
	if cfg.RedisUseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ServerName:         cfg.RedisHost,
			InsecureSkipVerify: cfg.RedisTLSSkipVerify,
		}
	}
	return opts
}

// Connect - Redis 연결 생성; nil when the server is unreachable
func Connect(ctx context.Context, cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(Options(cfg))
	if err := ping(ctx, rdb); err != nil {
		log.Errorf("❌ %v", err)
		rdb.Close()
		return nil
	}

	log.Infof("✅ Redis connected (%s, db %d, tls: %v)", cfg.GetRedisAddr(), cfg.RedisDB, cfg.RedisUseTLS)
	if cfg.RedisTLSSkipVerify {
		log.Warn("⚠️ Redis TLS certificate verification is disabled")
	}
	return rdb
}

func ping(ctx context.Context, rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s failed: %w", rdb.Options().Addr, err)
	}
	return nil
}
