// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package redis provides the Redis client and the token revocation store built on it.

Revocation marks only have to outlive the longest-lived token they invalidate,
so every key is written with a TTL and nothing here needs persistence.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
	pingTimeout = 2 * time.Second
)

// Options configures the client. A zero PoolSize keeps the go-redis default.
type Options struct {
	URL      string
	PoolSize int
}

// ParseOptions turns Options into go-redis options without dialing.
func ParseOptions(opts Options) (*redis.Options, error) {
	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	if opts.PoolSize > 0 {
		parsed.PoolSize = opts.PoolSize
		parsed.MaxIdleConns = max(1, opts.PoolSize/2)
	}
	parsed.DialTimeout = dialTimeout
	parsed.ReadTimeout = ioTimeout
	parsed.WriteTimeout = ioTimeout

	return parsed, nil
}

// NewClient returns a client that has already answered a ping.
func NewClient(ctx stdctx.Context, opts Options, logger *slog.Logger) (*redis.Client, error) {
	parsed, err := ParseOptions(opts)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(parsed)
	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis client connected",
		slog.String("addr", parsed.Addr),
		slog.Int("db", parsed.DB),
		slog.Int("pool_size", parsed.PoolSize),
	)
	return client, nil
}

// Pinger is satisfied by *redis.Client.
type Pinger interface {
	Ping(ctx stdctx.Context) *redis.StatusCmd
}

// Ping verifies that Redis answers within a short deadline.
func Ping(ctx stdctx.Context, client Pinger) error {
	pingCtx, cancel := stdctx.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}
