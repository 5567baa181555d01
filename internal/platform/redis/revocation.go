// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package redis

import (
	stdctx "context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parley-chat/parley/internal/platform/constants"
)

// KeyValue is the subset of *redis.Client the revocation store needs.
type KeyValue interface {
	Set(ctx stdctx.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx stdctx.Context, key string) *redis.StringCmd
}

// RevocationStore records, per account, the instant before which every issued
// token is no longer accepted.
//
// Marks are unix milliseconds, the precision of the iat_ms token claim.
type RevocationStore struct {
	kv KeyValue
}

// NewRevocationStore creates a [RevocationStore] over kv.
func NewRevocationStore(kv KeyValue) *RevocationStore {
	return &RevocationStore{kv: kv}
}

func revocationKey(userID int64) string {
	return constants.RedisPrefixRevokedBefore + strconv.FormatInt(userID, 10)
}

// Revoke invalidates every token of userID issued strictly before at.
//
// ttl should be the token lifetime: once it has elapsed all older tokens have
// expired on their own and the mark is no longer needed.
func (store *RevocationStore) Revoke(ctx stdctx.Context, userID int64, at time.Time, ttl time.Duration) error {
	value := strconv.FormatInt(at.UnixMilli(), 10)
	if err := store.kv.Set(ctx, revocationKey(userID), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoke tokens of user %d: %w", userID, err)
	}
	return nil
}

// RevokedBefore returns the revocation mark of userID, if one is set.
func (store *RevocationStore) RevokedBefore(ctx stdctx.Context, userID int64) (time.Time, bool, error) {
	value, err := store.kv.Get(ctx, revocationKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis: read revocation of user %d: %w", userID, err)
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis: corrupt revocation mark %q: %w", value, err)
	}

	return time.UnixMilli(millis), true, nil
}
