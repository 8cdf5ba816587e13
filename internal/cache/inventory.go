package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix  = "user:%s"
	AdminKeyPrefix = "admin:%s:%s"
)

const (
	UserTTL  = 5 * time.Minute
	AdminTTL = 5 * time.Minute
)

// UserKey is the cache key of a user profile.
func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// AdminKey is the cache key of a user's organization membership.
func AdminKey(orgID, userID string) string {
	return fmt.Sprintf(AdminKeyPrefix, orgID, userID)
}

// Invalidate deletes keys. It is a no-op without a client.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	rdb.Del(ctx, keys...)
}

// InvalidateUser drops the cached profile of userID.
func InvalidateUser(ctx context.Context, rdb *redis.Client, userID string) {
	Invalidate(ctx, rdb, UserKey(userID))
}
