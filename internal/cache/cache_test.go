package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
}

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	return mr, rdb
}

func TestCacheAside(t *testing.T) {
	mr, rdb := setup(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *profile) func() (bool, error) {
		return func() (bool, error) {
			calls++
			dest.Name = "Ada"
			return true, nil
		}
	}

	var first profile
	found, err := CacheAside(ctx, rdb, "user", UserKey("u1"), &first, UserTTL, fetch(&first))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("user:u1"))
	assert.Equal(t, UserTTL, mr.TTL("user:u1"))

	var second profile
	found, err = CacheAside(ctx, rdb, "user", UserKey("u1"), &second, UserTTL, fetch(&second))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ada", second.Name)
	assert.Equal(t, 1, calls, "second read must be served from cache")

	InvalidateUser(ctx, rdb, "u1")
	assert.False(t, mr.Exists("user:u1"))
}

func TestCacheAside_MissNotStored(t *testing.T) {
	mr, rdb := setup(t)
	var p profile
	found, err := CacheAside(context.Background(), rdb, "user", UserKey("ghost"), &p, UserTTL, func() (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("user:ghost"))
}

func TestCacheAside_FetchError(t *testing.T) {
	_, rdb := setup(t)
	var p profile
	_, err := CacheAside(context.Background(), rdb, "user", UserKey("x"), &p, UserTTL, func() (bool, error) {
		return false, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestCacheAside_NilClient(t *testing.T) {
	var p profile
	found, err := CacheAside(context.Background(), nil, "user", UserKey("u1"), &p, time.Minute, func() (bool, error) {
		p.Name = "direct"
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "direct", p.Name)
	Invalidate(context.Background(), nil, "anything")
}

func TestCacheAside_RedisDownFallsThrough(t *testing.T) {
	mr, rdb := setup(t)
	mr.Close()
	var p profile
	found, err := CacheAside(context.Background(), rdb, "user", UserKey("u1"), &p, time.Minute, func() (bool, error) {
		p.Name = "db"
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "db", p.Name)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	assert.NotNil(t, Connect(mr.Addr()))
	assert.NotNil(t, Connect("redis://"+mr.Addr()+"/0"))
	assert.Nil(t, Connect("redis://%zz"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:user_1", UserKey("user_1"))
	assert.Equal(t, "admin:org_1:user_1", AdminKey("org_1", "user_1"))
}
