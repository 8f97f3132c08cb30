package draftcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

func newTestRedisKV(t *testing.T, ttl time.Duration) (*RedisKV, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	kv, err := NewRedisKV(context.Background(), "redis://"+mr.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	return kv, mr
}

func TestRedisKV_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	kv, _ := newTestRedisKV(t, time.Hour)

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", "v"))

	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, kv.Remove(ctx, "k"))
	require.NoError(t, kv.Remove(ctx, "k"))

	_, ok, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisKV_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestRedisKV(t, time.Minute)

	require.NoError(t, kv.Set(ctx, "k", "v"))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(2 * time.Minute)

	_, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisKV_ServerDownDegradesStore(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestRedisKV(t, time.Hour)
	s := NewStore(kv, "offer-draft:7", zap.NewNop())

	o := model.NewOffer()
	o.Details.Notes = "keep"
	s.Save(ctx, o)
	require.NotNil(t, s.Load(ctx))

	mr.Close()

	assert.Nil(t, s.Load(ctx))
}

func TestNewRedisKV_BadURL(t *testing.T) {
	_, err := NewRedisKV(context.Background(), "://nope", time.Hour)
	assert.Error(t, err)
}
