package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLimiterSlidesWithTheOldestHit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Unix(1_700_000_000, 0)
	limiter := Limiter{Client: client, Prefix: "storefront:rl:", Now: func() time.Time { return now }}
	ctx := context.Background()
	const key = "geocode:session:abc"

	d, err := limiter.Allow(ctx, key, time.Minute, 2)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 1, d.Remaining)

	now = now.Add(40 * time.Second)
	d, err = limiter.Allow(ctx, key, time.Minute, 2)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)

	d, err = limiter.Allow(ctx, key, time.Minute, 2)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, time.Unix(1_700_000_060, 0), d.ResetAt, "window reopens a minute after the first hit")

	// The first hit falls out; the rejected one and the 40s one still count.
	now = now.Add(21 * time.Second)
	d, err = limiter.Allow(ctx, key, time.Minute, 2)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	now = now.Add(time.Minute)
	d, err = limiter.Allow(ctx, key, time.Minute, 2)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.True(t, mr.Exists("storefront:rl:"+key))
}

func TestLimiterDisabledAllowsEverything(t *testing.T) {
	for _, l := range []Limiter{{}, {Client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})}} {
		d, err := l.Allow(context.Background(), "any", time.Second, 0)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
}
