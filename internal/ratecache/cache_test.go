package ratecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/sacco/internal/domain"
)

var testNow = time.Date(2026, 5, 14, 9, 30, 0, 0, time.UTC)

func newTestCache(t *testing.T, now time.Time) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return New(rdb, time.Minute, WithClock(func() time.Time { return now })), mr
}

func TestOnce(t *testing.T) {
	c, mr := newTestCache(t, testNow)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (decimal.Decimal, error) {
		calls++
		return decimal.RequireFromString("4.25"), nil
	}

	rate, err := c.Once(ctx, domain.AccountTypeGroup, load)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("4.25").Equal(rate))

	rate, err = c.Once(ctx, domain.AccountTypeGroup, load)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("4.25").Equal(rate))
	require.Equal(t, 1, calls)
	require.True(t, mr.Exists(keyPrefix+"GROUP:20260514"))

	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists(keyPrefix+"GROUP:20260514"))

	_, err = c.Once(ctx, domain.AccountTypeGroup, load)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestOnceLoadError(t *testing.T) {
	c, mr := newTestCache(t, testNow)
	errLoad := errors.New("db down")

	_, err := c.Once(context.Background(), domain.AccountTypeFixed, func(context.Context) (decimal.Decimal, error) {
		return decimal.Decimal{}, errLoad
	})
	require.ErrorIs(t, err, errLoad)
	require.False(t, mr.Exists(keyPrefix+"FIXED:20260514"))
}

func TestInvalidate(t *testing.T) {
	c, mr := newTestCache(t, testNow)
	ctx := context.Background()

	require.NoError(t, c.Invalidate(ctx, domain.AccountTypeRegular))

	_, err := c.Once(ctx, domain.AccountTypeRegular, func(context.Context) (decimal.Decimal, error) {
		return decimal.RequireFromString("2.5"), nil
	})
	require.NoError(t, err)
	require.True(t, mr.Exists(keyPrefix+"REGULAR:20260514"))

	require.NoError(t, c.Invalidate(ctx, domain.AccountTypeRegular))
	require.False(t, mr.Exists(keyPrefix+"REGULAR:20260514"))

	rate, err := c.Once(ctx, domain.AccountTypeRegular, func(context.Context) (decimal.Decimal, error) {
		return decimal.RequireFromString("3"), nil
	})
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(3).Equal(rate))
}

func TestOnceExpiresAtEndOfDay(t *testing.T) {
	c, mr := newTestCache(t, time.Date(2026, 5, 14, 23, 59, 30, 0, time.UTC))

	_, err := c.Once(context.Background(), domain.AccountTypeFixed, func(context.Context) (decimal.Decimal, error) {
		return decimal.RequireFromString("6"), nil
	})
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, mr.TTL(keyPrefix+"FIXED:20260514"))
}

func TestOnceNextDayReloads(t *testing.T) {
	now := testNow

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	c := New(rdb, 48*time.Hour, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	rates := []string{"2.5", "4"}
	calls := 0
	load := func(context.Context) (decimal.Decimal, error) {
		calls++
		return decimal.RequireFromString(rates[calls-1]), nil
	}

	rate, err := c.Once(ctx, domain.AccountTypeRegular, load)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("2.5").Equal(rate))

	now = now.Add(24 * time.Hour)

	rate, err = c.Once(ctx, domain.AccountTypeRegular, load)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(4).Equal(rate))
	require.Equal(t, 2, calls)
}
