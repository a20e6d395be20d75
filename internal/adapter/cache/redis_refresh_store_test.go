package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *RedisRefreshStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisRefreshStore(client)
}

func TestRefreshStoreConsumeOnce(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()
	record := repository.RefreshRecord{AppUserID: "au-1", ApplicationID: "app-1"}

	require.NoError(t, store.Save(ctx, "jti-1", record, time.Hour))
	require.True(t, mr.Exists("refresh:jti-1"))
	require.Equal(t, time.Hour, mr.TTL("refresh:jti-1"))

	got, err := store.Consume(ctx, "jti-1")
	require.NoError(t, err)
	require.Equal(t, &record, got)

	got, err = store.Consume(ctx, "jti-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRefreshStoreExpires(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "jti-2", repository.RefreshRecord{AppUserID: "au"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := store.Consume(ctx, "jti-2")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRefreshStoreDelete(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "jti-3", repository.RefreshRecord{AppUserID: "au"}, time.Minute))
	require.NoError(t, store.Delete(ctx, "jti-3"))
	require.False(t, mr.Exists("refresh:jti-3"))
	require.NoError(t, store.Delete(ctx, "missing"))
}

func TestRefreshStoreBackendError(t *testing.T) {
	mr, store := newTestStore(t)
	mr.Close()

	_, err := store.Consume(context.Background(), "jti")
	require.Error(t, err)
}
