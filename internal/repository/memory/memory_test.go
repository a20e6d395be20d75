package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
)

func TestSessionsLatestActiveSkipsExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := New(func() time.Time { return now })
	ctx := context.Background()

	_, err := store.Sessions().Create(ctx, domain.Session{ID: "s1", AppUserID: "u1", JWTTokenID: "j1", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = store.Sessions().Create(ctx, domain.Session{ID: "s2", AppUserID: "u1", JWTTokenID: "j2", ExpiresAt: now})
	require.NoError(t, err)

	latest, err := store.Sessions().LatestActive(ctx, "u1", now)
	require.NoError(t, err)
	require.Equal(t, "s1", latest.ID)

	list, err := store.Sessions().ListByAppUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"s2", "s1"}, []string{list[0].ID, list[1].ID})

	_, err = store.Sessions().LatestActive(ctx, "u2", now)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUniqueConstraints(t *testing.T) {
	store := New(nil)
	ctx := context.Background()

	_, err := store.Users().Create(ctx, domain.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = store.Users().Create(ctx, domain.User{ID: "u2", Email: "A@example.com"})
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = store.AppUsers().Create(ctx, domain.AppUser{ID: "au1", AppID: "app", UserID: "u1"})
	require.NoError(t, err)
	_, err = store.AppUsers().Create(ctx, domain.AppUser{ID: "au2", AppID: "app", UserID: "u1"})
	require.ErrorIs(t, err, repository.ErrConflict)

	au, err := store.AppUsers().GetByEmail(ctx, "app", "a@example.com")
	require.NoError(t, err)
	require.Equal(t, "a@example.com", au.Email)
}

func TestRiskEventsRequireSession(t *testing.T) {
	store := New(nil)
	_, err := store.RiskEvents().Create(context.Background(), domain.RiskEvent{ID: 1, SessionID: "missing"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}
