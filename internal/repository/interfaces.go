package repository

import (
	"context"
	"errors"
	"time"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned when an insert violates a unique constraint.
	ErrConflict = errors.New("repository: conflict")
)

// ApplicationRepository exposes registered applications.
type ApplicationRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (domain.Application, error)
	Create(ctx context.Context, app domain.Application) (domain.Application, error)
}

// UserRepository exposes persistence for platform users.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
}

// AppUserRepository manages the user to application membership.
type AppUserRepository interface {
	GetByEmail(ctx context.Context, appID, email string) (domain.AppUser, error)
	GetByID(ctx context.Context, id string) (domain.AppUser, error)
	Create(ctx context.Context, appUser domain.AppUser) (domain.AppUser, error)
}

// SessionRepository stores scored sessions.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)
	GetByID(ctx context.Context, id string) (domain.Session, error)
	LatestActive(ctx context.Context, appUserID string, now time.Time) (domain.Session, error)
	ListByAppUser(ctx context.Context, appUserID string, limit int) ([]domain.Session, error)
}

// RiskEventRepository is append-only.
type RiskEventRepository interface {
	Create(ctx context.Context, event domain.RiskEvent) (domain.RiskEvent, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.RiskEvent, error)
	ListRecentByAppUser(ctx context.Context, appUserID string, since time.Time) ([]domain.RiskEvent, error)
}

// RefreshRecord marks a refresh token id as the current valid one for an app user.
type RefreshRecord struct {
	AppUserID     string `json:"appUserId"`
	ApplicationID string `json:"appId"`
}

// RefreshTokenStore tracks refresh token ids that may still be exchanged.
type RefreshTokenStore interface {
	Save(ctx context.Context, tokenID string, record RefreshRecord, ttl time.Duration) error
	// Consume atomically removes the id and returns its record, or nil when the
	// id is unknown, already used or expired.
	Consume(ctx context.Context, tokenID string) (*RefreshRecord, error)
	Delete(ctx context.Context, tokenID string) error
}
