package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	pw "github.com/NabilMouzouna/NubleTrust-monorepo/internal/password"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
)

const minPasswordLength = 8

// CredentialService registers and authenticates app users.
type CredentialService struct {
	users    repository.UserRepository
	appUsers repository.AppUserRepository
	hasher   *pw.Hasher
	instrumentation
}

// CredentialOption customises a CredentialService.
type CredentialOption func(*CredentialService)

// WithHasher sets the algorithm used for new password hashes. bcrypt otherwise.
func WithHasher(h *pw.Hasher) CredentialOption {
	return func(s *CredentialService) {
		if h != nil {
			s.hasher = h
		}
	}
}

// NewCredentialService wires dependencies.
func NewCredentialService(users repository.UserRepository, appUsers repository.AppUserRepository, logger *zap.Logger, opts ...CredentialOption) *CredentialService {
	s := &CredentialService{users: users, appUsers: appUsers, instrumentation: newInstrumentation(logger)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the app user for (appID, email). A platform user with the
// same email is reused, in which case password must match the stored hash.
func (s *CredentialService) Register(ctx context.Context, appID, email, password string) (domain.AppUser, error) {
	ctx, span := s.startSpan(ctx, "CredentialService.Register")
	defer span.End()

	normalized, err := validateCredentials(email, password)
	if err != nil {
		return domain.AppUser{}, err
	}

	if _, err := s.appUsers.GetByEmail(ctx, appID, normalized); err == nil {
		return domain.AppUser{}, ErrAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		span.RecordError(err)
		return domain.AppUser{}, fmt.Errorf("check app user: %w", err)
	}

	user, err := s.ensureUser(ctx, normalized, password)
	if err != nil {
		span.RecordError(err)
		return domain.AppUser{}, err
	}

	appUser, err := s.appUsers.Create(ctx, domain.AppUser{
		ID:     uuid.NewString(),
		AppID:  appID,
		UserID: user.ID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.AppUser{}, ErrAlreadyRegistered
		}
		span.RecordError(err)
		return domain.AppUser{}, fmt.Errorf("create app user: %w", err)
	}
	appUser.Email = user.Email
	appUser.PasswordHash = user.PasswordHash

	s.audit("credential.register.success", "app_id", appID, "app_user_id", appUser.ID)
	return appUser, nil
}

func (s *CredentialService) ensureUser(ctx context.Context, email, password string) (domain.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.checkExisting(existing, password)
	case !errors.Is(err, repository.ErrNotFound):
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.users.Create(ctx, domain.User{ID: uuid.NewString(), Email: email, PasswordHash: hash})
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	// Lost a race with a concurrent registration of the same email.
	existing, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("reload user: %w", err)
	}
	return s.checkExisting(existing, password)
}

func (s *CredentialService) checkExisting(user domain.User, password string) (domain.User, error) {
	ok, err := pw.Verify(password, user.PasswordHash)
	if err != nil {
		return domain.User{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Authenticate checks the password of the app user registered under email.
func (s *CredentialService) Authenticate(ctx context.Context, appID, email, password string) (domain.AppUser, error) {
	ctx, span := s.startSpan(ctx, "CredentialService.Authenticate")
	defer span.End()

	normalized := normalizeEmail(email)
	if normalized == "" || password == "" {
		return domain.AppUser{}, ErrMissingCredentials
	}

	appUser, err := s.appUsers.GetByEmail(ctx, appID, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.AppUser{}, ErrNotRegistered
		}
		span.RecordError(err)
		return domain.AppUser{}, fmt.Errorf("load app user: %w", err)
	}

	ok, err := pw.Verify(password, appUser.PasswordHash)
	if err != nil {
		s.log().Error("stored password hash unreadable", zap.String("app_user_id", appUser.ID), zap.Error(err))
		return domain.AppUser{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.audit("credential.login.failed", "app_id", appID, "app_user_id", appUser.ID)
		return domain.AppUser{}, ErrInvalidCredentials
	}
	return appUser, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) (string, error) {
	normalized := normalizeEmail(email)
	if normalized == "" || password == "" {
		return "", ErrMissingCredentials
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	return normalized, nil
}
