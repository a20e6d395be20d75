package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/metrics"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
)

// TokenService issues, rotates, verifies and revokes credentials.
type TokenService struct {
	access  *jwt.Generator
	refresh *jwt.RefreshSigner
	store   repository.RefreshTokenStore
	metrics *metrics.Metrics
	instrumentation
}

// NewTokenService wires dependencies. metrics may be nil.
func NewTokenService(access *jwt.Generator, refresh *jwt.RefreshSigner, store repository.RefreshTokenStore, m *metrics.Metrics, logger *zap.Logger) *TokenService {
	return &TokenService{access: access, refresh: refresh, store: store, metrics: m, instrumentation: newInstrumentation(logger)}
}

// Issue signs a new pair and marks the refresh token id as current.
func (s *TokenService) Issue(ctx context.Context, appUserID, applicationID, email string) (pair TokenPair, err error) {
	ctx, span := s.startSpan(ctx, "TokenService.Issue")
	defer span.End()
	defer func() { s.metrics.ObserveToken("issue", err) }()

	access, accessPayload, err := s.access.GenerateAccessToken(appUserID, applicationID, email)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, refreshPayload, err := s.refresh.Sign(appUserID, applicationID, email)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	record := repository.RefreshRecord{AppUserID: appUserID, ApplicationID: applicationID}
	if err := s.store.Save(ctx, refreshPayload.TokenID, record, s.refresh.TTL()); err != nil {
		span.RecordError(err)
		return TokenPair{}, fmt.Errorf("track refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Access:       accessPayload,
		Refresh:      refreshPayload,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed, so presenting it a second time fails with ErrTokenReused.
func (s *TokenService) Refresh(ctx context.Context, refreshToken, applicationID string) (pair TokenPair, err error) {
	ctx, span := s.startSpan(ctx, "TokenService.Refresh")
	defer span.End()
	defer func() { s.metrics.ObserveToken("refresh", err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, ErrRefreshMissing
	}

	payload, err := s.refresh.Parse(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return TokenPair{}, ErrTokenExpired
		}
		return TokenPair{}, ErrTokenInvalid
	}
	if payload.ApplicationID != applicationID {
		s.audit("refresh_token.mismatch", "token_app_id", payload.ApplicationID, "app_id", applicationID, "app_user_id", payload.Subject)
		return TokenPair{}, ErrTokenMismatch
	}

	record, err := s.store.Consume(ctx, payload.TokenID)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, fmt.Errorf("consume refresh token: %w", err)
	}
	if record == nil {
		s.audit("refresh_token.reuse", "app_id", applicationID, "app_user_id", payload.Subject, "jti", payload.TokenID)
		return TokenPair{}, ErrTokenReused
	}
	if record.AppUserID != payload.Subject || record.ApplicationID != payload.ApplicationID {
		return TokenPair{}, ErrTokenInvalid
	}

	pair, err = s.Issue(ctx, payload.Subject, payload.ApplicationID, payload.Email)
	if err != nil {
		return TokenPair{}, err
	}
	s.audit("refresh_token.success", "app_id", applicationID, "app_user_id", payload.Subject)
	return pair, nil
}

// Verify checks an access token.
func (s *TokenService) Verify(ctx context.Context, accessToken string) (payload *jwt.Payload, err error) {
	_, span := s.startSpan(ctx, "TokenService.Verify")
	defer span.End()
	defer func() { s.metrics.ObserveToken("verify", err) }()

	payload, err = s.access.ValidateAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return payload, nil
}

// Revoke is best effort: it never fails the caller. A valid refresh token has
// its id removed so it can no longer be exchanged.
func (s *TokenService) Revoke(ctx context.Context, accessToken, refreshToken string) {
	ctx, span := s.startSpan(ctx, "TokenService.Revoke")
	defer span.End()
	defer s.metrics.ObserveToken("revoke", nil)

	subject := ""
	if accessToken != "" {
		if payload, err := s.access.ValidateAccessToken(accessToken); err == nil {
			subject = payload.Subject
		}
	}

	if refreshToken != "" {
		if payload, err := s.refresh.Parse(refreshToken); err == nil {
			if subject == "" || subject == payload.Subject {
				if err := s.store.Delete(ctx, payload.TokenID); err != nil {
					s.log().Warn("revoke refresh token failed", zap.String("jti", payload.TokenID), zap.Error(err))
				}
				subject = payload.Subject
			}
		}
	}

	if subject != "" {
		s.audit("logout", "app_user_id", subject)
	}
}
