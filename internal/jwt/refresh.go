package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshClaims is the HS256 refresh token body.
type RefreshClaims struct {
	ApplicationID string `json:"appId"`
	Email         string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshSigner signs and parses HS256 refresh tokens.
type RefreshSigner struct {
	keys     *KeyStore
	ttl      time.Duration
	settings settings
}

// NewRefreshSigner constructs a refresh token signer.
func NewRefreshSigner(keys *KeyStore, ttl time.Duration, opts ...Option) *RefreshSigner {
	return &RefreshSigner{keys: keys, ttl: ttl, settings: newSettings(opts)}
}

// TTL returns the refresh token lifetime.
func (s *RefreshSigner) TTL() time.Duration { return s.ttl }

// Sign issues a refresh token with a fresh jti.
func (s *RefreshSigner) Sign(subject, applicationID, email string) (string, Payload, error) {
	now := s.settings.now().UTC().Truncate(time.Second)
	payload := Payload{
		Subject:       subject,
		ApplicationID: applicationID,
		Email:         email,
		TokenID:       NewTokenID(now),
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.ttl),
	}
	claims := RefreshClaims{
		ApplicationID: applicationID,
		Email:         email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        payload.TokenID,
			Subject:   subject,
			Issuer:    s.settings.issuer,
			IssuedAt:  jwt.NewNumericDate(payload.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(payload.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.keys.hmacSecret())
	if err != nil {
		return "", Payload{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, payload, nil
}

// Parse verifies the signature and expiry of a refresh token.
func (s *RefreshSigner) Parse(token string) (*Payload, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.settings.now),
		jwt.WithExpirationRequired(),
	}
	if s.settings.issuer != "" {
		options = append(options, jwt.WithIssuer(s.settings.issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(token, &RefreshClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.keys.hmacSecret(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*RefreshClaims)
	if !ok || !parsed.Valid || claims.ID == "" || claims.Subject == "" || claims.ApplicationID == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}

	payload := &Payload{
		Subject:       claims.Subject,
		ApplicationID: claims.ApplicationID,
		Email:         claims.Email,
		TokenID:       claims.ID,
		ExpiresAt:     claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	return payload, nil
}
