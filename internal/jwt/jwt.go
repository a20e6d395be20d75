package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

// Generator signs and validates RS256 access tokens.
type Generator struct {
	keys      *KeyStore
	accessTTL time.Duration
	settings  settings
}

// NewGenerator constructs an access token generator.
func NewGenerator(keys *KeyStore, accessTTL time.Duration, opts ...Option) *Generator {
	return &Generator{keys: keys, accessTTL: accessTTL, settings: newSettings(opts)}
}

// AccessTokenClaims are the private claims of an access token.
type AccessTokenClaims struct {
	ApplicationID string `json:"appId"`
	Email         string `json:"email"`
}

// TTL returns the access token lifetime.
func (g *Generator) TTL() time.Duration { return g.accessTTL }

// GenerateAccessToken produces a signed JWT for the app user.
func (g *Generator) GenerateAccessToken(subject, applicationID, email string) (string, Payload, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.RS256, Key: g.keys.signingKey()},
		(&gojose.SignerOptions{}).WithType("JWT").WithHeader("kid", g.keys.KeyID()),
	)
	if err != nil {
		return "", Payload{}, fmt.Errorf("new signer: %w", err)
	}

	now := g.settings.now().UTC().Truncate(time.Second)
	payload := Payload{
		Subject:       subject,
		ApplicationID: applicationID,
		Email:         email,
		TokenID:       NewTokenID(now),
		IssuedAt:      now,
		ExpiresAt:     now.Add(g.accessTTL),
	}
	stdClaims := gojwt.Claims{
		ID:       payload.TokenID,
		Subject:  subject,
		Issuer:   g.settings.issuer,
		IssuedAt: gojwt.NewNumericDate(payload.IssuedAt),
		Expiry:   gojwt.NewNumericDate(payload.ExpiresAt),
	}
	custom := AccessTokenClaims{ApplicationID: applicationID, Email: email}

	token, err := gojwt.Signed(signer).Claims(stdClaims).Claims(custom).Serialize()
	if err != nil {
		return "", Payload{}, fmt.Errorf("serialize jwt: %w", err)
	}
	return token, payload, nil
}

// ValidateAccessToken verifies the signature with the local public key.
func (g *Generator) ValidateAccessToken(token string) (*Payload, error) {
	return VerifyAccessToken(token, g.keys.PublicKey(), g.settings.issuer, g.settings.now())
}

// VerifyAccessToken checks an RS256 access token against key at the given instant.
// Expiry has no leeway.
func VerifyAccessToken(token string, key *rsa.PublicKey, issuer string, at time.Time) (*Payload, error) {
	if key == nil {
		return nil, ErrInvalidToken
	}
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.RS256})
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidToken, err)
	}

	var std gojwt.Claims
	var custom AccessTokenClaims
	if err := parsed.Claims(key, &std, &custom); err != nil {
		return nil, fmt.Errorf("%w: verify: %v", ErrInvalidToken, err)
	}
	if std.Expiry == nil || std.Subject == "" || custom.ApplicationID == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}

	err = std.ValidateWithLeeway(gojwt.Expected{Issuer: issuer, Time: at}, 0)
	switch {
	case err == nil:
	case errors.Is(err, gojwt.ErrExpired):
		return nil, ErrExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	payload := &Payload{
		Subject:       std.Subject,
		ApplicationID: custom.ApplicationID,
		Email:         custom.Email,
		TokenID:       std.ID,
		ExpiresAt:     std.Expiry.Time(),
	}
	if std.IssuedAt != nil {
		payload.IssuedAt = std.IssuedAt.Time()
	}
	return payload, nil
}
