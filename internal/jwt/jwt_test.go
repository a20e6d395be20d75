package jwt_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	customjwt "github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newKeyStore(t *testing.T) (*customjwt.KeyStore, []byte) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	store, err := customjwt.NewKeyStore(privPEM, pubPEM, []byte(testSecret))
	require.NoError(t, err)
	return store, pubPEM
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestGeneratorRoundTrip(t *testing.T) {
	keys, _ := newKeyStore(t)
	generator := customjwt.NewGenerator(keys, 10*time.Minute, customjwt.WithIssuer("nubletrust"))

	token, issued, err := generator.GenerateAccessToken("app-user-1", "app-1", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, 10*time.Minute, issued.ExpiresAt.Sub(issued.IssuedAt))

	payload, err := generator.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "app-user-1", payload.Subject)
	require.Equal(t, "app-1", payload.ApplicationID)
	require.Equal(t, "user@example.com", payload.Email)
	require.Equal(t, issued.TokenID, payload.TokenID)
}

func TestAccessTokenExpiryBoundary(t *testing.T) {
	keys, _ := newKeyStore(t)
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	generator := customjwt.NewGenerator(keys, 10*time.Minute, customjwt.WithClock(c.now))

	token, _, err := generator.GenerateAccessToken("sub", "app", "a@b.co")
	require.NoError(t, err)

	c.t = c.t.Add(10*time.Minute - time.Second)
	_, err = generator.ValidateAccessToken(token)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Second)
	_, err = generator.ValidateAccessToken(token)
	require.ErrorIs(t, err, customjwt.ErrExpired)
}

func TestAccessTokenRejectsTampering(t *testing.T) {
	keys, _ := newKeyStore(t)
	other, _ := newKeyStore(t)
	generator := customjwt.NewGenerator(keys, time.Minute)
	foreign := customjwt.NewGenerator(other, time.Minute)

	token, _, err := foreign.GenerateAccessToken("sub", "app", "a@b.co")
	require.NoError(t, err)
	_, err = generator.ValidateAccessToken(token)
	require.ErrorIs(t, err, customjwt.ErrInvalidToken)

	_, err = generator.ValidateAccessToken("not.a.jwt")
	require.ErrorIs(t, err, customjwt.ErrInvalidToken)
}

func TestAccessTokenRejectsRefreshToken(t *testing.T) {
	keys, _ := newKeyStore(t)
	generator := customjwt.NewGenerator(keys, time.Minute)
	refresh := customjwt.NewRefreshSigner(keys, time.Hour)

	token, _, err := refresh.Sign("sub", "app", "a@b.co")
	require.NoError(t, err)
	_, err = generator.ValidateAccessToken(token)
	require.ErrorIs(t, err, customjwt.ErrInvalidToken)
}

func TestRefreshSignerRoundTrip(t *testing.T) {
	keys, _ := newKeyStore(t)
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	signer := customjwt.NewRefreshSigner(keys, 7*24*time.Hour, customjwt.WithClock(c.now))

	token, issued, err := signer.Sign("sub", "app", "a@b.co")
	require.NoError(t, err)
	require.Len(t, issued.TokenID, 26)

	payload, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, issued.TokenID, payload.TokenID)
	require.Equal(t, "app", payload.ApplicationID)

	_, second, err := signer.Sign("sub", "app", "a@b.co")
	require.NoError(t, err)
	require.NotEqual(t, issued.TokenID, second.TokenID)

	c.t = c.t.Add(7*24*time.Hour + time.Second)
	_, err = signer.Parse(token)
	require.ErrorIs(t, err, customjwt.ErrExpired)
}

func TestRefreshSignerRejectsBadSignature(t *testing.T) {
	keys, _ := newKeyStore(t)
	other, _ := newKeyStore(t)
	signer := customjwt.NewRefreshSigner(keys, time.Hour)

	token, _, err := signer.Sign("sub", "app", "a@b.co")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	_, err = signer.Parse(parts[0] + "." + parts[1] + ".AAAA")
	require.ErrorIs(t, err, customjwt.ErrInvalidToken)

	// refresh tokens only depend on the shared secret
	_, err = customjwt.NewRefreshSigner(other, time.Hour).Parse(token)
	require.NoError(t, err)
}

func TestKeyStoreRejectsMismatchedPair(t *testing.T) {
	a, _ := newKeyStore(t)
	_, pubB := newKeyStore(t)
	require.NotEmpty(t, a.KeyID())

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	_, err = customjwt.NewKeyStore(privPEM, pubB, []byte(testSecret))
	require.Error(t, err)
}

func TestKeyStoreRejectsShortSecret(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&priv.PublicKey)})

	_, err = customjwt.NewKeyStore(privPEM, pubPEM, []byte("short"))
	require.Error(t, err)
}

func TestJWKSContainsPublicKeyOnly(t *testing.T) {
	keys, _ := newKeyStore(t)
	set := keys.JWKS()
	require.Len(t, set.Keys, 1)
	require.True(t, set.Keys[0].IsPublic())
	require.Equal(t, keys.KeyID(), set.Keys[0].KeyID)
	require.Equal(t, "RS256", set.Keys[0].Algorithm)
}
