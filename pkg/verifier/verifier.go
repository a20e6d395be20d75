// Package verifier checks NubleTrust access tokens outside the issuing
// service. The RS256 public key is fetched from the service's
// /.well-known/publicKey endpoint and cached; a failed fetch fails the
// verification.
package verifier

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultCacheTTL = 24 * time.Hour
	maxKeyBytes     = 64 << 10
)

// Claims is the identity carried by a verified access token.
type Claims = jwt.Payload

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and key fetch failures.
	ErrInvalidToken = jwt.ErrInvalidToken
	// ErrExpired is returned for a well-signed token past its expiry.
	ErrExpired = jwt.ErrExpired
)

// Verifier validates access tokens against a remotely published key.
type Verifier struct {
	url        string
	issuer     string
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time

	mu        sync.RWMutex
	key       *rsa.PublicKey
	fetchedAt time.Time
}

// Option customises a Verifier.
type Option func(*Verifier)

// WithHTTPClient replaces the default client, which times out after 5s.
func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) {
		if client != nil {
			v.httpClient = client
		}
	}
}

// WithCacheTTL sets how long a fetched key is reused. Defaults to 24h.
func WithCacheTTL(ttl time.Duration) Option {
	return func(v *Verifier) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

// WithIssuer requires the iss claim to match.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) { v.issuer = issuer }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// New builds a Verifier for the public key published at url.
func New(url string, opts ...Option) *Verifier {
	v := &Verifier{
		url:        url,
		ttl:        defaultCacheTTL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks token and returns its claims.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	key, err := v.PublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return jwt.VerifyAccessToken(token, key, v.issuer, v.now())
}

// PublicKey returns the cached key, refreshing it once the cache is stale.
func (v *Verifier) PublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, fetchedAt := v.key, v.fetchedAt
	v.mu.RUnlock()
	if key != nil && v.now().Sub(fetchedAt) < v.ttl {
		return key, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key != nil && v.now().Sub(v.fetchedAt) < v.ttl {
		return v.key, nil
	}

	fetched, err := v.fetch(ctx)
	if err != nil {
		return nil, err
	}
	v.key = fetched
	v.fetchedAt = v.now()
	return fetched, nil
}

func (v *Verifier) fetch(ctx context.Context) (*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build public key request: %w", err)
	}
	req.Header.Set("Accept", "application/x-pem-file")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("public key request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeyBytes))
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("public key fetch failed: status=%d", resp.StatusCode)
	}

	key, err := jwt.ParseRSAPublicKey(body)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return key, nil
}
