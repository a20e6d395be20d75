package jwt

import (
	"errors"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and claim mismatches.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrExpired indicates a well-signed token past its expiry.
	ErrExpired = errors.New("jwt: token expired")
)

// Payload is the identity carried by both access and refresh tokens.
type Payload struct {
	Subject       string
	ApplicationID string
	Email         string
	TokenID       string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Option customises a Generator or RefreshSigner.
type Option func(*settings)

type settings struct {
	now    func() time.Time
	issuer string
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIssuer sets the iss claim written and expected.
func WithIssuer(issuer string) Option {
	return func(s *settings) { s.issuer = issuer }
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewTokenID returns a lexicographically sortable token id.
func NewTokenID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}
