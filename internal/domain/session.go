package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Session records one session-creating request with the signals it was scored on.
type Session struct {
	ID                string
	AppUserID         string
	JWTTokenID        string
	RiskScore         int
	DeviceFingerprint string
	IPAddress         string
	Location          string
	UserAgent         string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// Active reports whether the session can still serve as a scoring baseline.
func (s Session) Active(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// SessionSignals are the device and network attributes observed on a request.
type SessionSignals struct {
	DeviceFingerprint string    `json:"deviceFingerprint"`
	IPAddress         string    `json:"ipAddress"`
	UserAgent         string    `json:"userAgent"`
	Location          string    `json:"location"`
	ScreenResolution  string    `json:"screenResolution,omitempty"`
	Timezone          string    `json:"timezone,omitempty"`
	Language          string    `json:"language,omitempty"`
	Platform          string    `json:"platform,omitempty"`
	RequestedAt       time.Time `json:"-"`
}

// Fingerprint returns the client supplied fingerprint, or derives one from the
// remaining device components when the client did not send any.
func (s SessionSignals) Fingerprint() string {
	if fp := strings.TrimSpace(s.DeviceFingerprint); fp != "" {
		return fp
	}
	parts := []string{s.UserAgent, s.ScreenResolution, s.Timezone, s.Language, s.Platform}
	if strings.Join(parts, "") == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
