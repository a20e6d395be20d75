package service

import (
	"time"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/risk"
)

// TokenPair is a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Access       jwt.Payload
	Refresh      jwt.Payload
}

// UserViewModel represents lightweight user data returned to clients.
type UserViewModel struct {
	ID    string `json:"id"`
	AppID string `json:"appId,omitempty"`
	Email string `json:"email,omitempty"`
}

// RiskViewModel is the risk summary attached to auth responses.
type RiskViewModel struct {
	Score  int        `json:"score"`
	Level  risk.Level `json:"level"`
	StepUp bool       `json:"stepUp,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

func newRiskViewModel(assessment risk.Assessment, decision risk.Decision) RiskViewModel {
	return RiskViewModel{Score: assessment.Score, Level: decision.Level, StepUp: decision.StepUp, Reason: decision.Reason}
}

// AuthResult is the outcome of a register or login.
type AuthResult struct {
	Tokens  TokenPair
	User    UserViewModel
	Risk    RiskViewModel
	Session domain.Session
}

// RefreshResult is the outcome of a refresh.
type RefreshResult struct {
	Tokens TokenPair
	User   UserViewModel
}

// SessionViewModel is a session as listed to its owner.
type SessionViewModel struct {
	ID                string    `json:"id"`
	RiskScore         int       `json:"riskScore"`
	DeviceFingerprint string    `json:"deviceFingerprint"`
	IPAddress         string    `json:"ipAddress"`
	Location          string    `json:"location"`
	UserAgent         string    `json:"userAgent,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"createdAt"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// NewSessionViewModel hides the token id from API consumers.
func NewSessionViewModel(s domain.Session, now time.Time) SessionViewModel {
	return SessionViewModel{
		ID:                s.ID,
		RiskScore:         s.RiskScore,
		DeviceFingerprint: s.DeviceFingerprint,
		IPAddress:         s.IPAddress,
		Location:          s.Location,
		UserAgent:         s.UserAgent,
		Active:            s.Active(now),
		CreatedAt:         s.CreatedAt,
		ExpiresAt:         s.ExpiresAt,
	}
}

// SessionResult is the outcome of scoring a session through the sessions API.
type SessionResult struct {
	Session  SessionViewModel `json:"session"`
	Risk     RiskViewModel    `json:"risk"`
	Factors  map[string]bool  `json:"factors"`
	Decision risk.Decision    `json:"decision"`
}

// RiskReport is an externally reported risk event. A nil Score falls back to
// the session's own risk score.
type RiskReport struct {
	SessionID string
	Type      string
	Severity  string
	Details   domain.RiskDetails
	Score     *int
}

// RiskEventViewModel is a risk event as listed to its owner.
type RiskEventViewModel struct {
	ID             string             `json:"id"`
	SessionID      string             `json:"sessionId"`
	EventType      string             `json:"eventType"`
	Severity       string             `json:"severity"`
	RiskFactors    domain.RiskDetails `json:"riskFactors"`
	CalculatedRisk int                `json:"calculatedRisk"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// NewRiskEventViewModel renders the snowflake id as a string for JS clients.
func NewRiskEventViewModel(ev domain.RiskEvent) RiskEventViewModel {
	return RiskEventViewModel{
		ID:             snowflakeString(ev.ID),
		SessionID:      ev.SessionID,
		EventType:      ev.EventType,
		Severity:       ev.Severity,
		RiskFactors:    ev.RiskFactors,
		CalculatedRisk: ev.CalculatedRisk,
		CreatedAt:      ev.CreatedAt,
	}
}
