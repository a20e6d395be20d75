package domain

import "time"

// Risk event types written by the session lifecycle.
const (
	EventRegister    = "register"
	EventLogin       = "login"
	EventLoginDenied = "login_denied"
	EventSession     = "session"
)

// Severity values accepted for externally reported risk events.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ValidSeverity reports whether s is one of the known severities.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RiskDetails is the open JSON object attached to a risk event. Known keys are
// "reason" (string) and "score" (number 0..100); the engine also stores its
// factor booleans here.
type RiskDetails map[string]any

// RiskEvent is an append-only audit record tied to a session.
type RiskEvent struct {
	ID             int64
	SessionID      string
	EventType      string
	Severity       string
	RiskFactors    RiskDetails
	CalculatedRisk int
	CreatedAt      time.Time
}
