// Package risk scores session-creating requests against the previous session
// of the same app user and turns the score into an access decision.
package risk

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
)

// Factor names as they appear in the persisted factor map.
const (
	FactorDeviceChange        = "deviceChange"
	FactorLocationChange      = "locationChange"
	FactorIPChange            = "ipChange"
	FactorUnusualTime         = "unusualTime"
	FactorRapidRequests       = "rapidRequests"
	FactorSuspiciousUserAgent = "suspiciousUserAgent"
	FactorNewDevice           = "newDevice"
	FactorHighRiskLocation    = "highRiskLocation"
	FactorVPNDetected         = "vpnDetected"
)

// Weights is the contribution of each factor to the score.
var Weights = map[string]int{
	FactorDeviceChange:        30,
	FactorLocationChange:      25,
	FactorIPChange:            20,
	FactorUnusualTime:         15,
	FactorRapidRequests:       10,
	FactorSuspiciousUserAgent: 10,
	FactorNewDevice:           40,
	FactorHighRiskLocation:    35,
	FactorVPNDetected:         25,
}

// baseFactors are always present in Assessment.Factors, triggered or not.
var baseFactors = []string{
	FactorDeviceChange,
	FactorLocationChange,
	FactorIPChange,
	FactorUnusualTime,
	FactorRapidRequests,
	FactorSuspiciousUserAgent,
}

const (
	maxScore          = 100
	rapidWindow       = time.Minute
	rapidThreshold    = 5
	earliestUsualHour = 6
	latestUsualHour   = 22
)

var suspiciousAgents = []string{"bot", "crawler", "spider", "scraper", "curl", "wget", "python", "java"}

// Assessment is the outcome of scoring one request.
type Assessment struct {
	Score   int             `json:"score"`
	Factors map[string]bool `json:"factors"`
}

// Details converts the factor map into the open detail map stored on risk events.
func (a Assessment) Details() domain.RiskDetails {
	details := make(domain.RiskDetails, len(a.Factors))
	for k, v := range a.Factors {
		details[k] = v
	}
	return details
}

// Engine is a stateless scorer. It is safe for concurrent use.
type Engine struct {
	policy   Policy
	vpn      VPNDetector
	location *time.Location
	now      func() time.Time
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithVPNDetector replaces the detector built from the policy.
func WithVPNDetector(d VPNDetector) EngineOption {
	return func(e *Engine) { e.vpn = d }
}

// WithClock sets the time used when signals carry no request time.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation overrides the policy zone used for the unusual hour check.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// NewEngine builds an engine for policy.
func NewEngine(policy Policy, opts ...EngineOption) *Engine {
	e := &Engine{policy: policy, vpn: policy.VPNDetector(), location: policy.Location(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score computes the weighted score of current compared to previous. A nil
// previous means the app user has no usable session yet. The result depends
// only on the arguments when current.RequestedAt is set.
func (e *Engine) Score(current domain.SessionSignals, previous *domain.Session, recent []domain.RiskEvent) Assessment {
	factors := make(map[string]bool, len(Weights))
	for _, name := range baseFactors {
		factors[name] = false
	}

	at := current.RequestedAt
	if at.IsZero() {
		at = e.now()
	}

	if previous != nil {
		factors[FactorDeviceChange] = current.Fingerprint() != previous.DeviceFingerprint
		factors[FactorLocationChange] = current.Location != previous.Location
		factors[FactorIPChange] = current.IPAddress != previous.IPAddress
	} else {
		factors[FactorNewDevice] = true
	}

	factors[FactorUnusualTime] = unusualHour(at.In(e.location).Hour())
	factors[FactorRapidRequests] = countRecent(recent, at) > rapidThreshold
	factors[FactorSuspiciousUserAgent] = SuspiciousUserAgent(current.UserAgent)

	if e.policy.HighRiskLocation(current.Location) {
		factors[FactorHighRiskLocation] = true
	}
	if e.vpn != nil && e.vpn.IsVPN(current.IPAddress) {
		factors[FactorVPNDetected] = true
	}

	total := 0
	for name, triggered := range factors {
		if triggered {
			total += Weights[name]
		}
	}
	return Assessment{Score: clamp(total), Factors: factors}
}

// SuspiciousUserAgent reports whether ua looks like a script or crawler.
func SuspiciousUserAgent(ua string) bool {
	lower := strings.ToLower(ua)
	for _, pattern := range suspiciousAgents {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func unusualHour(hour int) bool {
	return hour < earliestUsualHour || hour > latestUsualHour
}

func countRecent(events []domain.RiskEvent, at time.Time) int {
	n := 0
	for _, ev := range events {
		if at.Sub(ev.CreatedAt) < rapidWindow {
			n++
		}
	}
	return n
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > maxScore:
		return maxScore
	default:
		return score
	}
}
