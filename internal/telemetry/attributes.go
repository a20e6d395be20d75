package telemetry

import (
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

// ServiceNamespace groups every NubleTrust process under one resource namespace.
const ServiceNamespace = "nubletrust"

// Span attribute keys for risk decisions.
const (
	AppIDKey        = attribute.Key("nubletrust.app_id")
	AppUserIDKey    = attribute.Key("nubletrust.app_user_id")
	SessionEventKey = attribute.Key("nubletrust.session.event")
	RiskScoreKey    = attribute.Key("nubletrust.risk.score")
	RiskLevelKey    = attribute.Key("nubletrust.risk.level")
	RiskAllowedKey  = attribute.Key("nubletrust.risk.allowed")
	RiskStepUpKey   = attribute.Key("nubletrust.risk.step_up")
	RiskFactorsKey  = attribute.Key("nubletrust.risk.factors")
)

// RiskDecision describes one scored session for span attributes.
type RiskDecision struct {
	AppID     string
	AppUserID string
	Event     string
	Score     int
	Level     string
	Allowed   bool
	StepUp    bool
	Factors   map[string]bool
}

// Attributes flattens the decision. Only triggered factors are listed, sorted.
func (d RiskDecision) Attributes() []attribute.KeyValue {
	triggered := make([]string, 0, len(d.Factors))
	for name, hit := range d.Factors {
		if hit {
			triggered = append(triggered, name)
		}
	}
	sort.Strings(triggered)

	return []attribute.KeyValue{
		AppIDKey.String(d.AppID),
		AppUserIDKey.String(d.AppUserID),
		SessionEventKey.String(d.Event),
		RiskScoreKey.Int(d.Score),
		RiskLevelKey.String(d.Level),
		RiskAllowedKey.Bool(d.Allowed),
		RiskStepUpKey.Bool(d.StepUp),
		RiskFactorsKey.StringSlice(triggered),
	}
}
