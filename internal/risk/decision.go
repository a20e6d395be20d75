package risk

// Level buckets a score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Thresholds are inclusive lower bounds, checked highest first.
const (
	ThresholdMedium   = 30
	ThresholdHigh     = 60
	ThresholdCritical = 90
)

// Decision is the access verdict for a score.
type Decision struct {
	Level   Level  `json:"level"`
	Allowed bool   `json:"allowed"`
	StepUp  bool   `json:"stepUp"`
	Reason  string `json:"reason"`
}

// Decide maps a score onto a decision. Scores in [80,90) land in HIGH.
func Decide(score int) Decision {
	if score >= ThresholdCritical {
		return Decision{Level: LevelCritical, Allowed: false, Reason: "Critical risk detected"}
	}
	if score >= ThresholdHigh {
		return Decision{Level: LevelHigh, Allowed: false, Reason: "High risk detected"}
	}
	if score >= ThresholdMedium {
		return Decision{Level: LevelMedium, Allowed: true, StepUp: true, Reason: "Medium risk - additional verification recommended"}
	}
	return Decision{Level: LevelLow, Allowed: true, Reason: "Low risk"}
}

// Severity maps a level onto the lowercase severity stored on risk events.
func (l Level) Severity() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	default:
		return "low"
	}
}
