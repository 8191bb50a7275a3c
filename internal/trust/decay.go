package trust

// DecaySeverity grades how far a trust score has fallen between two
// consecutive evaluations of the same user+device.
type DecaySeverity string

const (
	DecayNone     DecaySeverity = "none"
	DecayMinimal  DecaySeverity = "minimal"
	DecayLow      DecaySeverity = "low"
	DecayMedium   DecaySeverity = "medium"
	DecayHigh     DecaySeverity = "high"
	DecayCritical DecaySeverity = "critical"
)

// Severity tier lower bounds (inclusive) in points of drop.
const (
	decayCriticalAmount = 50
	decayHighAmount     = 30
	decayMediumAmount   = 15
	decayLowAmount      = 5
)

// decayFactors are the factors whose negative contributions are
// attributed when a drop occurs. Stable identity factors (device, email)
// are excluded: their movement is captured by the hard-block rules and
// the new-device flag instead.
var decayFactors = []string{
	FactorLocation,
	FactorVPN,
	FactorNetwork,
	FactorTimezone,
	FactorIP,
	FactorLoginHour,
	FactorJailbreak,
}

// DecaySnapshot records one score-drop observation.
type DecaySnapshot struct {
	Previous  int            `json:"previous"`
	Current   int            `json:"current"`
	Amount    int            `json:"amount"` // previous - current; negative means the score rose
	Severity  DecaySeverity  `json:"severity"`
	PerFactor map[string]int `json:"perFactor,omitempty"` // negative deltas only
}

// TrackDecay compares the current score to the previous one and grades
// the drop. Attribution walks the current factor reports and collects
// the negative contributions of the environmental factors; a rise or
// flat score yields severity none with no attribution.
func TrackDecay(prevScore, curScore int, factors []FactorReport) DecaySnapshot {
	amount := prevScore - curScore
	snap := DecaySnapshot{
		Previous: prevScore,
		Current:  curScore,
		Amount:   amount,
		Severity: gradeDecay(amount),
	}
	if snap.Severity == DecayNone {
		return snap
	}

	for _, f := range factors {
		if f.Delta >= 0 {
			continue
		}
		for _, name := range decayFactors {
			if f.Name == name {
				if snap.PerFactor == nil {
					snap.PerFactor = make(map[string]int, len(decayFactors))
				}
				snap.PerFactor[f.Name] = f.Delta
				break
			}
		}
	}
	return snap
}

func gradeDecay(amount int) DecaySeverity {
	switch {
	case amount >= decayCriticalAmount:
		return DecayCritical
	case amount >= decayHighAmount:
		return DecayHigh
	case amount >= decayMediumAmount:
		return DecayMedium
	case amount >= decayLowAmount:
		return DecayLow
	case amount > 0:
		return DecayMinimal
	default:
		return DecayNone
	}
}

// DecayAction is the policy response to a decay observation, applied on
// top of the absolute-score decision.
type DecayAction string

const (
	ActionNone      DecayAction = "none"
	ActionReverify  DecayAction = "force_reverify"
	ActionTerminate DecayAction = "terminate_session"
)

// DecayPolicy maps a severity to the session action: critical drops
// terminate the session outright, high drops force re-verification even
// when the absolute score would still grant trust.
func DecayPolicy(severity DecaySeverity) DecayAction {
	switch severity {
	case DecayCritical:
		return ActionTerminate
	case DecayHigh:
		return ActionReverify
	default:
		return ActionNone
	}
}
