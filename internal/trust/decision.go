package trust

// Decision thresholds. Scores at or above DefaultTrustedThreshold grant
// full trust; scores at or above DefaultReverifyThreshold require
// step-up verification; anything lower is blocked.
const (
	DefaultTrustedThreshold  = 70
	DefaultReverifyThreshold = 45
)

// MaxNominalScore is the sum of every factor's best-case contribution.
// Informational only; scores are never normalized against it.
const MaxNominalScore = 135

// Thresholds carries the two decision cut lines so deployments can tune
// them through config. Zero value falls back to the defaults.
type Thresholds struct {
	Trusted  int
	Reverify int
}

func (t Thresholds) orDefaults() Thresholds {
	if t.Trusted == 0 && t.Reverify == 0 {
		return Thresholds{Trusted: DefaultTrustedThreshold, Reverify: DefaultReverifyThreshold}
	}
	return t
}

// classify maps a total score to an access decision. Secondary devices
// never reach trusted: their best outcome is reverify, regardless of
// score.
func classify(score int, deviceType DeviceType, t Thresholds) Status {
	t = t.orDefaults()

	var status Status
	switch {
	case score >= t.Trusted:
		status = StatusTrusted
	case score >= t.Reverify:
		status = StatusReverify
	default:
		status = StatusBlocked
	}

	if status == StatusTrusted && deviceType == DeviceSecondary {
		status = StatusReverify
	}
	return status
}
