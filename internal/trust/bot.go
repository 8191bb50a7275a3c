package trust

import "time"

// BotVerdict is the liveness classification outcome.
type BotVerdict string

const (
	VerdictHuman      BotVerdict = "human"
	VerdictSuspicious BotVerdict = "suspicious"
	VerdictBot        BotVerdict = "bot"
	VerdictUnknown    BotVerdict = "unknown"
)

// IsBot reports whether the verdict is a definite bot classification.
func (v BotVerdict) IsBot() bool { return v == VerdictBot }

// IsSuspicious reports whether the verdict indicates non-human or
// ambiguous behavior (bot counts as suspicious).
func (v BotVerdict) IsSuspicious() bool {
	return v == VerdictSuspicious || v == VerdictBot
}

// BotReport is the output of the liveness classifier.
type BotReport struct {
	Verdict     BotVerdict  `json:"verdict"`
	Confidence  float64     `json:"confidence"` // 0.0-1.0, meaningless for unknown
	TouchActive bool        `json:"touchActive"`
	Motion      MotionState `json:"motion"`
	Reason      string      `json:"reason"`
	DetectedAt  time.Time   `json:"detectedAt"`
}

// botScoreUnknown is the flat score contribution for an unclassifiable
// signal pair.
const botScoreUnknown = 5

// ClassifyBot maps the (touch, motion) signal pair to a liveness verdict
// with a fixed confidence. The table is exhaustive over the 2x3 input
// space; any motion value outside the enum falls back to unknown.
// Pure and stateless.
func ClassifyBot(touchActive bool, motion MotionState, magnitude float64) BotReport {
	report := BotReport{
		TouchActive: touchActive,
		Motion:      motion,
		DetectedAt:  time.Now(),
	}

	switch {
	case !touchActive && motion == MotionUnknown:
		report.Verdict = VerdictBot
		report.Confidence = 0.05
		report.Reason = "no touch interaction and no motion data"
	case !touchActive && motion == MotionStill:
		report.Verdict = VerdictBot
		report.Confidence = 0.10
		report.Reason = "no touch interaction on a stationary device"
	case !touchActive && motion == MotionMoving:
		report.Verdict = VerdictSuspicious
		report.Confidence = 0.40
		report.Reason = "device moving but no touch interaction"
	case touchActive && motion == MotionUnknown:
		report.Verdict = VerdictSuspicious
		report.Confidence = 0.50
		report.Reason = "touch interaction present but motion unavailable"
	case touchActive && motion == MotionStill:
		report.Verdict = VerdictHuman
		report.Confidence = 0.90
		report.Reason = "touch interaction on a stationary device"
	case touchActive && motion == MotionMoving:
		report.Verdict = VerdictHuman
		report.Confidence = 0.95
		report.Reason = "touch interaction on a moving device"
	default:
		report.Verdict = VerdictUnknown
		report.Reason = "unrecognized signal combination"
	}

	return report
}

// Score maps the classifier confidence to a 0-20 point contribution:
// floor(20 * confidence), with a flat 5 for unknown.
func (r BotReport) Score() int {
	if r.Verdict == VerdictUnknown {
		return botScoreUnknown
	}
	return int(20 * r.Confidence)
}
