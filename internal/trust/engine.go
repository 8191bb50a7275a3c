package trust

import (
	"context"
	"time"
)

// Engine runs the four evaluation stages over a single snapshot. It is
// synchronous and does no I/O of its own; the cluster index is the only
// collaborator and is injected as an interface. Safe for concurrent use.
type Engine struct {
	clusters   ClusterIndex
	thresholds Thresholds
	now        func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClusterIndex sets the trusted-location index consulted by the
// location factor. Without one, every evaluation takes the no-clusters
// penalty.
func WithClusterIndex(idx ClusterIndex) EngineOption {
	return func(e *Engine) { e.clusters = idx }
}

// WithThresholds overrides the default decision cut lines.
func WithThresholds(t Thresholds) EngineOption {
	return func(e *Engine) { e.thresholds = t }
}

// WithClock overrides the evaluation timestamp source. Used in tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine with default thresholds.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs bot classification, the hard-block rule set, the factor
// pass, and the decision classifier over one snapshot. base may be nil
// on a first login. A hard block short-circuits the factor pass: the
// report carries a score of zero and a single synthetic factor in place
// of the per-factor breakdown.
//
// Decay is not computed here; it needs the previous score, which only
// the caller holds. See TrackDecay.
func (e *Engine) Evaluate(ctx context.Context, snap *SignalSnapshot, base *AttributeBaseline) *Report {
	evaluatedAt := e.now()
	bot := ClassifyBot(snap.UserInteracting, snap.Motion, snap.MotionMagnitude)

	report := &Report{
		UserID:      snap.UserID,
		DeviceID:    snap.DeviceID,
		DeviceType:  snap.DeviceType,
		Bot:         bot,
		EvaluatedAt: evaluatedAt,
	}

	if verdict := checkHardBlock(snap, bot); verdict.Blocked {
		report.Score = 0
		report.Status = StatusBlocked
		report.HardBlocked = true
		report.HardBlockRule = verdict.Rule
		report.Factors = []FactorReport{{
			Name:   FactorHardBlock,
			Status: FactorFailure,
			Delta:  hardBlockDelta,
			Reason: verdict.Reason,
		}}
		report.Flags = append(deriveFlags(snap, bot), FlagHardBlocked)
		return report
	}

	report.Factors = evaluateFactors(ctx, snap, base, bot, e.clusters)
	report.Score = report.TotalDelta()
	report.Status = classify(report.Score, snap.DeviceType, e.thresholds)
	report.Flags = deriveFlags(snap, bot)
	return report
}

// deriveFlags tags the report with every risk condition present in the
// snapshot, in a fixed order.
func deriveFlags(snap *SignalSnapshot, bot BotReport) []Flag {
	var flags []Flag
	if snap.IsNewDevice() {
		flags = append(flags, FlagNewDevice)
	}
	if snap.Jailbroken {
		flags = append(flags, FlagJailbroken)
	}
	if snap.VPNEnabled {
		flags = append(flags, FlagVPN)
	}
	if snap.UptimeMinutes < hardBlockUptimeMinutes {
		flags = append(flags, FlagLowUptime)
	}
	if snap.StoredTimezone != "" && snap.Timezone != snap.StoredTimezone {
		flags = append(flags, FlagTimezoneMismatch)
	}
	if snap.StoredIP != "" && snap.IPAddress != snap.StoredIP {
		flags = append(flags, FlagIPMismatch)
	}
	if snap.StoredEmail != "" && snap.Email != snap.StoredEmail {
		flags = append(flags, FlagEmailMismatch)
	}
	if snap.Motion == MotionUnknown {
		flags = append(flags, FlagNoMotion)
	}
	if bot.Verdict.IsBot() {
		flags = append(flags, FlagBot)
	} else if bot.Verdict.IsSuspicious() {
		flags = append(flags, FlagSuspicious)
	}
	if snap.Attestation.Supported && !snap.Attestation.Verified {
		flags = append(flags, FlagAttestFailed)
	}
	return flags
}
