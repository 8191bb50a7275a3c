package trust

import "strings"

// hardBlockUptimeMinutes is the low-uptime threshold for hard-block
// rules. Devices rebooted less than 5 minutes ago are a common emulator
// and farm signature.
const hardBlockUptimeMinutes = 5

// hardBlockDelta is the synthetic factor delta recorded when a rule fires.
const hardBlockDelta = -100

// blockSignals are the derived booleans the hard-block rules combine.
type blockSignals struct {
	isBot            bool
	isSuspicious     bool
	jailbroken       bool
	newDevice        bool
	vpn              bool
	lowUptime        bool
	timezoneMismatch bool
	ipMismatch       bool
	emailMismatch    bool
	noMotion         bool
	attestSupported  bool
	attestMediumRisk bool
	attestLowScore   bool
}

// deriveBlockSignals computes the rule inputs from a snapshot and the
// bot verdict. Identity mismatches compare against stored values only
// when a stored value exists.
func deriveBlockSignals(snap *SignalSnapshot, bot BotReport) blockSignals {
	return blockSignals{
		isBot:            bot.Verdict.IsBot(),
		isSuspicious:     bot.Verdict.IsSuspicious(),
		jailbroken:       snap.Jailbroken,
		newDevice:        snap.IsNewDevice(),
		vpn:              snap.VPNEnabled,
		lowUptime:        snap.UptimeMinutes < hardBlockUptimeMinutes,
		timezoneMismatch: snap.StoredTimezone != "" && snap.Timezone != snap.StoredTimezone,
		ipMismatch:       snap.StoredIP != "" && snap.IPAddress != snap.StoredIP,
		emailMismatch:    snap.StoredEmail != "" && snap.Email != snap.StoredEmail,
		noMotion:         snap.Motion == MotionUnknown,
		attestSupported:  snap.Attestation.Supported,
		attestMediumRisk: snap.Attestation.Supported && snap.Attestation.Tier == AttestMedium,
		attestLowScore:   snap.Attestation.Supported && snap.Attestation.Score > 0 && snap.Attestation.Score < 50,
	}
}

// blockPredicate is one conjunct of a hard-block rule.
type blockPredicate struct {
	label string
	holds func(s blockSignals) bool
}

var (
	predBot          = blockPredicate{"Bot detected", func(s blockSignals) bool { return s.isBot }}
	predSuspicious   = blockPredicate{"Suspicious activity", func(s blockSignals) bool { return s.isSuspicious }}
	predJailbroken   = blockPredicate{"Jailbroken device", func(s blockSignals) bool { return s.jailbroken }}
	predNewDevice    = blockPredicate{"New device", func(s blockSignals) bool { return s.newDevice }}
	predVPN          = blockPredicate{"VPN active", func(s blockSignals) bool { return s.vpn }}
	predLowUptime    = blockPredicate{"Low device uptime", func(s blockSignals) bool { return s.lowUptime }}
	predTZMismatch   = blockPredicate{"Timezone mismatch", func(s blockSignals) bool { return s.timezoneMismatch }}
	predIPMismatch   = blockPredicate{"IP mismatch", func(s blockSignals) bool { return s.ipMismatch }}
	predEmail        = blockPredicate{"Email mismatch", func(s blockSignals) bool { return s.emailMismatch }}
	predNoMotion     = blockPredicate{"No motion data", func(s blockSignals) bool { return s.noMotion }}
	predAttest       = blockPredicate{"Attestation supported", func(s blockSignals) bool { return s.attestSupported }}
	predAttestMedium = blockPredicate{"Attestation medium risk", func(s blockSignals) bool { return s.attestMediumRisk }}
	predAttestLow    = blockPredicate{"Attestation low score", func(s blockSignals) bool { return s.attestLowScore }}
)

// blockRule is an AND-conjunction of predicates. Any rule firing blocks
// the evaluation; rules are checked in order and the first match is
// recorded for logging and metrics, but the outcome is a pure OR.
type blockRule struct {
	name  string
	preds []blockPredicate
}

func (r blockRule) fires(s blockSignals) bool {
	for _, p := range r.preds {
		if !p.holds(s) {
			return false
		}
	}
	return true
}

func (r blockRule) reason() string {
	labels := make([]string, len(r.preds))
	for i, p := range r.preds {
		labels[i] = p.label
	}
	return strings.Join(labels, " + ")
}

// hardBlockRules is the fixed, hand-authored rule set. Not a rules
// engine: the combinations below are curated high-confidence compromise
// signatures and are evaluated as a pre-filter before any scoring.
var hardBlockRules = []blockRule{
	{"bot_jailbroken_new_device", []blockPredicate{predBot, predJailbroken, predNewDevice}},
	{"bot_vpn_new_device_low_uptime", []blockPredicate{predBot, predVPN, predNewDevice, predLowUptime}},
	{"jailbroken_new_device", []blockPredicate{predJailbroken, predNewDevice}},
	{"bot_identity_mismatch", []blockPredicate{predBot, predNewDevice, predIPMismatch, predTZMismatch, predEmail}},
	{"bot_no_motion_jailbroken", []blockPredicate{predBot, predNoMotion, predJailbroken}},
	{"bot_no_motion_vpn_new_device", []blockPredicate{predBot, predNoMotion, predVPN, predNewDevice}},
	{"suspicious_jailbroken_new_device", []blockPredicate{predSuspicious, predJailbroken, predNewDevice}},
	{"attest_bot_medium_risk_jailbroken", []blockPredicate{predAttest, predBot, predAttestMedium, predJailbroken}},
	{"attest_bot_medium_risk_vpn_new_device", []blockPredicate{predAttest, predBot, predAttestMedium, predVPN, predNewDevice}},
	{"attest_low_score_jailbroken_new_device", []blockPredicate{predAttest, predAttestLow, predJailbroken, predNewDevice}},
	{"attest_medium_risk_jailbroken_vpn", []blockPredicate{predAttest, predAttestMedium, predJailbroken, predVPN}},
	{"attest_bot_low_score_vpn", []blockPredicate{predAttest, predBot, predAttestLow, predVPN}},
}

// hardBlockVerdict is the result of the pre-filter pass.
type hardBlockVerdict struct {
	Blocked bool
	Rule    string
	Reason  string
}

// checkHardBlock runs the full rule set against the derived signals and
// returns the first matching rule. Runs to completion before any
// per-factor scoring.
func checkHardBlock(snap *SignalSnapshot, bot BotReport) hardBlockVerdict {
	s := deriveBlockSignals(snap, bot)
	for _, rule := range hardBlockRules {
		if rule.fires(s) {
			return hardBlockVerdict{Blocked: true, Rule: rule.name, Reason: rule.reason()}
		}
	}
	return hardBlockVerdict{}
}
