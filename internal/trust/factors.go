package trust

import (
	"context"
	"fmt"
	"strings"
)

// Factor point weights. Positive weights reward expected state, negative
// weights penalize deviation. The table is fixed; thresholds that callers
// may tune live in config, not here.
const (
	deviceMatchPoints = 25
	emailMatchPoints  = 10

	jailbreakCleanPoints  = 10
	jailbreakBrokenPoints = -10

	vpnMatchPoints    = 5
	vpnMismatchPoints = -8

	uptimeHealthyMinutes = 120
	uptimeHealthyPoints  = 5
	uptimeFreshMinutes   = 10
	uptimeFreshPoints    = -5

	attestLowVerifiedPoints   = 10
	attestLowUnverifiedPoints = -10
	attestMediumPoints        = -15
	attestHighPoints          = -20
	attestUnknownPoints       = -15
	attestOtherPoints         = -10
	attestLowScoreFloor       = -15

	networkMatchPoints    = 5
	networkMismatchPoints = -3

	timezoneMatchPoints    = 10
	timezoneMismatchPoints = -15

	ipKnownRangePoints   = 5
	ipUnknownRangePoints = -10

	loginHourInsidePoints  = 5
	loginHourOutsidePoints = -5
)

// evaluateFactors runs the full per-factor pass in fixed order and
// returns one report per factor. base may be nil (first login): every
// baseline-dependent factor then takes its neutral branch.
func evaluateFactors(ctx context.Context, snap *SignalSnapshot, base *AttributeBaseline, bot BotReport, clusters ClusterIndex) []FactorReport {
	factors := make([]FactorReport, 0, 12)
	factors = append(factors,
		deviceFactor(snap),
		emailFactor(snap),
		jailbreakFactor(snap),
		vpnFactor(snap, base),
		uptimeFactor(snap),
		botFactor(bot),
		attestFactor(snap.Attestation),
		locationFactor(ctx, snap, clusters),
		networkFactor(snap, base),
		timezoneFactor(snap, base),
		ipFactor(snap, base),
		loginHourFactor(snap, base),
	)
	return factors
}

func deviceFactor(snap *SignalSnapshot) FactorReport {
	if !snap.IsNewDevice() {
		return FactorReport{FactorDevice, FactorSuccess, deviceMatchPoints, "device matches stored signature"}
	}
	return FactorReport{FactorDevice, FactorNeutral, 0, "new or changed device"}
}

func emailFactor(snap *SignalSnapshot) FactorReport {
	if snap.StoredEmail == "" || snap.Email == snap.StoredEmail {
		return FactorReport{FactorEmail, FactorSuccess, emailMatchPoints, "email matches account"}
	}
	return FactorReport{FactorEmail, FactorNeutral, 0, "email differs from account"}
}

func jailbreakFactor(snap *SignalSnapshot) FactorReport {
	if snap.Jailbroken {
		return FactorReport{FactorJailbreak, FactorFailure, jailbreakBrokenPoints, "device is jailbroken or rooted"}
	}
	return FactorReport{FactorJailbreak, FactorSuccess, jailbreakCleanPoints, "device integrity intact"}
}

// vpnFactor rewards matching the user's normal VPN posture. Without a
// baseline there is no expectation to match, so an active VPN costs
// nothing and an absent one still earns the small reward.
func vpnFactor(snap *SignalSnapshot, base *AttributeBaseline) FactorReport {
	if base == nil {
		if snap.VPNEnabled {
			return FactorReport{FactorVPN, FactorNeutral, 0, "vpn active, no baseline"}
		}
		return FactorReport{FactorVPN, FactorSuccess, vpnMatchPoints, "no vpn, no baseline"}
	}
	if snap.VPNEnabled == base.VPNEnabled {
		return FactorReport{FactorVPN, FactorSuccess, vpnMatchPoints, "vpn state matches baseline"}
	}
	if snap.VPNEnabled {
		return FactorReport{FactorVPN, FactorFailure, vpnMismatchPoints, "vpn active, normally off"}
	}
	return FactorReport{FactorVPN, FactorFailure, vpnMismatchPoints, "vpn off, normally on"}
}

func uptimeFactor(snap *SignalSnapshot) FactorReport {
	switch {
	case snap.UptimeMinutes > uptimeHealthyMinutes:
		return FactorReport{FactorUptime, FactorSuccess, uptimeHealthyPoints,
			fmt.Sprintf("device up %d minutes", snap.UptimeMinutes)}
	case snap.IsNewDevice() && snap.UptimeMinutes < uptimeFreshMinutes:
		return FactorReport{FactorUptime, FactorWarning, uptimeFreshPoints, "new device rebooted recently"}
	default:
		return FactorReport{FactorUptime, FactorNeutral, 0, "uptime unremarkable"}
	}
}

func botFactor(bot BotReport) FactorReport {
	status := FactorSuccess
	switch bot.Verdict {
	case VerdictBot:
		status = FactorFailure
	case VerdictSuspicious:
		status = FactorWarning
	case VerdictUnknown:
		status = FactorNeutral
	}
	return FactorReport{FactorBot, status, bot.Score(), bot.Reason}
}

// attestFactor maps the attestation tier to points. A supported verdict
// with a raw score in (0,50) is floored at -15 so a low raw score can
// never grade out milder than the medium tier.
func attestFactor(att AttestationVerdict) FactorReport {
	if !att.Supported {
		return FactorReport{FactorAttest, FactorNeutral, 0, "attestation not supported"}
	}

	var (
		delta  int
		status FactorStatus
		reason string
	)
	switch att.Tier {
	case AttestLow:
		if att.Verified {
			delta, status, reason = attestLowVerifiedPoints, FactorSuccess, "attestation verified, low risk"
		} else {
			delta, status, reason = attestLowUnverifiedPoints, FactorFailure, "low risk tier but unverified"
		}
	case AttestMedium:
		delta, status, reason = attestMediumPoints, FactorFailure, "attestation medium risk"
	case AttestHigh:
		delta, status, reason = attestHighPoints, FactorFailure, "attestation high risk"
	case AttestUnknown:
		delta, status, reason = attestUnknownPoints, FactorFailure, "attestation risk unknown"
	default:
		delta, status, reason = attestOtherPoints, FactorFailure, "unrecognized attestation tier"
	}

	if att.Score > 0 && att.Score < 50 && delta > attestLowScoreFloor {
		delta = attestLowScoreFloor
		status = FactorFailure
		reason = fmt.Sprintf("attestation score %d below confidence floor", att.Score)
	}
	return FactorReport{FactorAttest, status, delta, reason}
}

func networkFactor(snap *SignalSnapshot, base *AttributeBaseline) FactorReport {
	if base == nil || base.Network == "" || base.Network == NetworkUnknown {
		return FactorReport{FactorNetwork, FactorNeutral, 0, "no network baseline"}
	}
	if snap.Network == base.Network {
		return FactorReport{FactorNetwork, FactorSuccess, networkMatchPoints, "network type matches baseline"}
	}
	return FactorReport{FactorNetwork, FactorWarning, networkMismatchPoints,
		fmt.Sprintf("network %s, normally %s", snap.Network, base.Network)}
}

func timezoneFactor(snap *SignalSnapshot, base *AttributeBaseline) FactorReport {
	if base == nil || base.Timezone == "" {
		return FactorReport{FactorTimezone, FactorNeutral, 0, "no timezone baseline"}
	}
	if snap.Timezone == base.Timezone {
		return FactorReport{FactorTimezone, FactorSuccess, timezoneMatchPoints, "timezone matches baseline"}
	}
	return FactorReport{FactorTimezone, FactorFailure, timezoneMismatchPoints,
		fmt.Sprintf("timezone %s, normally %s", snap.Timezone, base.Timezone)}
}

// ipFactor checks the observed address against the learned /24 prefixes.
func ipFactor(snap *SignalSnapshot, base *AttributeBaseline) FactorReport {
	if base == nil || len(base.KnownIPRanges) == 0 {
		return FactorReport{FactorIP, FactorNeutral, 0, "no known ip ranges"}
	}
	for _, prefix := range base.KnownIPRanges {
		if strings.HasPrefix(snap.IPAddress, prefix) {
			return FactorReport{FactorIP, FactorSuccess, ipKnownRangePoints, "ip within a known range"}
		}
	}
	return FactorReport{FactorIP, FactorFailure, ipUnknownRangePoints, "ip outside all known ranges"}
}

// loginHourFactor checks the login hour against the user's typical
// window. The window may wrap midnight (start > end).
func loginHourFactor(snap *SignalSnapshot, base *AttributeBaseline) FactorReport {
	if base == nil || (base.LoginHourStart == 0 && base.LoginHourEnd == 0) {
		return FactorReport{FactorLoginHour, FactorNeutral, 0, "no login-hour baseline"}
	}
	hour := snap.ObservedAt.Hour()
	inside := false
	if base.LoginHourStart <= base.LoginHourEnd {
		inside = hour >= base.LoginHourStart && hour <= base.LoginHourEnd
	} else {
		inside = hour >= base.LoginHourStart || hour <= base.LoginHourEnd
	}
	if inside {
		return FactorReport{FactorLoginHour, FactorSuccess, loginHourInsidePoints, "login within usual hours"}
	}
	return FactorReport{FactorLoginHour, FactorWarning, loginHourOutsidePoints,
		fmt.Sprintf("login at hour %d outside usual window", hour)}
}
