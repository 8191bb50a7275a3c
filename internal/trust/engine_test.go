package trust

import (
	"context"
	"testing"
	"time"
)

func fullBaseline() *AttributeBaseline {
	return &AttributeBaseline{
		VPNEnabled:     false,
		Network:        NetworkWifi,
		KnownIPRanges:  []string{"10.0.0."},
		Timezone:       "Europe/Berlin",
		LoginHourStart: 8,
		LoginHourEnd:   20,
	}
}

// A fully-consistent session on a known device scores well past the
// trusted threshold.
func TestEngineConsistentSessionIsTrusted(t *testing.T) {
	snap := locatedSnapshot()
	snap.Network = NetworkWifi
	snap.ObservedAt = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	engine := NewEngine(WithClusterIndex(&fakeClusterIndex{within: true, found: true}))
	report := engine.Evaluate(context.Background(), snap, fullBaseline())

	if report.HardBlocked {
		t.Fatalf("unexpected hard block: %s", report.HardBlockRule)
	}
	// 25+10+10+5+5+18+0+15+5+10+5+5
	if report.Score != 113 {
		t.Errorf("score = %d, want 113", report.Score)
	}
	if report.Score < 100 {
		t.Errorf("score = %d, want >= 100", report.Score)
	}
	if report.Status != StatusTrusted {
		t.Errorf("status = %s, want trusted", report.Status)
	}
	if report.Bot.Verdict != VerdictHuman {
		t.Errorf("bot verdict = %s, want human", report.Bot.Verdict)
	}
	if len(report.Flags) != 0 {
		t.Errorf("unexpected flags: %v", report.Flags)
	}
}

// A bot signature on a jailbroken new device short-circuits the factor
// pass entirely.
func TestEngineHardBlockShortCircuits(t *testing.T) {
	snap := cleanSnapshot()
	snap.UserInteracting = false
	snap.Motion = MotionUnknown
	snap.Jailbroken = true
	snap.StoredDeviceID = "other"

	engine := NewEngine()
	report := engine.Evaluate(context.Background(), snap, fullBaseline())

	if !report.HardBlocked {
		t.Fatal("expected a hard block")
	}
	if report.Score != 0 {
		t.Errorf("score = %d, want 0", report.Score)
	}
	if report.Status != StatusBlocked {
		t.Errorf("status = %s, want blocked", report.Status)
	}
	if len(report.Factors) != 1 {
		t.Fatalf("got %d factors, want exactly the synthetic one", len(report.Factors))
	}
	if report.Factors[0].Name != FactorHardBlock || report.Factors[0].Delta != -100 {
		t.Errorf("synthetic factor = %+v", report.Factors[0])
	}
	if report.HardBlockRule != "bot_jailbroken_new_device" {
		t.Errorf("rule = %s, want bot_jailbroken_new_device", report.HardBlockRule)
	}

	hasFlag := func(flag Flag) bool {
		for _, f := range report.Flags {
			if f == flag {
				return true
			}
		}
		return false
	}
	for _, flag := range []Flag{FlagHardBlocked, FlagBot, FlagJailbroken, FlagNewDevice, FlagNoMotion} {
		if !hasFlag(flag) {
			t.Errorf("missing flag %s in %v", flag, report.Flags)
		}
	}
}

// The reported score is always the arithmetic sum of the factor deltas
// when no hard block fired.
func TestEngineScoreEqualsFactorSum(t *testing.T) {
	snapshots := []*SignalSnapshot{
		cleanSnapshot(),
		locatedSnapshot(),
		func() *SignalSnapshot {
			s := cleanSnapshot()
			s.VPNEnabled = true
			s.Network = NetworkCellular
			s.Attestation = AttestationVerdict{Supported: true, Tier: AttestMedium, Score: 60}
			return s
		}(),
		func() *SignalSnapshot {
			s := locatedSnapshot()
			s.StoredDeviceID = ""
			s.StoredEmail = ""
			s.StoredTimezone = ""
			s.StoredIP = ""
			s.UptimeMinutes = 60
			return s
		}(),
	}

	engine := NewEngine(WithClusterIndex(&fakeClusterIndex{distanceM: 3000, found: true}))
	for i, snap := range snapshots {
		report := engine.Evaluate(context.Background(), snap, fullBaseline())
		if report.HardBlocked {
			t.Fatalf("snapshot %d unexpectedly hard-blocked by %s", i, report.HardBlockRule)
		}
		if report.Score != report.TotalDelta() {
			t.Errorf("snapshot %d: score %d != factor sum %d", i, report.Score, report.TotalDelta())
		}
	}
}

// A sharp drop between evaluations escalates past the absolute-score
// decision.
func TestDecayOverridesAbsoluteDecision(t *testing.T) {
	decay := TrackDecay(90, 38, nil)
	if decay.Amount != 52 {
		t.Errorf("amount = %d, want 52", decay.Amount)
	}
	if decay.Severity != DecayCritical {
		t.Errorf("severity = %s, want critical", decay.Severity)
	}
	if DecayPolicy(decay.Severity) != ActionTerminate {
		t.Error("critical decay must terminate the session")
	}

	// Even a nominally trusted score forces reverify on a high drop.
	decay = TrackDecay(113, 75, nil)
	if decay.Severity != DecayHigh {
		t.Errorf("severity = %s, want high", decay.Severity)
	}
	if DecayPolicy(decay.Severity) != ActionReverify {
		t.Error("high decay must force re-verification")
	}
}

func TestEngineSecondaryDeviceDowngraded(t *testing.T) {
	snap := locatedSnapshot()
	snap.DeviceType = DeviceSecondary
	snap.Network = NetworkWifi
	snap.ObservedAt = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	engine := NewEngine(WithClusterIndex(&fakeClusterIndex{within: true, found: true}))
	report := engine.Evaluate(context.Background(), snap, fullBaseline())

	if report.Score < DefaultTrustedThreshold {
		t.Fatalf("score = %d, want >= %d for this test to be meaningful", report.Score, DefaultTrustedThreshold)
	}
	if report.Status != StatusReverify {
		t.Errorf("secondary device status = %s, want reverify", report.Status)
	}
}
