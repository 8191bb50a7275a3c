package trust

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/trustgate/internal/testutil"
)

// Integration tests for the PostgreSQL evaluation store.
// Skipped unless POSTGRES_URL is set.

func TestPostgresStore_RecordAndGet(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	report := &Report{
		ID:         "eval_pg1",
		UserID:     "user-1",
		DeviceID:   "device-1",
		DeviceType: DevicePrimary,
		Score:      72,
		Status:     StatusTrusted,
		Factors: []FactorReport{
			{Name: FactorDevice, Status: FactorSuccess, Delta: 25, Reason: "known device"},
			{Name: FactorVPN, Status: FactorWarning, Delta: -8, Reason: "vpn state changed"},
		},
		Flags: []Flag{FlagVPN},
		Bot: BotReport{
			Verdict:    VerdictHuman,
			Confidence: 0.95,
			Reason:     "touch during motion",
			DetectedAt: time.Now().UTC().Truncate(time.Millisecond),
		},
		EvaluatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := store.Record(ctx, report); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get(ctx, "eval_pg1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Score != 72 {
		t.Errorf("Score = %d, want 72", got.Score)
	}
	if got.Status != StatusTrusted {
		t.Errorf("Status = %q, want trusted", got.Status)
	}
	if len(got.Factors) != 2 {
		t.Fatalf("Factors = %d, want 2", len(got.Factors))
	}
	if got.Factors[1].Delta != -8 {
		t.Errorf("vpn factor delta = %d, want -8", got.Factors[1].Delta)
	}
	if len(got.Flags) != 1 || got.Flags[0] != FlagVPN {
		t.Errorf("Flags = %v, want [%s]", got.Flags, FlagVPN)
	}
	if got.Bot.Verdict != VerdictHuman {
		t.Errorf("Bot verdict = %q, want human", got.Bot.Verdict)
	}
	if got.Decay != nil {
		t.Error("expected nil decay for report stored without one")
	}
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	if _, err := store.Get(context.Background(), "eval_missing"); err != ErrEvaluationNotFound {
		t.Errorf("expected ErrEvaluationNotFound, got %v", err)
	}
}

func TestPostgresStore_ListOrdering(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, id := range []string{"eval_old", "eval_mid", "eval_new"} {
		r := &Report{
			ID:          id,
			UserID:      "user-1",
			DeviceID:    "device-1",
			DeviceType:  DevicePrimary,
			Score:       50 + i,
			Status:      StatusReverify,
			Factors:     []FactorReport{},
			EvaluatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record %s failed: %v", id, err)
		}
	}

	reports, err := store.ListByUser(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2 (limit)", len(reports))
	}
	if reports[0].ID != "eval_new" || reports[1].ID != "eval_mid" {
		t.Errorf("order = [%s %s], want newest first", reports[0].ID, reports[1].ID)
	}

	byDevice, err := store.ListByDevice(ctx, "user-1", "device-1", 10)
	if err != nil {
		t.Fatalf("ListByDevice failed: %v", err)
	}
	if len(byDevice) != 3 {
		t.Errorf("got %d device reports, want 3", len(byDevice))
	}

	other, err := store.ListByDevice(ctx, "user-1", "device-other", 10)
	if err != nil {
		t.Fatalf("ListByDevice failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("got %d reports for unknown device, want 0", len(other))
	}
}

func TestPostgresStore_DecayRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	report := &Report{
		ID:         "eval_decay",
		UserID:     "user-2",
		DeviceID:   "device-1",
		DeviceType: DevicePrimary,
		Score:      40,
		Status:     StatusBlocked,
		Factors:    []FactorReport{},
		Decay: &DecaySnapshot{
			Previous:  80,
			Current:   40,
			Amount:    40,
			Severity:  DecayHigh,
			PerFactor: map[string]int{"location": -20, "vpn": -8},
		},
		EvaluatedAt: time.Now().UTC(),
	}
	if err := store.Record(ctx, report); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get(ctx, "eval_decay")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Decay == nil {
		t.Fatal("expected decay snapshot")
	}
	if got.Decay.Severity != DecayHigh {
		t.Errorf("severity = %q, want high", got.Decay.Severity)
	}
	if got.Decay.PerFactor["location"] != -20 {
		t.Errorf("location attribution = %d, want -20", got.Decay.PerFactor["location"])
	}
}
