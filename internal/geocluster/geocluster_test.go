package geocluster

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestHaversineKnownDistances(t *testing.T) {
	// Berlin -> Potsdam is roughly 26 km.
	d := HaversineM(52.5200, 13.4050, 52.3906, 13.0645)
	if d < 25_000 || d > 30_000 {
		t.Errorf("Berlin-Potsdam distance = %.0fm, want ~26-28km", d)
	}

	if d := HaversineM(52.52, 13.405, 52.52, 13.405); d != 0 {
		t.Errorf("identical points distance = %v, want 0", d)
	}

	// ~111m per 0.001 degrees of latitude.
	d = HaversineM(52.5200, 13.4050, 52.5210, 13.4050)
	if math.Abs(d-111) > 5 {
		t.Errorf("0.001 degree latitude distance = %.1fm, want ~111m", d)
	}
}

func testClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(25 * time.Minute)
		return current
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(NewMemoryStore())
	svc.now = testClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return svc
}

func TestRecordVisitSeedsCandidate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.RecordVisit(ctx, "user-1", 52.52, 13.405)
	if err != nil {
		t.Fatalf("RecordVisit: %v", err)
	}
	if c.Trusted {
		t.Error("first visit should not produce a trusted cluster")
	}
	if c.VisitCount != 1 {
		t.Errorf("visitCount = %d, want 1", c.VisitCount)
	}
	if c.RadiusM != DefaultRadiusM {
		t.Errorf("radius = %v, want %v", c.RadiusM, DefaultRadiusM)
	}
}

func TestRecordVisitPromotesAfterAccretion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Visits 25 minutes apart at the same spot: dwell accrues 25min per
	// return, so the third visit crosses both promotion bars.
	var last *Cluster
	for i := 0; i < 3; i++ {
		c, err := svc.RecordVisit(ctx, "user-1", 52.52, 13.405)
		if err != nil {
			t.Fatalf("RecordVisit %d: %v", i, err)
		}
		last = c
	}

	if last.VisitCount != 3 {
		t.Errorf("visitCount = %d, want 3", last.VisitCount)
	}
	if last.DwellMinutes < 40 {
		t.Errorf("dwell = %v, want >= 40", last.DwellMinutes)
	}
	if !last.Trusted {
		t.Error("cluster should be trusted after 3 visits and 40+ minutes dwell")
	}

	// Still one cluster total; the visits all attached.
	clusters, err := svc.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(clusters) != 1 {
		t.Errorf("got %d clusters, want 1", len(clusters))
	}
}

func TestRecordVisitLongGapAccruesNoDwell(t *testing.T) {
	svc := NewService(NewMemoryStore())
	current := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	if _, err := svc.RecordVisit(context.Background(), "user-1", 52.52, 13.405); err != nil {
		t.Fatal(err)
	}
	current = current.Add(8 * time.Hour)
	c, err := svc.RecordVisit(context.Background(), "user-1", 52.52, 13.405)
	if err != nil {
		t.Fatal(err)
	}
	if c.DwellMinutes != 0 {
		t.Errorf("dwell = %v after an 8h gap, want 0", c.DwellMinutes)
	}
	if c.VisitCount != 2 {
		t.Errorf("visitCount = %d, want 2", c.VisitCount)
	}
}

func TestRecordVisitFarAwaySeedsNewCluster(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RecordVisit(ctx, "user-1", 52.52, 13.405); err != nil {
		t.Fatal(err)
	}
	// Hamburg, well outside the Berlin cluster's radius.
	if _, err := svc.RecordVisit(ctx, "user-1", 53.55, 9.993); err != nil {
		t.Fatal(err)
	}

	clusters, err := svc.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(clusters) != 2 {
		t.Errorf("got %d clusters, want 2", len(clusters))
	}
}

func TestNearestIgnoresCandidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// One candidate cluster only.
	if _, err := svc.RecordVisit(ctx, "user-1", 52.52, 13.405); err != nil {
		t.Fatal(err)
	}

	_, _, found, err := svc.Nearest(ctx, "user-1", 52.52, 13.405)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if found {
		t.Error("candidate clusters must not count as trusted history")
	}
}

func TestNearestScopedPerUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	store := svc.store
	_ = store.Create(ctx, &Cluster{
		ID: "cluster_other", UserID: "user-2",
		Lat: 52.52, Lon: 13.405, RadiusM: DefaultRadiusM, Trusted: true,
	})

	_, _, found, err := svc.Nearest(ctx, "user-1", 52.52, 13.405)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if found {
		t.Error("another user's clusters must be invisible")
	}
}

func TestNearestWithinAndBanding(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_ = svc.store.Create(ctx, &Cluster{
		ID: "cluster_home", UserID: "user-1",
		Lat: 52.52, Lon: 13.405, RadiusM: DefaultRadiusM, Trusted: true,
	})

	d, within, found, err := svc.Nearest(ctx, "user-1", 52.5201, 13.4051)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if !found || !within {
		t.Errorf("found=%v within=%v, want true/true at ~13m", found, within)
	}
	if d > 50 {
		t.Errorf("distance = %.0fm, want < 50m", d)
	}

	d, within, found, err = svc.Nearest(ctx, "user-1", 52.55, 13.405)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if !found || within {
		t.Errorf("found=%v within=%v, want true/false at ~3.3km", found, within)
	}
	if d < 3_000 || d > 4_000 {
		t.Errorf("distance = %.0fm, want ~3.3km", d)
	}
}

func TestNearestCoverageChecksAllClusters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// A close cluster with the default radius and a farther, admin-
	// promoted one with a much wider radius. The coordinate falls
	// outside the close cluster but inside the wide one, so coverage
	// must not be decided by the nearest centroid alone.
	_ = svc.store.Create(ctx, &Cluster{
		ID: "cluster_near", UserID: "user-1",
		Lat: 52.52, Lon: 13.405, RadiusM: DefaultRadiusM, Trusted: true,
	})
	_ = svc.store.Create(ctx, &Cluster{
		ID: "cluster_wide", UserID: "user-1",
		Lat: 52.55, Lon: 13.405, RadiusM: 6_000, Trusted: true,
	})

	d, within, found, err := svc.Nearest(ctx, "user-1", 52.527, 13.405)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if !found {
		t.Fatal("expected trusted clusters to be found")
	}
	if !within {
		t.Error("coordinate inside the wide cluster's radius must count as within")
	}
	// Distance still reports the nearest centroid (~780m), not the
	// covering one.
	if d < 600 || d > 1_000 {
		t.Errorf("distance = %.0fm, want ~780m to the nearer centroid", d)
	}
}

func TestPromoteAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.RecordVisit(ctx, "user-1", 52.52, 13.405)
	if err != nil {
		t.Fatal(err)
	}

	promoted, err := svc.Promote(ctx, c.ID)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !promoted.Trusted {
		t.Error("expected the cluster to be trusted after promotion")
	}

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, c.ID); err != ErrClusterNotFound {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}
}
