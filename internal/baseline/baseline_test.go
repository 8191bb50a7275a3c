package baseline

import (
	"context"
	"testing"
	"time"
)

func TestIPRangePrefix(t *testing.T) {
	tests := []struct {
		ip   string
		want string
	}{
		{"10.0.0.77", "10.0.0."},
		{"192.168.1.1", "192.168.1."},
		{"203.0.113.250", "203.0.113."},
		{"not-an-ip", ""},
		{"::1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := IPRangePrefix(tt.ip); got != tt.want {
			t.Errorf("IPRangePrefix(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestObserveFirstLoginSeedsRecord(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	attrs := Observe(nil, "user-1", "device-1", "a@example.com", "Europe/Berlin",
		"10.0.0.5", "17.4", "wifi", false, at)

	if attrs.UserID != "user-1" || attrs.DeviceID != "device-1" {
		t.Errorf("identity = %s/%s", attrs.UserID, attrs.DeviceID)
	}
	if len(attrs.KnownIPRanges) != 1 || attrs.KnownIPRanges[0] != "10.0.0." {
		t.Errorf("ranges = %v, want [10.0.0.]", attrs.KnownIPRanges)
	}
	if attrs.LoginHourStart != 10 || attrs.LoginHourEnd != 10 {
		t.Errorf("window = [%d,%d], want [10,10]", attrs.LoginHourStart, attrs.LoginHourEnd)
	}
	if !attrs.CreatedAt.Equal(at) {
		t.Errorf("createdAt = %v, want %v", attrs.CreatedAt, at)
	}
}

func TestObserveAppendsIPRangesWithoutDuplicates(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	attrs := Observe(nil, "user-1", "device-1", "", "", "10.0.0.5", "", "wifi", false, at)
	attrs = Observe(attrs, "user-1", "device-1", "", "", "10.0.0.200", "", "wifi", false, at.Add(time.Hour))
	attrs = Observe(attrs, "user-1", "device-1", "", "", "192.168.1.4", "", "wifi", false, at.Add(2*time.Hour))

	want := []string{"10.0.0.", "192.168.1."}
	if len(attrs.KnownIPRanges) != len(want) {
		t.Fatalf("ranges = %v, want %v", attrs.KnownIPRanges, want)
	}
	for i, r := range want {
		if attrs.KnownIPRanges[i] != r {
			t.Errorf("range %d = %s, want %s", i, attrs.KnownIPRanges[i], r)
		}
	}
}

func TestObserveWidensLoginWindow(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	attrs := Observe(nil, "user-1", "device-1", "", "", "", "", "wifi", false, at)

	// 11:00 is 2 forward of the window end, 22 forward of the start.
	attrs = Observe(attrs, "user-1", "device-1", "", "", "", "", "wifi", false,
		time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC))
	if attrs.LoginHourStart != 9 || attrs.LoginHourEnd != 11 {
		t.Errorf("window = [%d,%d], want [9,11]", attrs.LoginHourStart, attrs.LoginHourEnd)
	}

	// 8:00 is cheaper to reach by moving the start back.
	attrs = Observe(attrs, "user-1", "device-1", "", "", "", "", "wifi", false,
		time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC))
	if attrs.LoginHourStart != 8 || attrs.LoginHourEnd != 11 {
		t.Errorf("window = [%d,%d], want [8,11]", attrs.LoginHourStart, attrs.LoginHourEnd)
	}

	// A login inside the window leaves it alone.
	attrs = Observe(attrs, "user-1", "device-1", "", "", "", "", "wifi", false,
		time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC))
	if attrs.LoginHourStart != 8 || attrs.LoginHourEnd != 11 {
		t.Errorf("window = [%d,%d], want unchanged [8,11]", attrs.LoginHourStart, attrs.LoginHourEnd)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.GetAttributes(ctx, "user-1", "device-1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	attrs := &Attributes{
		UserID:        "user-1",
		DeviceID:      "device-1",
		Timezone:      "Europe/Berlin",
		KnownIPRanges: []string{"10.0.0."},
	}
	if err := store.PutAttributes(ctx, attrs); err != nil {
		t.Fatalf("PutAttributes: %v", err)
	}

	got, err := store.GetAttributes(ctx, "user-1", "device-1")
	if err != nil {
		t.Fatalf("GetAttributes: %v", err)
	}
	if got.Timezone != "Europe/Berlin" {
		t.Errorf("timezone = %s", got.Timezone)
	}

	// Returned copies are isolated from the store.
	got.KnownIPRanges[0] = "mutated."
	again, _ := store.GetAttributes(ctx, "user-1", "device-1")
	if again.KnownIPRanges[0] != "10.0.0." {
		t.Error("store contents were mutated through a returned copy")
	}

	rec := &ScoreRecord{UserID: "user-1", DeviceID: "device-1", Score: 87}
	if err := store.PutScore(ctx, rec); err != nil {
		t.Fatalf("PutScore: %v", err)
	}
	gotRec, err := store.GetScore(ctx, "user-1", "device-1")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	if gotRec.Score != 87 {
		t.Errorf("score = %d, want 87", gotRec.Score)
	}

	if err := store.DeleteByDevice(ctx, "user-1", "device-1"); err != nil {
		t.Fatalf("DeleteByDevice: %v", err)
	}
	if _, err := store.GetScore(ctx, "user-1", "device-1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
