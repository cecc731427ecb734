package telemetry

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/pathwatch/pathwatch/internal/models"
	"github.com/pathwatch/pathwatch/internal/profile"
)

func newTestIngestor(historySize, rebuildEvery int) *Ingestor {
	return NewIngestor(historySize, rebuildEvery, profile.NewBuilder(profile.DefaultConfig()))
}

func fixAt(ts time.Time, lat, lng float64) models.LocationFix {
	return models.LocationFix{Timestamp: ts, Lat: lat, Lng: lng}
}

func TestFixHistory_EvictsOldest(t *testing.T) {
	h := NewFixHistory(3)
	base := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		h.Append(fixAt(base.Add(time.Duration(i)*time.Minute), 43.70, 7.27))
	}

	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}
	snap := h.Snapshot()
	if !snap[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("oldest kept fix = %v, want minute 2", snap[0].Timestamp)
	}
	last, ok := h.Last()
	if !ok || !last.Timestamp.Equal(base.Add(4*time.Minute)) {
		t.Errorf("last = %v, want minute 4", last.Timestamp)
	}
}

func TestFixHistory_Recent(t *testing.T) {
	h := NewFixHistory(10)
	base := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		h.Append(fixAt(base.Add(time.Duration(i)*time.Minute), 43.70, 7.27))
	}

	recent := h.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("recent len = %d, want 3", len(recent))
	}
	if !recent[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("recent window should be oldest-first, got %v first", recent[0].Timestamp)
	}

	if got := h.Recent(100); len(got) != 5 {
		t.Errorf("recent beyond window len = %d, want 5", len(got))
	}
}

func TestIngest_RejectsInvalidCoordinates(t *testing.T) {
	in := newTestIngestor(100, 50)
	ts := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	_, _, err := in.Ingest(fixAt(ts, 91.0, 7.27))
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("err = %v, want ErrInvalidCoordinates", err)
	}
	if in.History().Len() != 0 {
		t.Error("rejected fix must not enter the history")
	}
}

func TestIngest_RejectsStaleTimestamp(t *testing.T) {
	in := newTestIngestor(100, 50)
	ts := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	if _, _, err := in.Ingest(fixAt(ts, 43.70, 7.27)); err != nil {
		t.Fatalf("first fix rejected: %v", err)
	}
	_, _, err := in.Ingest(fixAt(ts.Add(-time.Minute), 43.70, 7.27))
	if !errors.Is(err, ErrStaleFix) {
		t.Fatalf("err = %v, want ErrStaleFix", err)
	}

	// Equal timestamps are allowed.
	if _, _, err := in.Ingest(fixAt(ts, 43.70, 7.27)); err != nil {
		t.Errorf("equal-timestamp fix rejected: %v", err)
	}
}

func TestIngest_DerivesMissingSpeed(t *testing.T) {
	in := newTestIngestor(100, 50)
	ts := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	first, _, err := in.Ingest(fixAt(ts, 43.7000, 7.2700))
	if err != nil {
		t.Fatal(err)
	}
	if first.Speed() != 0 {
		t.Errorf("first fix speed = %v, want 0 with no predecessor", first.Speed())
	}

	// Roughly 1.11 km north in 10 minutes, about 6.7 km/h.
	second, _, err := in.Ingest(fixAt(ts.Add(10*time.Minute), 43.7100, 7.2700))
	if err != nil {
		t.Fatal(err)
	}
	if s := second.Speed(); math.Abs(s-6.67) > 0.2 {
		t.Errorf("derived speed = %v km/h, want about 6.67", s)
	}

	// Same timestamp: no elapsed time, derive zero rather than dividing.
	third, _, err := in.Ingest(fixAt(ts.Add(10*time.Minute), 43.7200, 7.2700))
	if err != nil {
		t.Fatal(err)
	}
	if third.Speed() != 0 {
		t.Errorf("zero-elapsed speed = %v, want 0", third.Speed())
	}
}

func TestIngest_KeepsReportedSpeed(t *testing.T) {
	in := newTestIngestor(100, 50)
	ts := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	speed := 12.5

	fix := fixAt(ts, 43.70, 7.27)
	fix.SpeedKmh = &speed
	accepted, _, err := in.Ingest(fix)
	if err != nil {
		t.Fatal(err)
	}
	if accepted.Speed() != 12.5 {
		t.Errorf("speed = %v, want reported 12.5 kept", accepted.Speed())
	}
}

func TestIngest_RebuildCadence(t *testing.T) {
	in := newTestIngestor(100, 10)
	base := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 9; i++ {
		_, rebuilt, err := in.Ingest(fixAt(base.Add(time.Duration(i)*time.Minute), 43.70, 7.27))
		if err != nil {
			t.Fatal(err)
		}
		if rebuilt {
			t.Fatalf("rebuild fired at fix %d, want only every 10th", i+1)
		}
	}
	if in.Profile() != nil {
		t.Fatal("profile should be nil before the first rebuild")
	}

	_, rebuilt, err := in.Ingest(fixAt(base.Add(9*time.Minute), 43.70, 7.27))
	if err != nil {
		t.Fatal(err)
	}
	if !rebuilt {
		t.Fatal("10th accepted fix should trigger a rebuild")
	}
	if in.Profile() == nil {
		t.Fatal("profile should exist after the rebuild")
	}
	if in.Profile().FixCount != 10 {
		t.Errorf("profile fix count = %d, want 10", in.Profile().FixCount)
	}
}

func TestIngest_RejectedFixesDoNotAdvanceCadence(t *testing.T) {
	in := newTestIngestor(100, 10)
	base := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 9; i++ {
		if _, _, err := in.Ingest(fixAt(base.Add(time.Duration(i)*time.Minute), 43.70, 7.27)); err != nil {
			t.Fatal(err)
		}
	}
	// Stale fix: rejected, counter untouched.
	if _, _, err := in.Ingest(fixAt(base.Add(-time.Hour), 43.70, 7.27)); !errors.Is(err, ErrStaleFix) {
		t.Fatalf("err = %v, want ErrStaleFix", err)
	}

	_, rebuilt, err := in.Ingest(fixAt(base.Add(10*time.Minute), 43.70, 7.27))
	if err != nil {
		t.Fatal(err)
	}
	if !rebuilt {
		t.Error("10th accepted fix should still trigger the rebuild")
	}
}

func TestIngestor_Restore(t *testing.T) {
	in := newTestIngestor(100, 10)
	base := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	saved := make([]models.LocationFix, 0, 12)
	for i := 0; i < 12; i++ {
		saved = append(saved, fixAt(base.Add(time.Duration(i)*time.Minute), 43.70, 7.27))
	}
	prof := &models.BehaviorProfile{AverageSpeedKmh: 3.2, FixCount: 12}

	in.Restore(saved, prof)
	if in.History().Len() != 12 {
		t.Errorf("restored history len = %d, want 12", in.History().Len())
	}
	if in.Profile() != prof {
		t.Error("restored profile not installed")
	}

	// The restored history still enforces timestamp ordering.
	if _, _, err := in.Ingest(fixAt(base, 43.70, 7.27)); !errors.Is(err, ErrStaleFix) {
		t.Errorf("err = %v, want ErrStaleFix against restored history", err)
	}
}
