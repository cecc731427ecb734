package detection

import (
	"context"
	"testing"
	"time"

	"github.com/pathwatch/pathwatch/internal/geo"
	"github.com/pathwatch/pathwatch/internal/models"
)

func profileWithCluster(lat, lng float64) *models.BehaviorProfile {
	return &models.BehaviorProfile{
		AverageSpeedKmh: 4,
		CommonLocations: []models.LocationCluster{
			{Center: geo.Point{Lat: lat, Lng: lng}, Count: 30, Frequency: 0.6},
		},
		TypicalHours: map[int]bool{10: true},
		FixCount:     50,
	}
}

func TestLocationNovelty_NearCluster(t *testing.T) {
	d := NewLocationNoveltyDetector()
	// ~110m from the cluster centroid, inside the 200m radius.
	sample := &Sample{
		TouristID: "t1",
		Fix:       fixAt(time.Now(), 43.701, 7.27, 4),
		Profile:   profileWithCluster(43.7, 7.27),
	}

	event, err := d.Check(context.Background(), sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event != nil {
		t.Errorf("expected no event near a common location, got %+v", event)
	}
}

func TestLocationNovelty_NearRecentFix(t *testing.T) {
	d := NewLocationNoveltyDetector()
	// Far from the cluster but ~110m from a recent fix (inside 500m).
	sample := &Sample{
		TouristID: "t1",
		Fix:       fixAt(time.Now(), 43.801, 7.4, 4),
		Profile:   profileWithCluster(43.7, 7.27),
		Recent: []models.LocationFix{
			fixAt(time.Now().Add(-time.Minute), 43.8, 7.4, 4),
		},
	}

	event, err := d.Check(context.Background(), sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event != nil {
		t.Errorf("expected no event near a recent fix, got %+v", event)
	}
}

func TestLocationNovelty_UnfamiliarLocation(t *testing.T) {
	d := NewLocationNoveltyDetector()
	sample := &Sample{
		TouristID: "t1",
		Fix:       fixAt(time.Now(), 44.5, 8.0, 4),
		Profile:   profileWithCluster(43.7, 7.27),
		Recent: []models.LocationFix{
			fixAt(time.Now().Add(-2*time.Minute), 43.7, 7.27, 4),
			fixAt(time.Now().Add(-time.Minute), 43.7, 7.272, 4),
		},
	}

	event, err := d.Check(context.Background(), sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil {
		t.Fatal("expected event but got nil")
	}
	if event.Type != models.AnomalyLocation {
		t.Errorf("Type = %v, want %v", event.Type, models.AnomalyLocation)
	}
	if event.Severity != models.SeverityMedium {
		t.Errorf("Severity = %v, want %v", event.Severity, models.SeverityMedium)
	}
	if event.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", event.Confidence)
	}
}

func TestLocationNovelty_OnlyLastTenRecentCount(t *testing.T) {
	d := NewLocationNoveltyDetector()

	// Eleven recent fixes: the oldest is right where the new fix lands, the
	// ten that follow are far away. Only the last ten are compared, so the
	// fix is still novel.
	base := time.Now().Add(-time.Hour)
	recent := []models.LocationFix{fixAt(base, 44.5, 8.0, 4)}
	for i := 1; i <= 10; i++ {
		recent = append(recent, fixAt(base.Add(time.Duration(i)*time.Minute), 43.7, 7.27, 4))
	}

	sample := &Sample{
		TouristID: "t1",
		Fix:       fixAt(time.Now(), 44.5, 8.0, 4),
		Profile:   profileWithCluster(43.7, 7.27),
		Recent:    recent,
	}

	event, err := d.Check(context.Background(), sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil {
		t.Error("expected event: the matching fix is outside the recent window")
	}
}

func TestLocationNovelty_Configure(t *testing.T) {
	d := NewLocationNoveltyDetector()
	if err := d.Configure([]byte(`{"cluster_radius_meters":300,"recent_radius_meters":600,"recent_window":5}`)); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := d.Configure([]byte(`{"cluster_radius_meters":0,"recent_radius_meters":600,"recent_window":5}`)); err == nil {
		t.Error("expected error for zero cluster radius")
	}
	if err := d.Configure([]byte(`{"cluster_radius_meters":300,"recent_radius_meters":600,"recent_window":0}`)); err == nil {
		t.Error("expected error for zero recent window")
	}
}
