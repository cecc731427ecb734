package detection

import (
	"context"
	"testing"
	"time"

	"github.com/pathwatch/pathwatch/internal/models"
)

func daytimeProfile() *models.BehaviorProfile {
	hours := make(map[int]bool)
	for h := 7; h <= 22; h++ {
		hours[h] = true
	}
	return &models.BehaviorProfile{
		AverageSpeedKmh: 4,
		TypicalHours:    hours,
		FixCount:        100,
	}
}

func TestTimeDetector_TypicalHourNoEvent(t *testing.T) {
	d := NewTimeDetector()
	sample := &Sample{
		TouristID: "t1",
		Fix:       fixAt(time.Date(2026, 6, 1, 14, 30, 0, 0, time.UTC), 43.7, 7.27, 4),
		Profile:   daytimeProfile(),
	}

	event, err := d.Check(context.Background(), sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event != nil {
		t.Errorf("expected no event during typical hours, got %+v", event)
	}
}

func TestTimeDetector_NightHourHighSeverity(t *testing.T) {
	// Typical hours 7-22; a fix at 03:00 is atypical and in the night band.
	d := NewTimeDetector()
	sample := &Sample{
		TouristID: "t1",
		Fix:       fixAt(time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC), 43.7, 7.27, 4),
		Profile:   daytimeProfile(),
	}

	event, err := d.Check(context.Background(), sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil {
		t.Fatal("expected event but got nil")
	}
	if event.Type != models.AnomalyTime {
		t.Errorf("Type = %v, want %v", event.Type, models.AnomalyTime)
	}
	if event.Severity != models.SeverityHigh {
		t.Errorf("Severity = %v, want %v", event.Severity, models.SeverityHigh)
	}
	if event.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", event.Confidence)
	}
}

func TestTimeDetector_LateHourHighSeverity(t *testing.T) {
	profile := daytimeProfile()
	delete(profile.TypicalHours, 23)

	d := NewTimeDetector()
	sample := &Sample{
		TouristID: "t1",
		Fix:       fixAt(time.Date(2026, 6, 1, 23, 15, 0, 0, time.UTC), 43.7, 7.27, 4),
		Profile:   profile,
	}

	event, err := d.Check(context.Background(), sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil {
		t.Fatal("expected event but got nil")
	}
	if event.Severity != models.SeverityHigh {
		t.Errorf("Severity = %v, want %v", event.Severity, models.SeverityHigh)
	}
}

func TestTimeDetector_AtypicalDayHourLowSeverity(t *testing.T) {
	profile := daytimeProfile()
	delete(profile.TypicalHours, 12)

	d := NewTimeDetector()
	sample := &Sample{
		TouristID: "t1",
		Fix:       fixAt(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC), 43.7, 7.27, 4),
		Profile:   profile,
	}

	event, err := d.Check(context.Background(), sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil {
		t.Fatal("expected event but got nil")
	}
	if event.Severity != models.SeverityLow {
		t.Errorf("Severity = %v, want %v", event.Severity, models.SeverityLow)
	}
	if event.Confidence != 0.6 {
		t.Errorf("Confidence = %v, want 0.6", event.Confidence)
	}
}

func TestTimeDetector_Configure(t *testing.T) {
	d := NewTimeDetector()
	if err := d.Configure([]byte(`{"night_start_hour":1,"night_end_hour":5,"night_late_hour":22}`)); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := d.Configure([]byte(`{"night_start_hour":6,"night_end_hour":2,"night_late_hour":23}`)); err == nil {
		t.Error("expected error for inverted night band")
	}
	if err := d.Configure([]byte(`{"night_start_hour":0,"night_end_hour":25,"night_late_hour":23}`)); err == nil {
		t.Error("expected error for out-of-range hour")
	}
}
