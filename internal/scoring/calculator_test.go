package scoring

import (
	"testing"
	"time"

	"github.com/pathwatch/pathwatch/internal/config"
	"github.com/pathwatch/pathwatch/internal/geo"
	"github.com/pathwatch/pathwatch/internal/models"
)

func testZones() []models.GeoZone {
	return []models.GeoZone{
		{
			ID:            "old-port",
			Name:          "Old Port",
			Center:        geo.Point{Lat: 43.7000, Lng: 7.2700},
			RadiusMeters:  300,
			RiskLevel:     models.RiskHigh,
			IncidentCount: 6,
		},
		{
			ID:           "market-square",
			Name:         "Market Square",
			Center:       geo.Point{Lat: 43.7200, Lng: 7.2700},
			RadiusMeters: 400,
			RiskLevel:    models.RiskMedium,
		},
	}
}

func newTestCalculator() *Calculator {
	cfg := config.Default().Scoring
	return NewCalculator(cfg, NewZoneIndex(testZones()))
}

func fixAt(lat, lng float64, hour int) models.LocationFix {
	return models.LocationFix{
		Timestamp: time.Date(2026, 8, 14, hour, 0, 0, 0, time.UTC),
		Lat:       lat,
		Lng:       lng,
	}
}

func TestCompute_HighRiskZoneAtNight(t *testing.T) {
	calc := newTestCalculator()

	// Inside the high-risk zone at 02:00 with 6 nearby incidents.
	score := calc.Compute("tourist-1", fixAt(43.7000, 7.2700, 2), Conditions{})

	if score.Score >= 40 {
		t.Errorf("score = %v, want below 40", score.Score)
	}
	if score.Status != models.StatusDanger {
		t.Errorf("status = %v, want danger", score.Status)
	}
	if score.ZoneID != "old-port" {
		t.Errorf("zone = %q, want old-port", score.ZoneID)
	}
	if score.Factors.Geofence != geofenceHighRiskScore {
		t.Errorf("geofence factor = %v, want forced low %v", score.Factors.Geofence, float64(geofenceHighRiskScore))
	}
	if score.Factors.IncidentHistory != 52 {
		t.Errorf("incident factor = %v, want 100-6*8 = 52", score.Factors.IncidentHistory)
	}
}

func TestCompute_SafeDaytimeOutsideZones(t *testing.T) {
	calc := newTestCalculator()

	// Far from every configured zone, midday.
	score := calc.Compute("tourist-1", fixAt(44.5000, 7.9000, 12), Conditions{})

	if score.Score < 80 {
		t.Errorf("score = %v, want safe band", score.Score)
	}
	if score.Status != models.StatusSafe {
		t.Errorf("status = %v, want safe", score.Status)
	}
	if score.ZoneID != "" {
		t.Errorf("zone = %q, want none", score.ZoneID)
	}
	if score.Factors.IncidentHistory != 100 {
		t.Errorf("incident factor = %v, want 100 with no nearby incidents", score.Factors.IncidentHistory)
	}
}

func TestCompute_MediumZoneEvening(t *testing.T) {
	calc := newTestCalculator()

	score := calc.Compute("tourist-1", fixAt(43.7200, 7.2700, 21), Conditions{})

	if score.ZoneID != "market-square" {
		t.Errorf("zone = %q, want market-square", score.ZoneID)
	}
	if score.Factors.Geofence != geofenceMediumRiskScore {
		t.Errorf("geofence factor = %v, want moderate", score.Factors.Geofence)
	}
	if score.Factors.CrowdDensity != crowdEveningScore-crowdMediumRiskPenalty {
		t.Errorf("crowd factor = %v, want evening base minus medium-risk penalty", score.Factors.CrowdDensity)
	}
	if score.Status != models.StatusCaution {
		t.Errorf("status = %v, want caution", score.Status)
	}
}

func TestCompute_ExternalConditions(t *testing.T) {
	calc := newTestCalculator()

	deviation := 500.0
	weather := 20.0
	score := calc.Compute("tourist-1", fixAt(44.5, 7.9, 12), Conditions{
		RouteDeviationMeters: &deviation,
		WeatherScore:         &weather,
	})

	if score.Factors.RouteDeviation != 50 {
		t.Errorf("route factor = %v, want 100-500/10 = 50", score.Factors.RouteDeviation)
	}
	if score.Factors.Weather != 20 {
		t.Errorf("weather factor = %v, want passthrough 20", score.Factors.Weather)
	}

	// Extreme deviation hits the floor rather than going negative.
	extreme := 5000.0
	score = calc.Compute("tourist-1", fixAt(44.5, 7.9, 12), Conditions{RouteDeviationMeters: &extreme})
	if score.Factors.RouteDeviation != routeScoreFloor {
		t.Errorf("route factor = %v, want floor %v", score.Factors.RouteDeviation, float64(routeScoreFloor))
	}
}

func TestCompute_ScoreAlwaysInRange(t *testing.T) {
	calc := newTestCalculator()

	for hour := 0; hour < 24; hour++ {
		for _, point := range []geo.Point{
			{Lat: 43.7000, Lng: 7.2700},
			{Lat: 43.7200, Lng: 7.2700},
			{Lat: 44.5000, Lng: 7.9000},
		} {
			score := calc.Compute("tourist-1", fixAt(point.Lat, point.Lng, hour), Conditions{})
			if score.Score < 0 || score.Score > 100 {
				t.Fatalf("score %v out of range at hour %d point %+v", score.Score, hour, point)
			}
		}
	}
}

func TestCompute_RecoversImmediately(t *testing.T) {
	calc := newTestCalculator()

	inZone := calc.Compute("tourist-1", fixAt(43.7000, 7.2700, 2), Conditions{})
	outside := calc.Compute("tourist-1", fixAt(44.5000, 7.9000, 12), Conditions{})

	// Scores are recomputed wholesale: leaving the danger zone restores the
	// score with no decay from the earlier low evaluation.
	if outside.Score <= inZone.Score {
		t.Errorf("outside score %v should exceed in-zone score %v", outside.Score, inZone.Score)
	}
	if outside.Status != models.StatusSafe {
		t.Errorf("status = %v, want safe after leaving the zone", outside.Status)
	}
}

func TestZoneIndex_NearbyIncidents(t *testing.T) {
	idx := NewZoneIndex(testZones())

	// Standing in the high-risk zone: the medium zone center is ~2.2km away,
	// outside the 1km incident radius.
	if got := idx.NearbyIncidents(geo.Point{Lat: 43.7000, Lng: 7.2700}, 1000); got != 6 {
		t.Errorf("nearby incidents = %d, want 6", got)
	}
	if got := idx.NearbyIncidents(geo.Point{Lat: 44.5, Lng: 7.9}, 1000); got != 0 {
		t.Errorf("nearby incidents = %d, want 0 far away", got)
	}
}

func TestZoneIndex_LocateOrder(t *testing.T) {
	overlapping := []models.GeoZone{
		{ID: "outer", Center: geo.Point{Lat: 43.70, Lng: 7.27}, RadiusMeters: 1000, RiskLevel: models.RiskLow},
		{ID: "inner", Center: geo.Point{Lat: 43.70, Lng: 7.27}, RadiusMeters: 100, RiskLevel: models.RiskHigh},
	}
	idx := NewZoneIndex(overlapping)

	zone := idx.Locate(geo.Point{Lat: 43.70, Lng: 7.27})
	if zone == nil || zone.ID != "outer" {
		t.Errorf("overlap resolves in configuration order, got %+v", zone)
	}
}
