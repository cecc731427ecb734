package models

import (
	"time"

	"github.com/pathwatch/pathwatch/internal/geo"
)

// RiskLevel classifies a geofence zone.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// GeoZone is a named circular region with an associated risk level.
// Zone data is reference-only: the engine reads it, never writes it.
type GeoZone struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Center        geo.Point `json:"center"`
	RadiusMeters  float64   `json:"radius_meters"`
	RiskLevel     RiskLevel `json:"risk_level"`
	IncidentCount int       `json:"incident_count"`
}

// Contains reports whether the point falls inside the zone radius.
func (z GeoZone) Contains(p geo.Point) bool {
	return geo.DistanceMeters(z.Center, p) <= z.RadiusMeters
}

// SafetyFactors are the six named sub-scores, each in [0,100].
type SafetyFactors struct {
	TimeOfDay       float64 `json:"time_of_day"`
	Geofence        float64 `json:"geofence"`
	CrowdDensity    float64 `json:"crowd_density"`
	IncidentHistory float64 `json:"incident_history"`
	RouteDeviation  float64 `json:"route_deviation"`
	Weather         float64 `json:"weather"`
}

// SafetyStatus is the coarse classification derived from a safety score.
type SafetyStatus string

const (
	StatusSafe    SafetyStatus = "safe"
	StatusCaution SafetyStatus = "caution"
	StatusDanger  SafetyStatus = "danger"
)

// StatusForScore maps a score to its status band: safe >= 80,
// caution 60-79, danger < 60.
func StatusForScore(score float64) SafetyStatus {
	switch {
	case score >= 80:
		return StatusSafe
	case score >= 60:
		return StatusCaution
	default:
		return StatusDanger
	}
}

// SafetyScore is one recomputed safety evaluation. Scores are recomputed
// wholesale on every evaluation, never accumulated.
type SafetyScore struct {
	TouristID string        `json:"tourist_id"`
	Score     float64       `json:"score"`
	Status    SafetyStatus  `json:"status"`
	Factors   SafetyFactors `json:"factors"`
	ZoneID    string        `json:"zone_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
