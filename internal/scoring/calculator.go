// Package scoring computes the composite tourist safety score. Every
// evaluation recomputes all six factor sub-scores from scratch; nothing is
// accumulated between fixes, so a score can recover as fast as it degrades.
package scoring

import (
	"github.com/pathwatch/pathwatch/internal/config"
	"github.com/pathwatch/pathwatch/internal/models"
)

// Factor sub-score anchors. Each lands in [0,100] before weighting.
const (
	nightStartHour = 22
	nightEndHour   = 6

	timeNightScore = 30
	timeDayScore   = 90

	geofenceHighRiskScore   = 30
	geofenceMediumRiskScore = 60
	geofenceClearScore      = 90

	crowdDaytimeScore = 80
	crowdEveningScore = 60
	crowdNightScore   = 40

	crowdHighRiskPenalty   = 20
	crowdMediumRiskPenalty = 10

	incidentScoreFloor    = 20
	incidentPenaltyEach   = 8
	routeDeviationDivisor = 10.0
	routeScoreFloor       = 20

	neutralScore = 85
)

// Conditions carry the optional external inputs for one evaluation. Nil
// fields fall back to the neutral default.
type Conditions struct {
	// RouteDeviationMeters is the distance from the planned route, when a
	// planned route is known for the tourist.
	RouteDeviationMeters *float64

	// WeatherScore is the external weather factor in [0,100].
	WeatherScore *float64
}

// Calculator turns a location fix into a safety score using the configured
// factor weights and zone reference data.
type Calculator struct {
	weights        config.FactorWeights
	zones          *ZoneIndex
	incidentRadius float64
}

// NewCalculator creates a calculator. Weights are assumed validated at
// config load.
func NewCalculator(cfg config.ScoringConfig, zones *ZoneIndex) *Calculator {
	return &Calculator{
		weights:        cfg.Weights,
		zones:          zones,
		incidentRadius: cfg.IncidentRadiusMeters,
	}
}

// Compute evaluates the safety score for one accepted fix.
func (c *Calculator) Compute(touristID string, fix models.LocationFix, cond Conditions) models.SafetyScore {
	point := fix.Point()
	zone := c.zones.Locate(point)
	hour := fix.Timestamp.Hour()

	factors := models.SafetyFactors{
		TimeOfDay:       timeOfDayScore(hour),
		Geofence:        geofenceScore(zone),
		CrowdDensity:    crowdScore(hour, zone),
		IncidentHistory: incidentScore(c.zones.NearbyIncidents(point, c.incidentRadius)),
		RouteDeviation:  routeScore(cond.RouteDeviationMeters),
		Weather:         weatherScore(cond.WeatherScore),
	}

	total := factors.TimeOfDay*c.weights.TimeOfDay +
		factors.Geofence*c.weights.Geofence +
		factors.CrowdDensity*c.weights.CrowdDensity +
		factors.IncidentHistory*c.weights.IncidentHistory +
		factors.RouteDeviation*c.weights.RouteDeviation +
		factors.Weather*c.weights.Weather
	total = clamp(total, 0, 100)

	score := models.SafetyScore{
		TouristID: touristID,
		Score:     total,
		Status:    models.StatusForScore(total),
		Factors:   factors,
		Timestamp: fix.Timestamp,
	}
	if zone != nil {
		score.ZoneID = zone.ID
	}
	return score
}

// Zones exposes the zone reference data backing this calculator.
func (c *Calculator) Zones() *ZoneIndex {
	return c.zones
}

func isNight(hour int) bool {
	return hour >= nightStartHour || hour < nightEndHour
}

func timeOfDayScore(hour int) float64 {
	if isNight(hour) {
		return timeNightScore
	}
	return timeDayScore
}

func geofenceScore(zone *models.GeoZone) float64 {
	if zone == nil {
		return geofenceClearScore
	}
	switch zone.RiskLevel {
	case models.RiskHigh:
		return geofenceHighRiskScore
	case models.RiskMedium:
		return geofenceMediumRiskScore
	default:
		return geofenceClearScore
	}
}

// crowdScore is a proxy: streets empty out at night and in risky zones.
// Daytime is 08:00-19:59, evening shoulders 06:00-07:59 and 20:00-21:59.
func crowdScore(hour int, zone *models.GeoZone) float64 {
	var base float64
	switch {
	case hour >= 8 && hour < 20:
		base = crowdDaytimeScore
	case hour >= 6 && hour < 22:
		base = crowdEveningScore
	default:
		base = crowdNightScore
	}
	if zone != nil {
		switch zone.RiskLevel {
		case models.RiskHigh:
			base -= crowdHighRiskPenalty
		case models.RiskMedium:
			base -= crowdMediumRiskPenalty
		}
	}
	return clamp(base, 0, 100)
}

func incidentScore(nearby int) float64 {
	score := 100.0 - float64(nearby)*incidentPenaltyEach
	if score < incidentScoreFloor {
		return incidentScoreFloor
	}
	return score
}

func routeScore(deviationMeters *float64) float64 {
	if deviationMeters == nil {
		return neutralScore
	}
	score := 100.0 - *deviationMeters/routeDeviationDivisor
	return clamp(score, routeScoreFloor, 100)
}

func weatherScore(weather *float64) float64 {
	if weather == nil {
		return neutralScore
	}
	return clamp(*weather, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
