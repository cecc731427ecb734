// Package models defines the domain model shared across the pathwatch engine:
// location fixes, behavior profiles, anomaly events, safety scores, geofence
// zones, and escalation state.
package models

import (
	"time"

	"github.com/pathwatch/pathwatch/internal/geo"
)

// LocationFix is one normalized location report for a tourist.
//
// Speed and Accuracy are optional on input. A missing speed is derived from
// consecutive fixes at ingest (never assumed zero); a missing accuracy stays
// nil and is ignored by detection.
type LocationFix struct {
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`

	// SpeedKmh is the reported or ingest-derived ground speed in km/h.
	SpeedKmh *float64 `json:"speed_kmh,omitempty"`

	// AccuracyMeters is the reported GPS accuracy, if any.
	AccuracyMeters *float64 `json:"accuracy_meters,omitempty"`
}

// Point returns the fix coordinates as a geo.Point.
func (f LocationFix) Point() geo.Point {
	return geo.Point{Lat: f.Lat, Lng: f.Lng}
}

// Speed returns the fix speed in km/h, or 0 if none has been derived yet.
func (f LocationFix) Speed() float64 {
	if f.SpeedKmh == nil {
		return 0
	}
	return *f.SpeedKmh
}

// LocationCluster is one common-location centroid in a behavior profile.
type LocationCluster struct {
	Center    geo.Point `json:"center"`
	Count     int       `json:"count"`
	Frequency float64   `json:"frequency"`
}

// MovementPattern tags a recognizable movement habit in a profile.
type MovementPattern string

const (
	PatternRegularCommuter   MovementPattern = "regular_commuter"
	PatternTouristExplorer   MovementPattern = "tourist_explorer"
	PatternStationaryPeriods MovementPattern = "stationary_periods"
)

// BehaviorProfile is the statistical profile derived from a tourist's fix
// history. Profiles are rebuilt wholesale and replaced atomically; they are
// never mutated in place.
type BehaviorProfile struct {
	// AverageSpeedKmh is the mean speed over the history window.
	AverageSpeedKmh float64 `json:"average_speed_kmh"`

	// CommonLocations are the top clusters by fix count, most frequent first.
	CommonLocations []LocationCluster `json:"common_locations"`

	// TypicalHours are the hours-of-day (0-23) the tourist is normally active.
	TypicalHours map[int]bool `json:"typical_hours"`

	// Patterns are the non-exclusive movement pattern tags.
	Patterns []MovementPattern `json:"patterns"`

	// FixCount is the history size the profile was built from.
	FixCount int `json:"fix_count"`

	// BuiltAt records when the profile was rebuilt.
	BuiltAt time.Time `json:"built_at"`
}

// TypicalHour reports whether the given hour-of-day is typical for this profile.
func (p *BehaviorProfile) TypicalHour(hour int) bool {
	if p == nil || p.TypicalHours == nil {
		return false
	}
	return p.TypicalHours[hour]
}

// HasPattern reports whether the profile carries the given pattern tag.
func (p *BehaviorProfile) HasPattern(pattern MovementPattern) bool {
	if p == nil {
		return false
	}
	for _, tag := range p.Patterns {
		if tag == pattern {
			return true
		}
	}
	return false
}
