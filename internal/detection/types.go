// Package detection implements the rule-based anomaly detectors that evaluate
// each accepted location fix against a tourist's behavior profile.
//
// Every detector is deterministic: given the same fix, profile, and recent
// history it produces the same result. There is no randomness and no hidden
// state beyond each detector's configuration.
package detection

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/pathwatch/pathwatch/internal/models"
)

// DetectorType identifies a detection rule.
type DetectorType string

const (
	// DetectorTypeSpeed flags implausibly fast or slow movement.
	DetectorTypeSpeed DetectorType = "speed"

	// DetectorTypeLocationNovelty flags fixes far from all known locations.
	DetectorTypeLocationNovelty DetectorType = "location_novelty"

	// DetectorTypeTime flags activity outside the tourist's typical hours.
	DetectorTypeTime DetectorType = "time"

	// DetectorTypeMovementPattern flags erratic or circular movement.
	DetectorTypeMovementPattern DetectorType = "movement_pattern"
)

// Sample is the unit of work handed to each detector: one accepted fix plus
// the context it is evaluated in. Recent holds the fixes that preceded this
// one, oldest first; Profile is never nil when a detector runs.
type Sample struct {
	TouristID string
	Fix       models.LocationFix
	Profile   *models.BehaviorProfile
	Recent    []models.LocationFix
}

// Detector is the interface all detection rules implement.
type Detector interface {
	// Type returns the rule type this detector handles.
	Type() DetectorType

	// Check evaluates the sample against the detection rule.
	// Returns an event if an anomaly is detected, nil otherwise.
	Check(ctx context.Context, sample *Sample) (*models.AnomalyEvent, error)

	// Configure updates the detector configuration.
	Configure(config json.RawMessage) error

	// Enabled returns whether this detector is currently enabled.
	Enabled() bool

	// SetEnabled enables or disables the detector.
	SetEnabled(enabled bool)
}

// SpeedConfig configures the speed anomaly detector. Speeds are km/h.
type SpeedConfig struct {
	// CriticalMultiplier and CriticalFloorKmh gate the critical rule:
	// speed must exceed multiplier x profile average AND the floor.
	CriticalMultiplier float64 `json:"critical_multiplier"`
	CriticalFloorKmh   float64 `json:"critical_floor_kmh"`

	// SlowMultiplier and SlowCeilingKmh gate the distress rule: speed must
	// fall below multiplier x profile average AND the ceiling.
	SlowMultiplier float64 `json:"slow_multiplier"`
	SlowCeilingKmh float64 `json:"slow_ceiling_kmh"`
}

// DefaultSpeedConfig returns the canonical speed rule thresholds.
func DefaultSpeedConfig() SpeedConfig {
	return SpeedConfig{
		CriticalMultiplier: 3,
		CriticalFloorKmh:   50,
		SlowMultiplier:     0.1,
		SlowCeilingKmh:     1,
	}
}

// LocationNoveltyConfig configures the location-novelty detector.
type LocationNoveltyConfig struct {
	// ClusterRadiusMeters is the distance within which a fix counts as
	// "near" a common-location centroid.
	ClusterRadiusMeters float64 `json:"cluster_radius_meters"`

	// RecentRadiusMeters is the distance within which a fix counts as
	// "near" a recent fix.
	RecentRadiusMeters float64 `json:"recent_radius_meters"`

	// RecentWindow is how many trailing history fixes are compared.
	RecentWindow int `json:"recent_window"`
}

// DefaultLocationNoveltyConfig returns the canonical novelty thresholds.
func DefaultLocationNoveltyConfig() LocationNoveltyConfig {
	return LocationNoveltyConfig{
		ClusterRadiusMeters: 200,
		RecentRadiusMeters:  500,
		RecentWindow:        10,
	}
}

// TimeConfig configures the time anomaly detector.
type TimeConfig struct {
	// NightStartHour and NightEndHour bound the high-severity night band
	// [NightStartHour, NightEndHour); NightLateHour is also in the band.
	NightStartHour int `json:"night_start_hour"`
	NightEndHour   int `json:"night_end_hour"`
	NightLateHour  int `json:"night_late_hour"`
}

// DefaultTimeConfig returns the canonical time-band thresholds.
func DefaultTimeConfig() TimeConfig {
	return TimeConfig{
		NightStartHour: 0,
		NightEndHour:   6,
		NightLateHour:  23,
	}
}

// MovementPatternConfig configures the movement-pattern detector.
type MovementPatternConfig struct {
	// Window is how many trailing fixes (including the current one) the
	// pattern analysis runs over.
	Window int `json:"window"`

	// DirectionChangeDegrees is the bearing delta that counts as a
	// direction change.
	DirectionChangeDegrees float64 `json:"direction_change_degrees"`

	// MaxDirectionChanges is the change count above which movement is
	// considered erratic.
	MaxDirectionChanges int `json:"max_direction_changes"`

	// CircularCVThreshold is the coefficient-of-variation ceiling below
	// which movement is considered circular/repetitive.
	CircularCVThreshold float64 `json:"circular_cv_threshold"`
}

// DefaultMovementPatternConfig returns the canonical pattern thresholds.
func DefaultMovementPatternConfig() MovementPatternConfig {
	return MovementPatternConfig{
		Window:                 10,
		DirectionChangeDegrees: 45,
		MaxDirectionChanges:    5,
		CircularCVThreshold:    0.3,
	}
}
