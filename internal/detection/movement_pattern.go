package detection

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"

	"github.com/pathwatch/pathwatch/internal/geo"
	"github.com/pathwatch/pathwatch/internal/models"
)

// minMeanDistanceMeters guards the coefficient-of-variation division. Below
// this mean distance the window is effectively stationary, which the speed
// detector already covers, so the circular rule does not fire.
const minMeanDistanceMeters = 1.0

// MovementPatternDetector analyzes the shape of recent movement. Frequent
// sharp direction changes are flagged as erratic; a tight, low-variance orbit
// around the window centroid is flagged as circular/repetitive.
type MovementPatternDetector struct {
	config  MovementPatternConfig
	enabled bool
	mu      sync.RWMutex
}

// NewMovementPatternDetector creates a pattern detector with canonical thresholds.
func NewMovementPatternDetector() *MovementPatternDetector {
	return &MovementPatternDetector{
		config:  DefaultMovementPatternConfig(),
		enabled: true,
	}
}

// Type returns the rule type.
func (d *MovementPatternDetector) Type() DetectorType {
	return DetectorTypeMovementPattern
}

// Check evaluates the trailing window against the erratic and circular rules.
func (d *MovementPatternDetector) Check(ctx context.Context, sample *Sample) (*models.AnomalyEvent, error) {
	d.mu.RLock()
	if !d.enabled {
		d.mu.RUnlock()
		return nil, nil
	}
	config := d.config
	d.mu.RUnlock()

	window := append(append([]models.LocationFix{}, sample.Recent...), sample.Fix)
	if len(window) < config.Window {
		return nil, nil
	}
	window = window[len(window)-config.Window:]

	point := sample.Fix.Point()

	if changes := countDirectionChanges(window, config.DirectionChangeDegrees); changes > config.MaxDirectionChanges {
		return &models.AnomalyEvent{
			TouristID: sample.TouristID,
			Type:      models.AnomalyBehavior,
			Severity:  models.SeverityMedium,
			Description: fmt.Sprintf(
				"erratic movement, %d sharp direction changes over last %d fixes",
				changes, config.Window),
			Confidence: 0.75,
			Timestamp:  sample.Fix.Timestamp,
			Location:   &point,
		}, nil
	}

	cv, ok := distanceVariation(window)
	if ok && cv < config.CircularCVThreshold {
		return &models.AnomalyEvent{
			TouristID: sample.TouristID,
			Type:      models.AnomalyBehavior,
			Severity:  models.SeverityLow,
			Description: fmt.Sprintf(
				"circular or repetitive movement over last %d fixes (distance variation %.2f)",
				config.Window, cv),
			Confidence: 0.65,
			Timestamp:  sample.Fix.Timestamp,
			Location:   &point,
		}, nil
	}

	return nil, nil
}

// countDirectionChanges counts consecutive bearing deltas above the threshold.
// Pairs of coincident fixes carry no bearing and are skipped.
func countDirectionChanges(window []models.LocationFix, threshold float64) int {
	bearings := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		a, b := window[i-1].Point(), window[i].Point()
		if a.Equal(b) {
			continue
		}
		bearings = append(bearings, geo.BearingDegrees(a, b))
	}

	changes := 0
	for i := 1; i < len(bearings); i++ {
		if geo.BearingDelta(bearings[i-1], bearings[i]) > threshold {
			changes++
		}
	}
	return changes
}

// distanceVariation computes the coefficient of variation (stddev/mean) of
// each fix's distance to the window centroid. The second return value is
// false when the window is too stationary for the ratio to be meaningful.
func distanceVariation(window []models.LocationFix) (float64, bool) {
	points := make([]geo.Point, len(window))
	for i, fix := range window {
		points[i] = fix.Point()
	}
	centroid := geo.Centroid(points)

	distances := make([]float64, len(points))
	for i, p := range points {
		distances[i] = geo.DistanceMeters(centroid, p)
	}

	mean := stat.Mean(distances, nil)
	if mean < minMeanDistanceMeters {
		return 0, false
	}
	stddev := stat.StdDev(distances, nil)
	return stddev / mean, true
}

// Configure updates the detector configuration.
func (d *MovementPatternDetector) Configure(config json.RawMessage) error {
	var newConfig MovementPatternConfig
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if newConfig.Window < 3 {
		return fmt.Errorf("window must be at least 3")
	}
	if newConfig.DirectionChangeDegrees <= 0 || newConfig.DirectionChangeDegrees > 180 {
		return fmt.Errorf("direction_change_degrees must be in (0,180]")
	}
	if newConfig.MaxDirectionChanges < 1 {
		return fmt.Errorf("max_direction_changes must be at least 1")
	}
	if newConfig.CircularCVThreshold <= 0 {
		return fmt.Errorf("circular_cv_threshold must be positive")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Enabled returns whether this detector is enabled.
func (d *MovementPatternDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *MovementPatternDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
