package detection

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/pathwatch/pathwatch/internal/models"
)

// SpeedDetector flags movement that is implausibly fast relative to the
// tourist's own average (possible forced transportation) or implausibly slow
// (possible injury or distress).
type SpeedDetector struct {
	config  SpeedConfig
	enabled bool
	mu      sync.RWMutex
}

// NewSpeedDetector creates a speed detector with canonical thresholds.
func NewSpeedDetector() *SpeedDetector {
	return &SpeedDetector{
		config:  DefaultSpeedConfig(),
		enabled: true,
	}
}

// Type returns the rule type.
func (d *SpeedDetector) Type() DetectorType {
	return DetectorTypeSpeed
}

// Check evaluates the sample against the speed rules.
func (d *SpeedDetector) Check(ctx context.Context, sample *Sample) (*models.AnomalyEvent, error) {
	d.mu.RLock()
	if !d.enabled {
		d.mu.RUnlock()
		return nil, nil
	}
	config := d.config
	d.mu.RUnlock()

	speed := sample.Fix.Speed()
	avg := sample.Profile.AverageSpeedKmh

	if speed > avg*config.CriticalMultiplier && speed > config.CriticalFloorKmh {
		point := sample.Fix.Point()
		return &models.AnomalyEvent{
			TouristID: sample.TouristID,
			Type:      models.AnomalyMovement,
			Severity:  models.SeverityCritical,
			Description: fmt.Sprintf(
				"speed %.1f km/h far exceeds usual %.1f km/h, possible forced transportation",
				speed, avg),
			Confidence: 0.9,
			Timestamp:  sample.Fix.Timestamp,
			Location:   &point,
		}, nil
	}

	// The slow rule only applies once a real average exists; with a zero
	// average the multiplier bound can never be satisfied.
	if speed < avg*config.SlowMultiplier && speed < config.SlowCeilingKmh {
		point := sample.Fix.Point()
		return &models.AnomalyEvent{
			TouristID: sample.TouristID,
			Type:      models.AnomalyMovement,
			Severity:  models.SeverityMedium,
			Description: fmt.Sprintf(
				"speed %.2f km/h well below usual %.1f km/h, possible injury or distress",
				speed, avg),
			Confidence: 0.7,
			Timestamp:  sample.Fix.Timestamp,
			Location:   &point,
		}, nil
	}

	return nil, nil
}

// Configure updates the detector configuration.
func (d *SpeedDetector) Configure(config json.RawMessage) error {
	var newConfig SpeedConfig
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if newConfig.CriticalMultiplier <= 0 {
		return fmt.Errorf("critical_multiplier must be positive")
	}
	if newConfig.CriticalFloorKmh <= 0 {
		return fmt.Errorf("critical_floor_kmh must be positive")
	}
	if newConfig.SlowMultiplier <= 0 || newConfig.SlowMultiplier >= 1 {
		return fmt.Errorf("slow_multiplier must be in (0,1)")
	}
	if newConfig.SlowCeilingKmh <= 0 {
		return fmt.Errorf("slow_ceiling_kmh must be positive")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Enabled returns whether this detector is enabled.
func (d *SpeedDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *SpeedDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// Config returns the current configuration.
func (d *SpeedDetector) Config() SpeedConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}
