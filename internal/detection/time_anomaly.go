package detection

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/pathwatch/pathwatch/internal/models"
)

// TimeDetector flags activity at hours the tourist is not normally active.
// Activity in the night band is high severity; any other atypical hour is low.
type TimeDetector struct {
	config  TimeConfig
	enabled bool
	mu      sync.RWMutex
}

// NewTimeDetector creates a time detector with canonical thresholds.
func NewTimeDetector() *TimeDetector {
	return &TimeDetector{
		config:  DefaultTimeConfig(),
		enabled: true,
	}
}

// Type returns the rule type.
func (d *TimeDetector) Type() DetectorType {
	return DetectorTypeTime
}

// Check evaluates the sample against the typical-hours rule.
func (d *TimeDetector) Check(ctx context.Context, sample *Sample) (*models.AnomalyEvent, error) {
	d.mu.RLock()
	if !d.enabled {
		d.mu.RUnlock()
		return nil, nil
	}
	config := d.config
	d.mu.RUnlock()

	hour := sample.Fix.Timestamp.Hour()
	if sample.Profile.TypicalHour(hour) {
		return nil, nil
	}

	point := sample.Fix.Point()
	event := &models.AnomalyEvent{
		TouristID: sample.TouristID,
		Type:      models.AnomalyTime,
		Timestamp: sample.Fix.Timestamp,
		Location:  &point,
	}

	night := (hour >= config.NightStartHour && hour < config.NightEndHour) ||
		hour == config.NightLateHour
	if night {
		event.Severity = models.SeverityHigh
		event.Confidence = 0.9
		event.Description = fmt.Sprintf("activity at %02d:00, outside typical hours and during the night", hour)
	} else {
		event.Severity = models.SeverityLow
		event.Confidence = 0.6
		event.Description = fmt.Sprintf("activity at %02d:00, outside typical hours", hour)
	}

	return event, nil
}

// Configure updates the detector configuration.
func (d *TimeDetector) Configure(config json.RawMessage) error {
	var newConfig TimeConfig
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for _, h := range []int{newConfig.NightStartHour, newConfig.NightEndHour, newConfig.NightLateHour} {
		if h < 0 || h > 23 {
			return fmt.Errorf("night hours must be within 0-23")
		}
	}
	if newConfig.NightStartHour >= newConfig.NightEndHour {
		return fmt.Errorf("night_start_hour must be before night_end_hour")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Enabled returns whether this detector is enabled.
func (d *TimeDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *TimeDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
