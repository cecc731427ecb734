package detection

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/pathwatch/pathwatch/internal/geo"
	"github.com/pathwatch/pathwatch/internal/models"
)

// LocationNoveltyDetector flags fixes that are far from every common-location
// centroid in the profile and far from every recent fix. A fix near either is
// familiar ground and never novel.
type LocationNoveltyDetector struct {
	config  LocationNoveltyConfig
	enabled bool
	mu      sync.RWMutex
}

// NewLocationNoveltyDetector creates a novelty detector with canonical thresholds.
func NewLocationNoveltyDetector() *LocationNoveltyDetector {
	return &LocationNoveltyDetector{
		config:  DefaultLocationNoveltyConfig(),
		enabled: true,
	}
}

// Type returns the rule type.
func (d *LocationNoveltyDetector) Type() DetectorType {
	return DetectorTypeLocationNovelty
}

// Check evaluates the sample against the novelty rule.
func (d *LocationNoveltyDetector) Check(ctx context.Context, sample *Sample) (*models.AnomalyEvent, error) {
	d.mu.RLock()
	if !d.enabled {
		d.mu.RUnlock()
		return nil, nil
	}
	config := d.config
	d.mu.RUnlock()

	point := sample.Fix.Point()

	for _, cluster := range sample.Profile.CommonLocations {
		if geo.DistanceMeters(cluster.Center, point) <= config.ClusterRadiusMeters {
			return nil, nil
		}
	}

	recent := sample.Recent
	if len(recent) > config.RecentWindow {
		recent = recent[len(recent)-config.RecentWindow:]
	}
	for _, fix := range recent {
		if geo.DistanceMeters(fix.Point(), point) <= config.RecentRadiusMeters {
			return nil, nil
		}
	}

	return &models.AnomalyEvent{
		TouristID:   sample.TouristID,
		Type:        models.AnomalyLocation,
		Severity:    models.SeverityMedium,
		Description: "unfamiliar location, far from all known and recent positions",
		Confidence:  0.8,
		Timestamp:   sample.Fix.Timestamp,
		Location:    &point,
	}, nil
}

// Configure updates the detector configuration.
func (d *LocationNoveltyDetector) Configure(config json.RawMessage) error {
	var newConfig LocationNoveltyConfig
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if newConfig.ClusterRadiusMeters <= 0 {
		return fmt.Errorf("cluster_radius_meters must be positive")
	}
	if newConfig.RecentRadiusMeters <= 0 {
		return fmt.Errorf("recent_radius_meters must be positive")
	}
	if newConfig.RecentWindow < 1 {
		return fmt.Errorf("recent_window must be at least 1")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Enabled returns whether this detector is enabled.
func (d *LocationNoveltyDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *LocationNoveltyDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
