// Package config loads and validates pathwatch configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an optional
// YAML file, then environment variables. Sessions receive their configuration
// explicitly at creation; nothing in the engine reads configuration globally.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// weightSumEpsilon is the tolerance when checking that factor weights sum to 1.0.
const weightSumEpsilon = 1e-6

// Config is the root configuration for the pathwatch server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Storage    StorageConfig    `koanf:"storage"`
	Monitor    MonitorConfig    `koanf:"monitor"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Escalation EscalationConfig `koanf:"escalation"`
	Zones      []ZoneConfig     `koanf:"zones"`
}

// ServerConfig configures the HTTP collaborator surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// StorageConfig configures the key-value store collaborator used to persist
// behavior profiles and fix history between monitoring sessions.
type StorageConfig struct {
	// Backend selects the store implementation: badger or memory.
	Backend string `koanf:"backend" validate:"oneof=badger memory"`

	// Path is the on-disk location for the badger backend.
	Path string `koanf:"path"`

	// PersistInterval is how often live session state is flushed to the store.
	PersistInterval time.Duration `koanf:"persist_interval"`
}

// MonitorConfig holds the per-session telemetry and detection parameters.
type MonitorConfig struct {
	// ClusterRadiusMeters groups fixes into common-location clusters and
	// bounds the location-novelty check.
	ClusterRadiusMeters float64 `koanf:"cluster_radius_meters" validate:"gt=0"`

	// RecentRadiusMeters bounds the recent-fix novelty check.
	RecentRadiusMeters float64 `koanf:"recent_radius_meters" validate:"gt=0"`

	// SpeedCriticalMultiplier and SpeedCriticalFloorKmh gate the critical
	// speed anomaly: speed must exceed both multiplier x average and the floor.
	SpeedCriticalMultiplier float64 `koanf:"speed_critical_multiplier" validate:"gt=0"`
	SpeedCriticalFloorKmh   float64 `koanf:"speed_critical_floor_kmh" validate:"gt=0"`

	// RebuildProfileEveryNFixes triggers a wholesale profile rebuild.
	RebuildProfileEveryNFixes int `koanf:"rebuild_profile_every_n_fixes" validate:"min=1"`

	// MinProfileFixes is the minimum history size before a profile is built.
	MinProfileFixes int `koanf:"min_profile_fixes" validate:"min=1"`

	// HistorySize caps the per-tourist fix ring buffer.
	HistorySize int `koanf:"history_size" validate:"min=10"`

	// QueueSize bounds the per-tourist inbound fix queue. On overflow the
	// oldest buffered fix is dropped and logged.
	QueueSize int `koanf:"queue_size" validate:"min=1"`
}

// FactorWeights are the six safety score factor weights. They must sum to 1.0.
type FactorWeights struct {
	TimeOfDay       float64 `koanf:"time_of_day" validate:"gte=0,lte=1"`
	Geofence        float64 `koanf:"geofence" validate:"gte=0,lte=1"`
	CrowdDensity    float64 `koanf:"crowd_density" validate:"gte=0,lte=1"`
	IncidentHistory float64 `koanf:"incident_history" validate:"gte=0,lte=1"`
	RouteDeviation  float64 `koanf:"route_deviation" validate:"gte=0,lte=1"`
	Weather         float64 `koanf:"weather" validate:"gte=0,lte=1"`
}

// Sum returns the total of all six weights.
func (w FactorWeights) Sum() float64 {
	return w.TimeOfDay + w.Geofence + w.CrowdDensity +
		w.IncidentHistory + w.RouteDeviation + w.Weather
}

// ScoringConfig configures the safety score calculator.
type ScoringConfig struct {
	Weights FactorWeights `koanf:"weights"`

	// IncidentRadiusMeters bounds which zone incidents count as "nearby".
	IncidentRadiusMeters float64 `koanf:"incident_radius_meters" validate:"gt=0"`
}

// EscalationConfig configures the escalation coordinator.
type EscalationConfig struct {
	// WebhookURL is the emergency collaborator endpoint alerts are posted
	// to. When empty, alerts are logged locally instead of dispatched.
	WebhookURL string `koanf:"webhook_url" validate:"omitempty,url"`

	// ScoreThreshold triggers escalation when the safety score drops below it.
	ScoreThreshold float64 `koanf:"score_threshold" validate:"gte=0,lte=100"`

	// DispatchTimeout bounds a single emergency dispatch attempt.
	DispatchTimeout time.Duration `koanf:"dispatch_timeout"`

	// RetryAttempts is the total number of dispatch attempts before the
	// escalation is surfaced as degraded.
	RetryAttempts int `koanf:"retry_attempts" validate:"min=1"`

	// RetryDelay is the initial backoff delay; it doubles per attempt.
	RetryDelay time.Duration `koanf:"retry_delay"`

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// the dispatch circuit breaker.
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold" validate:"min=1"`

	// BreakerTimeout is how long the breaker stays open before half-open.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// ZoneConfig is one geofence zone reference entry.
type ZoneConfig struct {
	ID            string  `koanf:"id" validate:"required"`
	Name          string  `koanf:"name" validate:"required"`
	Lat           float64 `koanf:"lat" validate:"gte=-90,lte=90"`
	Lng           float64 `koanf:"lng" validate:"gte=-180,lte=180"`
	RadiusMeters  float64 `koanf:"radius_meters" validate:"gt=0"`
	RiskLevel     string  `koanf:"risk_level" validate:"oneof=low medium high"`
	IncidentCount int     `koanf:"incident_count" validate:"min=0"`
}

// Validate checks the configuration for consistency. It returns the first
// structural error found plus any cross-field rule violations.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if sum := c.Scoring.Weights.Sum(); math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.6f", sum)
	}

	if c.Monitor.MinProfileFixes > c.Monitor.HistorySize {
		return fmt.Errorf("min_profile_fixes (%d) exceeds history_size (%d)",
			c.Monitor.MinProfileFixes, c.Monitor.HistorySize)
	}

	return nil
}
