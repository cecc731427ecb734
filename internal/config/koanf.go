package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pathwatch/config.yaml",
	"/etc/pathwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "PATHWATCH_CONFIG"

// Default returns a Config populated with all default values. The numeric
// detection and scoring defaults are the canonical rule-set constants.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8473,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Storage: StorageConfig{
			Backend:         "badger",
			Path:            "/data/pathwatch",
			PersistInterval: time.Minute,
		},
		Monitor: MonitorConfig{
			ClusterRadiusMeters:       200,
			RecentRadiusMeters:        500,
			SpeedCriticalMultiplier:   3,
			SpeedCriticalFloorKmh:     50,
			RebuildProfileEveryNFixes: 50,
			MinProfileFixes:           10,
			HistorySize:               1000,
			QueueSize:                 64,
		},
		Scoring: ScoringConfig{
			Weights: FactorWeights{
				TimeOfDay:       0.20,
				Geofence:        0.30,
				CrowdDensity:    0.20,
				IncidentHistory: 0.15,
				RouteDeviation:  0.05,
				Weather:         0.10,
			},
			IncidentRadiusMeters: 1000,
		},
		Escalation: EscalationConfig{
			WebhookURL:              "",
			ScoreThreshold:          40,
			DispatchTimeout:         10 * time.Second,
			RetryAttempts:           3,
			RetryDelay:              time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values from Default()
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: highest priority
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are skipped so that unrelated environment noise never
// pollutes the configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"HTTP_HOST":         "server.host",
		"HTTP_PORT":         "server.port",
		"HTTP_TIMEOUT":      "server.timeout",
		"CORS_ORIGINS":      "server.cors_origins",
		"RATE_LIMIT_REQS":   "server.rate_limit_reqs",
		"RATE_LIMIT_WINDOW": "server.rate_limit_window",

		"LOG_LEVEL":  "logging.level",
		"LOG_FORMAT": "logging.format",
		"LOG_CALLER": "logging.caller",

		"STORAGE_BACKEND":          "storage.backend",
		"STORAGE_PATH":             "storage.path",
		"STORAGE_PERSIST_INTERVAL": "storage.persist_interval",

		"CLUSTER_RADIUS_METERS":         "monitor.cluster_radius_meters",
		"RECENT_RADIUS_METERS":          "monitor.recent_radius_meters",
		"SPEED_CRITICAL_MULTIPLIER":     "monitor.speed_critical_multiplier",
		"SPEED_CRITICAL_FLOOR_KMH":      "monitor.speed_critical_floor_kmh",
		"REBUILD_PROFILE_EVERY_N_FIXES": "monitor.rebuild_profile_every_n_fixes",
		"MIN_PROFILE_FIXES":             "monitor.min_profile_fixes",
		"HISTORY_SIZE":                  "monitor.history_size",
		"QUEUE_SIZE":                    "monitor.queue_size",

		"WEIGHT_TIME_OF_DAY":      "scoring.weights.time_of_day",
		"WEIGHT_GEOFENCE":         "scoring.weights.geofence",
		"WEIGHT_CROWD_DENSITY":    "scoring.weights.crowd_density",
		"WEIGHT_INCIDENT_HISTORY": "scoring.weights.incident_history",
		"WEIGHT_ROUTE_DEVIATION":  "scoring.weights.route_deviation",
		"WEIGHT_WEATHER":          "scoring.weights.weather",
		"INCIDENT_RADIUS_METERS":  "scoring.incident_radius_meters",

		"ESCALATION_WEBHOOK_URL":     "escalation.webhook_url",
		"ESCALATION_SCORE_THRESHOLD": "escalation.score_threshold",
		"DISPATCH_TIMEOUT":           "escalation.dispatch_timeout",
		"DISPATCH_RETRY_ATTEMPTS":    "escalation.retry_attempts",
		"DISPATCH_RETRY_DELAY":       "escalation.retry_delay",
		"BREAKER_FAILURE_THRESHOLD":  "escalation.breaker_failure_threshold",
		"BREAKER_TIMEOUT":            "escalation.breaker_timeout",
	}

	if mapped, ok := mappings[strings.ToUpper(key)]; ok {
		return mapped
	}
	return ""
}
