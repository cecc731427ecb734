package models

import (
	"time"

	"github.com/pathwatch/pathwatch/internal/geo"
)

// AnomalyType classifies an anomaly event.
type AnomalyType string

const (
	AnomalyMovement AnomalyType = "movement"
	AnomalyLocation AnomalyType = "location"
	AnomalyTime     AnomalyType = "time"
	AnomalyBehavior AnomalyType = "behavior"
)

// Severity indicates how serious an anomaly event is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AnomalyEvent is one discrete detection result. Events are immutable once
// created and are never merged.
type AnomalyEvent struct {
	ID          string      `json:"id"`
	TouristID   string      `json:"tourist_id"`
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
	Timestamp   time.Time   `json:"timestamp"`
	Location    *geo.Point  `json:"location,omitempty"`
}
