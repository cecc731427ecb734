package models

import (
	"time"

	"github.com/pathwatch/pathwatch/internal/geo"
)

// EscalationState is the per-tourist emergency escalation state.
// At most one non-resolved escalation exists per tourist at any time.
type EscalationState string

const (
	// EscalationIdle means no escalation is open.
	EscalationIdle EscalationState = "IDLE"

	// EscalationEscalating means a dispatch to the emergency collaborator
	// is in flight or being retried.
	EscalationEscalating EscalationState = "ESCALATING"

	// EscalationDegraded means dispatch retries were exhausted; the
	// escalation is surfaced for manual intervention, never dropped.
	EscalationDegraded EscalationState = "ESCALATING_DEGRADED"

	// EscalationEscalated means the emergency collaborator acknowledged
	// the dispatch.
	EscalationEscalated EscalationState = "ESCALATED"

	// EscalationResolved means an external resolution signal closed the
	// escalation. The state returns to IDLE immediately after.
	EscalationResolved EscalationState = "RESOLVED"
)

// Open reports whether the state represents an open (non-idle) escalation.
func (s EscalationState) Open() bool {
	return s == EscalationEscalating || s == EscalationDegraded || s == EscalationEscalated
}

// EscalationUpdate announces one state machine transition to stream
// consumers.
type EscalationUpdate struct {
	TouristID string          `json:"tourist_id"`
	From      EscalationState `json:"from"`
	To        EscalationState `json:"to"`
	Timestamp time.Time       `json:"timestamp"`
}

// EmergencyAlert is the payload handed to the emergency collaborator.
type EmergencyAlert struct {
	TouristID   string     `json:"tourist_id"`
	Type        string     `json:"type"`
	Severity    Severity   `json:"severity"`
	Location    *geo.Point `json:"location,omitempty"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
}

// DispatchResult is the emergency collaborator's acknowledgment.
type DispatchResult struct {
	Success bool   `json:"success"`
	AlertID string `json:"alert_id,omitempty"`
}
