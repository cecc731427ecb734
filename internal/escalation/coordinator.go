package escalation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pathwatch/pathwatch/internal/logging"
	"github.com/pathwatch/pathwatch/internal/models"
)

// ErrNoOpenEscalation is returned by Resolve when nothing is escalated.
var ErrNoOpenEscalation = errors.New("no open escalation")

// StateListener observes coordinator state transitions.
type StateListener func(touristID string, from, to models.EscalationState)

// Coordinator is the per-tourist escalation state machine. While an
// escalation is open, further trigger signals are absorbed: at most one
// dispatch reaches the emergency collaborator per open incident. Only an
// explicit Resolve returns the machine to IDLE.
type Coordinator struct {
	touristID      string
	scoreThreshold float64
	dispatcher     *Dispatcher
	listeners      []StateListener

	mu      sync.Mutex
	state   models.EscalationState
	current string // dispatch generation, guards stale completions
}

// NewCoordinator creates an idle coordinator for one tourist.
func NewCoordinator(touristID string, scoreThreshold float64, dispatcher *Dispatcher, listeners ...StateListener) *Coordinator {
	return &Coordinator{
		touristID:      touristID,
		scoreThreshold: scoreThreshold,
		dispatcher:     dispatcher,
		listeners:      listeners,
		state:          models.EscalationIdle,
	}
}

// State returns the current escalation state.
func (c *Coordinator) State() models.EscalationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleEvent feeds an anomaly event into the state machine. Critical events
// open an escalation; anything below critical is informational here.
func (c *Coordinator) HandleEvent(ctx context.Context, event models.AnomalyEvent) {
	if event.Severity != models.SeverityCritical {
		return
	}
	c.trigger(ctx, models.EmergencyAlert{
		TouristID:   c.touristID,
		Type:        string(event.Type),
		Severity:    event.Severity,
		Location:    event.Location,
		Description: event.Description,
		Timestamp:   event.Timestamp,
	})
}

// HandleScore feeds a safety score into the state machine. A score below the
// threshold opens an escalation.
func (c *Coordinator) HandleScore(ctx context.Context, score models.SafetyScore) {
	if score.Score >= c.scoreThreshold {
		return
	}
	c.trigger(ctx, models.EmergencyAlert{
		TouristID:   c.touristID,
		Type:        "safety_score",
		Severity:    models.SeverityCritical,
		Description: fmt.Sprintf("safety score %.1f below threshold %.1f", score.Score, c.scoreThreshold),
		Timestamp:   score.Timestamp,
	})
}

// Resolve closes an open escalation and returns the machine to IDLE.
func (c *Coordinator) Resolve() error {
	c.mu.Lock()
	if !c.state.Open() {
		c.mu.Unlock()
		return ErrNoOpenEscalation
	}
	from := c.state
	c.state = models.EscalationIdle
	c.current = ""
	c.mu.Unlock()

	c.notify(from, models.EscalationResolved)
	c.notify(models.EscalationResolved, models.EscalationIdle)
	logging.Info().
		Str("tourist_id", c.touristID).
		Str("from", string(from)).
		Msg("Escalation resolved")
	return nil
}

// trigger opens an escalation if none is open and dispatches asynchronously.
// Calls while an escalation is open are no-ops.
func (c *Coordinator) trigger(ctx context.Context, alert models.EmergencyAlert) {
	c.mu.Lock()
	if c.state.Open() {
		c.mu.Unlock()
		return
	}
	id := uuid.NewString()
	c.state = models.EscalationEscalating
	c.current = id
	c.mu.Unlock()

	c.notify(models.EscalationIdle, models.EscalationEscalating)
	logging.Warn().
		Str("tourist_id", c.touristID).
		Str("alert_type", alert.Type).
		Str("description", alert.Description).
		Msg("Opening emergency escalation")

	go c.dispatch(ctx, id, alert)
}

func (c *Coordinator) dispatch(ctx context.Context, id string, alert models.EmergencyAlert) {
	start := time.Now()
	result, err := c.dispatcher.Dispatch(ctx, alert)

	c.mu.Lock()
	if c.current != id || c.state != models.EscalationEscalating {
		// Resolved or superseded while the dispatch was in flight.
		c.mu.Unlock()
		return
	}
	to := models.EscalationEscalated
	if err != nil {
		to = models.EscalationDegraded
	}
	c.state = to
	c.mu.Unlock()

	c.notify(models.EscalationEscalating, to)
	if err != nil {
		logging.Error().
			Err(err).
			Str("tourist_id", c.touristID).
			Dur("elapsed", time.Since(start)).
			Msg("Emergency dispatch failed, escalation degraded")
		return
	}
	logging.Info().
		Str("tourist_id", c.touristID).
		Str("alert_id", result.AlertID).
		Dur("elapsed", time.Since(start)).
		Msg("Emergency dispatch acknowledged")
}

func (c *Coordinator) notify(from, to models.EscalationState) {
	for _, listener := range c.listeners {
		listener(c.touristID, from, to)
	}
}
