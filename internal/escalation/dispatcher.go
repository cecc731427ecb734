// Package escalation coordinates emergency escalations: a per-tourist state
// machine deciding when to alert the emergency collaborator, and a dispatcher
// that delivers alerts with retries and a circuit breaker. A failed dispatch
// degrades the escalation for manual intervention; it is never dropped.
package escalation

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pathwatch/pathwatch/internal/config"
	"github.com/pathwatch/pathwatch/internal/logging"
	"github.com/pathwatch/pathwatch/internal/models"
)

// EmergencyClient is the external emergency-response collaborator.
type EmergencyClient interface {
	SendAlert(ctx context.Context, alert models.EmergencyAlert) (models.DispatchResult, error)
}

// Dispatcher delivers emergency alerts with per-attempt timeouts, exponential
// backoff, and a circuit breaker around the collaborator.
type Dispatcher struct {
	client  EmergencyClient
	cfg     config.EscalationConfig
	breaker *gobreaker.CircuitBreaker[models.DispatchResult]
}

// NewDispatcher wraps the emergency client with retry and breaker policy.
func NewDispatcher(client EmergencyClient, cfg config.EscalationConfig) *Dispatcher {
	settings := gobreaker.Settings{
		Name:    "emergency-dispatch",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Dispatch circuit breaker state change")
		},
	}
	return &Dispatcher{
		client:  client,
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker[models.DispatchResult](settings),
	}
}

// Dispatch attempts delivery up to the configured attempt count. Each attempt
// is bounded by the dispatch timeout; waits between attempts double and abort
// on context cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.EmergencyAlert) (models.DispatchResult, error) {
	var lastErr error
	delay := d.cfg.RetryDelay

	for attempt := 0; attempt < d.cfg.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return models.DispatchResult{}, ctx.Err()
		}

		result, err := d.attempt(ctx, alert)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < d.cfg.RetryAttempts-1 {
			logging.Warn().
				Err(err).
				Str("tourist_id", alert.TouristID).
				Int("attempt", attempt+1).
				Int("max_attempts", d.cfg.RetryAttempts).
				Dur("delay", delay).
				Msg("Emergency dispatch attempt failed, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return models.DispatchResult{}, ctx.Err()
			}
			delay *= 2
		}
	}

	return models.DispatchResult{}, fmt.Errorf("dispatch attempts exhausted: %w", lastErr)
}

func (d *Dispatcher) attempt(ctx context.Context, alert models.EmergencyAlert) (models.DispatchResult, error) {
	attemptCtx := ctx
	if d.cfg.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, d.cfg.DispatchTimeout)
		defer cancel()
	}

	result, err := d.breaker.Execute(func() (models.DispatchResult, error) {
		res, err := d.client.SendAlert(attemptCtx, alert)
		if err != nil {
			return models.DispatchResult{}, err
		}
		if !res.Success {
			return models.DispatchResult{}, fmt.Errorf("emergency collaborator rejected alert")
		}
		return res, nil
	})
	if err != nil {
		return models.DispatchResult{}, err
	}
	return result, nil
}

// BreakerState reports the current circuit breaker state for monitoring.
func (d *Dispatcher) BreakerState() string {
	return d.breaker.State().String()
}
