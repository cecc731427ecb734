// Package storage provides the key-value persistence collaborator for
// pathwatch sessions. The engine holds only in-memory working copies during
// a monitoring session; profiles and fix history are flushed here keyed by
// tourist id so a session can be rehydrated after a restart.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pathwatch/pathwatch/internal/models"
)

// ErrNotFound is returned when no record exists for a tourist id.
var ErrNotFound = errors.New("storage: record not found")

// SessionRecord is the durable snapshot of one tourist session.
type SessionRecord struct {
	TouristID string                  `json:"tourist_id"`
	Profile   *models.BehaviorProfile `json:"profile,omitempty"`
	Fixes     []models.LocationFix    `json:"fixes"`
	SavedAt   time.Time               `json:"saved_at"`
}

// Store is the key-value collaborator interface. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get retrieves the record for a tourist. Returns ErrNotFound when the
	// tourist has no persisted state.
	Get(ctx context.Context, touristID string) (*SessionRecord, error)

	// Put persists the record for a tourist, replacing any prior value.
	Put(ctx context.Context, touristID string, record *SessionRecord) error

	// Delete removes the record for a tourist.
	Delete(ctx context.Context, touristID string) error

	// Close releases store resources.
	Close() error
}
