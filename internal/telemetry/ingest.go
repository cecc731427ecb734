// Package telemetry maintains per-tourist fix histories and validates raw
// location fixes on the way in. Malformed fixes are rejected with a typed
// error and never abort the stream.
package telemetry

import (
	"errors"

	"github.com/pathwatch/pathwatch/internal/geo"
	"github.com/pathwatch/pathwatch/internal/models"
	"github.com/pathwatch/pathwatch/internal/profile"
)

var (
	// ErrInvalidCoordinates rejects fixes outside WGS84 bounds.
	ErrInvalidCoordinates = errors.New("coordinates out of range")

	// ErrStaleFix rejects fixes timestamped before the last accepted fix.
	// Equal timestamps are accepted; the stream is monotonic non-decreasing.
	ErrStaleFix = errors.New("fix timestamp precedes last accepted fix")
)

// Ingestor validates fixes, maintains the history window, and rebuilds the
// behavior profile every rebuildEvery accepted fixes. Not safe for concurrent
// use; each session worker owns one ingestor.
type Ingestor struct {
	history      *FixHistory
	builder      *profile.Builder
	rebuildEvery int
	accepted     int
	profile      *models.BehaviorProfile
}

// NewIngestor creates an ingestor over a fresh history window.
func NewIngestor(historySize, rebuildEvery int, builder *profile.Builder) *Ingestor {
	if rebuildEvery <= 0 {
		rebuildEvery = 50
	}
	return &Ingestor{
		history:      NewFixHistory(historySize),
		builder:      builder,
		rebuildEvery: rebuildEvery,
	}
}

// Ingest validates and appends a fix. Missing speed is derived from the
// distance to the previous fix over the elapsed time; zero or negative
// elapsed time derives to zero. Returns the accepted fix (with speed
// populated) and whether this fix triggered a profile rebuild.
func (in *Ingestor) Ingest(fix models.LocationFix) (models.LocationFix, bool, error) {
	if !fix.Point().Valid() {
		return models.LocationFix{}, false, ErrInvalidCoordinates
	}
	if last, ok := in.history.Last(); ok && fix.Timestamp.Before(last.Timestamp) {
		return models.LocationFix{}, false, ErrStaleFix
	}

	if fix.SpeedKmh == nil {
		speed := in.deriveSpeed(fix)
		fix.SpeedKmh = &speed
	}

	in.history.Append(fix)
	in.accepted++

	rebuilt := false
	if in.accepted%in.rebuildEvery == 0 {
		if built := in.builder.Build(in.history.Snapshot()); built != nil {
			in.profile = built
			rebuilt = true
		}
	}
	return fix, rebuilt, nil
}

func (in *Ingestor) deriveSpeed(fix models.LocationFix) float64 {
	last, ok := in.history.Last()
	if !ok {
		return 0
	}
	elapsed := fix.Timestamp.Sub(last.Timestamp)
	if elapsed <= 0 {
		return 0
	}
	distanceKm := geo.DistanceKm(last.Point(), fix.Point())
	return distanceKm / elapsed.Hours()
}

// Profile returns the current behavior profile, nil until the first rebuild.
func (in *Ingestor) Profile() *models.BehaviorProfile {
	return in.profile
}

// History exposes the underlying fix window.
func (in *Ingestor) History() *FixHistory {
	return in.history
}

// Restore rehydrates the ingestor from persisted state. The accepted-fix
// counter restarts so the next rebuild lands a full interval out.
func (in *Ingestor) Restore(fixes []models.LocationFix, prof *models.BehaviorProfile) {
	in.history.Restore(fixes)
	in.profile = prof
	in.accepted = 0
}
