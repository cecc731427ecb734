package session

import (
	"context"
	"errors"
	"sync"

	"github.com/pathwatch/pathwatch/internal/logging"
	"github.com/pathwatch/pathwatch/internal/metrics"
	"github.com/pathwatch/pathwatch/internal/models"
)

// ErrUnknownTourist is returned for operations on tourists with no session.
var ErrUnknownTourist = errors.New("no session for tourist")

// Manager owns the session registry. Sessions are created lazily on the
// first fix for a tourist and live until the manager shuts down.
type Manager struct {
	pipeline *Pipeline

	// baseCtx outlives any single request. Session workers and their
	// escalation dispatches run on it so they are not cut short when the
	// request that created the session completes.
	baseCtx context.Context

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates an empty session registry over the shared pipeline.
// ctx is the process-lifetime context; cancelling it aborts in-flight
// session work, so it must only be cancelled at shutdown.
func NewManager(ctx context.Context, pipeline *Pipeline) *Manager {
	return &Manager{
		pipeline: pipeline,
		baseCtx:  ctx,
		sessions: make(map[string]*Session),
	}
}

// SubmitFix routes a fix to the tourist's session, creating and hydrating
// the session on first contact.
func (m *Manager) SubmitFix(ctx context.Context, touristID string, fix models.LocationFix) error {
	session, err := m.getOrCreate(ctx, touristID)
	if err != nil {
		return err
	}
	session.SubmitFix(fix)
	return nil
}

// Resolve closes the tourist's open escalation.
func (m *Manager) Resolve(touristID string) error {
	session, ok := m.get(touristID)
	if !ok {
		return ErrUnknownTourist
	}
	return session.Resolve()
}

// Status returns a snapshot of the tourist's session.
func (m *Manager) Status(touristID string) (Status, error) {
	session, ok := m.get(touristID)
	if !ok {
		return Status{}, ErrUnknownTourist
	}
	return session.Status(), nil
}

// SessionCount returns the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops all sessions, persisting each before return.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop(ctx)
	}
	metrics.ActiveSessions.Set(0)
	logging.Info().Int("sessions", len(sessions)).Msg("session manager stopped")
}

func (m *Manager) get(touristID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[touristID]
	return session, ok
}

func (m *Manager) getOrCreate(ctx context.Context, touristID string) (*Session, error) {
	if session, ok := m.get(touristID); ok {
		return session, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New("session manager is shut down")
	}
	if session, ok := m.sessions[touristID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	session := newSession(touristID, m.pipeline)
	m.sessions[touristID] = session
	count := len(m.sessions)
	m.mu.Unlock()

	session.start(ctx, m.baseCtx)
	metrics.ActiveSessions.Set(float64(count))
	logging.Info().Str("tourist_id", touristID).Int("sessions", count).Msg("session created")
	return session, nil
}
