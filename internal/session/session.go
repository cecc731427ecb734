// Package session runs the per-tourist telemetry pipeline. Each tourist has
// one session: a bounded fix queue and a single worker goroutine that owns
// the history, profile, detection, scoring, and escalation state for that
// tourist. Fixes for one tourist are processed strictly in arrival order;
// different tourists never block each other.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pathwatch/pathwatch/internal/detection"
	"github.com/pathwatch/pathwatch/internal/escalation"
	"github.com/pathwatch/pathwatch/internal/logging"
	"github.com/pathwatch/pathwatch/internal/metrics"
	"github.com/pathwatch/pathwatch/internal/models"
	"github.com/pathwatch/pathwatch/internal/profile"
	"github.com/pathwatch/pathwatch/internal/scoring"
	"github.com/pathwatch/pathwatch/internal/storage"
	"github.com/pathwatch/pathwatch/internal/stream"
	"github.com/pathwatch/pathwatch/internal/telemetry"
)

// recentWindow is how many prior fixes accompany each sample into detection.
const recentWindow = 32

// persistEveryNFixes is the count-based write-behind cadence to the session
// store. The time-based cadence comes from Pipeline.PersistInterval.
const persistEveryNFixes = 25

// Pipeline bundles the collaborators shared by all sessions.
type Pipeline struct {
	Engine     *detection.Engine
	Calculator *scoring.Calculator
	Dispatcher *escalation.Dispatcher
	Bus        *stream.Bus
	Store      storage.Store
	Builder    *profile.Builder

	HistorySize    int
	RebuildEvery   int
	QueueSize      int
	ScoreThreshold float64

	// PersistInterval flushes session state to the store whenever this much
	// wall time has passed since the last flush, in addition to the
	// count-based cadence. Zero disables the time-based flush.
	PersistInterval time.Duration
}

// Status is a point-in-time snapshot of one session.
type Status struct {
	TouristID       string                  `json:"tourist_id"`
	FixCount        int                     `json:"fix_count"`
	Profile         *models.BehaviorProfile `json:"profile,omitempty"`
	LastScore       *models.SafetyScore     `json:"last_score,omitempty"`
	EscalationState models.EscalationState  `json:"escalation_state"`
	StorageDegraded bool                    `json:"storage_degraded"`
}

// Session is the live pipeline for one tourist.
type Session struct {
	touristID   string
	pipeline    *Pipeline
	ingestor    *telemetry.Ingestor
	coordinator *escalation.Coordinator

	queue    chan models.LocationFix
	queueMu  sync.Mutex // serializes oldest-drop against enqueue
	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}

	// lastPersist is only touched by the worker goroutine.
	lastPersist time.Time

	// mu guards the snapshot fields read by Status from other goroutines.
	mu         sync.RWMutex
	lastScore  *models.SafetyScore
	fixCount   int
	profileRef *models.BehaviorProfile
	processed  int
	degraded   bool
}

func newSession(touristID string, p *Pipeline) *Session {
	s := &Session{
		touristID: touristID,
		pipeline:  p,
		ingestor:  telemetry.NewIngestor(p.HistorySize, p.RebuildEvery, p.Builder),
		queue:     make(chan models.LocationFix, p.QueueSize),
		stopped:   make(chan struct{}),
		done:      make(chan struct{}),

		lastPersist: time.Now(),
	}
	s.coordinator = escalation.NewCoordinator(touristID, p.ScoreThreshold, p.Dispatcher, s.onEscalationTransition)
	return s
}

// start hydrates persisted state and launches the worker. hydrateCtx is the
// caller's (request) context and bounds only the synchronous storage read;
// the worker and everything it spawns run on runCtx, which must outlive
// individual requests.
func (s *Session) start(hydrateCtx, runCtx context.Context) {
	record, err := s.pipeline.Store.Get(hydrateCtx, s.touristID)
	switch {
	case err == nil:
		s.ingestor.Restore(record.Fixes, record.Profile)
		s.mu.Lock()
		s.fixCount = s.ingestor.History().Len()
		s.profileRef = record.Profile
		s.mu.Unlock()
		logging.Info().
			Str("tourist_id", s.touristID).
			Int("fixes", len(record.Fixes)).
			Msg("session hydrated from storage")
	case errors.Is(err, storage.ErrNotFound):
	default:
		s.setDegraded("get", err)
	}

	go s.run(runCtx)
}

// SubmitFix enqueues a fix for processing. When the queue is full the oldest
// queued fix is dropped so fresh telemetry keeps flowing.
func (s *Session) SubmitFix(fix models.LocationFix) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	select {
	case <-s.stopped:
		return
	default:
	}
	for {
		select {
		case s.queue <- fix:
			return
		default:
		}
		select {
		case dropped := <-s.queue:
			metrics.QueueDrops.Inc()
			logging.Warn().
				Str("tourist_id", s.touristID).
				Time("dropped_fix", dropped.Timestamp).
				Msg("session queue full, dropping oldest fix")
		default:
		}
	}
}

// Resolve closes the tourist's open escalation.
func (s *Session) Resolve() error {
	return s.coordinator.Resolve()
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		TouristID:       s.touristID,
		FixCount:        s.fixCount,
		Profile:         s.profileRef,
		LastScore:       s.lastScore,
		EscalationState: s.coordinator.State(),
		StorageDegraded: s.degraded,
	}
}

// Stop drains nothing further, persists state, and waits for the worker.
func (s *Session) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		s.queueMu.Lock()
		close(s.stopped)
		close(s.queue)
		s.queueMu.Unlock()
	})
	select {
	case <-s.done:
	case <-ctx.Done():
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	for fix := range s.queue {
		s.process(ctx, fix)
	}
	s.persist(ctx)
}

func (s *Session) process(ctx context.Context, fix models.LocationFix) {
	accepted, rebuilt, err := s.ingestor.Ingest(fix)
	if err != nil {
		reason := "invalid_coordinates"
		if errors.Is(err, telemetry.ErrStaleFix) {
			reason = "stale_timestamp"
		}
		metrics.RecordFixRejected(reason)
		logging.Warn().
			Err(err).
			Str("tourist_id", s.touristID).
			Time("fix_timestamp", fix.Timestamp).
			Msg("rejected location fix")
		return
	}
	metrics.FixesAccepted.Inc()
	if rebuilt {
		metrics.ProfileRebuilds.Inc()
		logging.Debug().
			Str("tourist_id", s.touristID).
			Int("fix_count", s.ingestor.Profile().FixCount).
			Msg("behavior profile rebuilt")
	}

	s.detect(ctx, accepted)
	s.score(ctx, accepted)

	s.mu.Lock()
	s.fixCount = s.ingestor.History().Len()
	s.profileRef = s.ingestor.Profile()
	s.processed++
	processed := s.processed
	s.mu.Unlock()

	interval := s.pipeline.PersistInterval
	if processed%persistEveryNFixes == 0 ||
		(interval > 0 && time.Since(s.lastPersist) >= interval) {
		s.persist(ctx)
	}
}

func (s *Session) detect(ctx context.Context, fix models.LocationFix) {
	recent := s.ingestor.History().Recent(recentWindow + 1)
	if len(recent) > 0 {
		// The newest entry is the fix under evaluation.
		recent = recent[:len(recent)-1]
	}

	start := time.Now()
	events, err := s.pipeline.Engine.Process(ctx, &detection.Sample{
		TouristID: s.touristID,
		Fix:       fix,
		Profile:   s.ingestor.Profile(),
		Recent:    recent,
	})
	metrics.RecordDetectionPass(time.Since(start))
	if err != nil {
		logging.Error().Err(err).Str("tourist_id", s.touristID).Msg("detection pass failed")
	}

	for _, event := range events {
		metrics.RecordAnomaly(string(event.Type), string(event.Severity))
		logging.Info().
			Str("tourist_id", s.touristID).
			Str("anomaly_type", string(event.Type)).
			Str("severity", string(event.Severity)).
			Float64("confidence", event.Confidence).
			Msg("anomaly detected")
		if err := s.pipeline.Bus.PublishAnomaly(*event); err != nil {
			logging.Warn().Err(err).Str("tourist_id", s.touristID).Msg("failed to publish anomaly event")
		}
		s.coordinator.HandleEvent(ctx, *event)
	}
}

func (s *Session) score(ctx context.Context, fix models.LocationFix) {
	// No route-deviation or weather feed is wired in; empty Conditions makes
	// those two factors score neutral. Hosts with such feeds would populate
	// Conditions here.
	score := s.pipeline.Calculator.Compute(s.touristID, fix, scoring.Conditions{})
	metrics.RecordScore(s.touristID, string(score.Status), score.Score)

	s.mu.Lock()
	s.lastScore = &score
	s.mu.Unlock()

	if err := s.pipeline.Bus.PublishScore(score); err != nil {
		logging.Warn().Err(err).Str("tourist_id", s.touristID).Msg("failed to publish safety score")
	}
	s.coordinator.HandleScore(ctx, score)
}

func (s *Session) persist(ctx context.Context) {
	record := &storage.SessionRecord{
		TouristID: s.touristID,
		Profile:   s.ingestor.Profile(),
		Fixes:     s.ingestor.History().Snapshot(),
		SavedAt:   time.Now().UTC(),
	}
	s.lastPersist = time.Now()
	if err := s.pipeline.Store.Put(ctx, s.touristID, record); err != nil {
		s.setDegraded("put", err)
		return
	}
	s.clearDegraded()
}

// setDegraded flags in-memory-only operation after a storage failure. The
// session keeps processing fixes; only persistence is lost.
func (s *Session) setDegraded(operation string, err error) {
	metrics.StorageErrors.WithLabelValues(operation).Inc()
	s.mu.Lock()
	already := s.degraded
	s.degraded = true
	s.mu.Unlock()
	if !already {
		logging.Error().
			Err(err).
			Str("tourist_id", s.touristID).
			Str("operation", operation).
			Msg("session storage failing, continuing in memory only")
	}
}

func (s *Session) clearDegraded() {
	s.mu.Lock()
	was := s.degraded
	s.degraded = false
	s.mu.Unlock()
	if was {
		logging.Info().Str("tourist_id", s.touristID).Msg("session storage recovered")
	}
}

func (s *Session) onEscalationTransition(touristID string, from, to models.EscalationState) {
	metrics.RecordEscalationTransition(string(to))
	if to == models.EscalationDegraded {
		metrics.EscalationsDegraded.Inc()
	}
	if err := s.pipeline.Bus.PublishEscalation(models.EscalationUpdate{
		TouristID: touristID,
		From:      from,
		To:        to,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		logging.Warn().Err(err).Str("tourist_id", touristID).Msg("failed to publish escalation update")
	}
}
