package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/pathwatch/pathwatch/internal/logging"
	"github.com/pathwatch/pathwatch/internal/models"
)

// Engine coordinates detection rule evaluation for one or more sessions.
// Detectors run in registration order so a given sample always produces
// events in the same order.
type Engine struct {
	mu        sync.RWMutex
	detectors []Detector
	byType    map[DetectorType]Detector
	enabled   bool
	metrics   *EngineMetrics
}

// EngineMetrics tracks detection engine performance.
type EngineMetrics struct {
	mu               sync.RWMutex
	SamplesProcessed int64
	EventsGenerated  int64
	DetectionErrors  int64
	LastProcessedAt  time.Time
	DetectorMetrics  map[DetectorType]*DetectorMetrics
}

// DetectorMetrics tracks individual detector performance.
type DetectorMetrics struct {
	SamplesChecked  int64
	EventsGenerated int64
	Errors          int64
	LastTriggeredAt *time.Time
}

// NewEngine creates a detection engine with no detectors registered.
func NewEngine() *Engine {
	return &Engine{
		byType:  make(map[DetectorType]Detector),
		enabled: true,
		metrics: &EngineMetrics{
			DetectorMetrics: make(map[DetectorType]*DetectorMetrics),
		},
	}
}

// NewDefaultEngine creates an engine with all four canonical detectors.
func NewDefaultEngine() *Engine {
	e := NewEngine()
	e.Register(NewSpeedDetector())
	e.Register(NewLocationNoveltyDetector())
	e.Register(NewTimeDetector())
	e.Register(NewMovementPatternDetector())
	return e
}

// Register adds a detector to the engine. Registration order is evaluation order.
func (e *Engine) Register(detector Detector) {
	e.mu.Lock()
	defer e.mu.Unlock()

	detectorType := detector.Type()
	e.detectors = append(e.detectors, detector)
	e.byType[detectorType] = detector

	e.metrics.mu.Lock()
	e.metrics.DetectorMetrics[detectorType] = &DetectorMetrics{}
	e.metrics.mu.Unlock()

	logging.Info().Str("detector", string(detectorType)).Msg("registered detector")
}

// Process evaluates a sample against all enabled detectors. A sample without
// a behavior profile is skipped entirely: no profile, no detection. Zero,
// one, or several events may be returned for a single fix.
func (e *Engine) Process(ctx context.Context, sample *Sample) ([]*models.AnomalyEvent, error) {
	if sample.Profile == nil {
		return nil, nil
	}

	detectors := e.enabledDetectors()
	if len(detectors) == 0 {
		return nil, nil
	}

	var events []*models.AnomalyEvent
	var errs []error

	for _, detector := range detectors {
		event, err := e.runDetector(ctx, detector, sample)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if event != nil {
			events = append(events, event)
		}
	}

	e.metrics.mu.Lock()
	e.metrics.SamplesProcessed++
	e.metrics.EventsGenerated += int64(len(events))
	e.metrics.LastProcessedAt = time.Now()
	e.metrics.mu.Unlock()

	if len(errs) > 0 {
		return events, fmt.Errorf("detection errors: %v", errs)
	}
	return events, nil
}

func (e *Engine) enabledDetectors() []Detector {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.enabled {
		return nil
	}

	detectors := make([]Detector, 0, len(e.detectors))
	for _, d := range e.detectors {
		if d.Enabled() {
			detectors = append(detectors, d)
		}
	}
	return detectors
}

func (e *Engine) runDetector(ctx context.Context, detector Detector, sample *Sample) (*models.AnomalyEvent, error) {
	detectorType := detector.Type()

	e.metrics.mu.Lock()
	if m, ok := e.metrics.DetectorMetrics[detectorType]; ok {
		m.SamplesChecked++
	}
	e.metrics.mu.Unlock()

	event, err := detector.Check(ctx, sample)
	if err != nil {
		e.metrics.mu.Lock()
		if m, ok := e.metrics.DetectorMetrics[detectorType]; ok {
			m.Errors++
		}
		e.metrics.DetectionErrors++
		e.metrics.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", detectorType, err)
	}

	if event != nil {
		event.ID = uuid.NewString()

		e.metrics.mu.Lock()
		if m, ok := e.metrics.DetectorMetrics[detectorType]; ok {
			m.EventsGenerated++
			now := time.Now()
			m.LastTriggeredAt = &now
		}
		e.metrics.mu.Unlock()
	}

	return event, nil
}

// SetEnabled enables or disables the whole engine.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

// Enabled returns whether the engine is enabled.
func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// Detector returns a registered detector by type.
func (e *Engine) Detector(detectorType DetectorType) (Detector, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.byType[detectorType]
	return d, ok
}

// Configure updates a registered detector's configuration.
func (e *Engine) Configure(detectorType DetectorType, config json.RawMessage) error {
	detector, ok := e.Detector(detectorType)
	if !ok {
		return fmt.Errorf("detector not found: %s", detectorType)
	}
	return detector.Configure(config)
}

// Metrics returns a copy of the engine metrics.
func (e *Engine) Metrics() EngineMetrics {
	e.metrics.mu.RLock()
	defer e.metrics.mu.RUnlock()

	detectorMetrics := make(map[DetectorType]*DetectorMetrics, len(e.metrics.DetectorMetrics))
	for k, v := range e.metrics.DetectorMetrics {
		dm := *v
		detectorMetrics[k] = &dm
	}

	return EngineMetrics{
		SamplesProcessed: e.metrics.SamplesProcessed,
		EventsGenerated:  e.metrics.EventsGenerated,
		DetectionErrors:  e.metrics.DetectionErrors,
		LastProcessedAt:  e.metrics.LastProcessedAt,
		DetectorMetrics:  detectorMetrics,
	}
}
