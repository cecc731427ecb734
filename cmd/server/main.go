// Package main is the entry point for the pathwatch server.
//
// Pathwatch monitors tourist movement telemetry for anomalies, maintains
// per-tourist behavior profiles, computes weighted safety scores, and
// escalates critical situations to an emergency collaborator.
//
// Components start in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, YAML file, env vars)
//  2. Logging: zerolog, configured from the logging section
//  3. Storage: BadgerDB (or in-memory) session persistence
//  4. Message bus: in-process Watermill pub/sub for anomaly, score, and
//     escalation streams
//  5. Session manager: per-tourist ingest, detection, scoring, escalation
//  6. WebSocket hub + bridge: real-time fan-out to connected clients
//  7. HTTP server: REST API, health, and Prometheus metrics
//
// The hub, bridge, and HTTP server run under a suture supervisor tree and
// shut down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/pathwatch/pathwatch/internal/api"
	"github.com/pathwatch/pathwatch/internal/config"
	"github.com/pathwatch/pathwatch/internal/detection"
	"github.com/pathwatch/pathwatch/internal/escalation"
	"github.com/pathwatch/pathwatch/internal/geo"
	"github.com/pathwatch/pathwatch/internal/logging"
	"github.com/pathwatch/pathwatch/internal/models"
	"github.com/pathwatch/pathwatch/internal/profile"
	"github.com/pathwatch/pathwatch/internal/scoring"
	"github.com/pathwatch/pathwatch/internal/session"
	"github.com/pathwatch/pathwatch/internal/storage"
	"github.com/pathwatch/pathwatch/internal/stream"
	"github.com/pathwatch/pathwatch/internal/supervisor"
	ws "github.com/pathwatch/pathwatch/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("storage_backend", cfg.Storage.Backend).
		Int("zones", len(cfg.Zones)).
		Bool("webhook_configured", cfg.Escalation.WebhookURL != "").
		Msg("Starting pathwatch")

	store, err := openStore(cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()

	bus := stream.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing message bus")
		}
	}()

	zones := scoring.NewZoneIndex(zonesFromConfig(cfg.Zones))
	engine, err := buildEngine(cfg.Monitor)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure detection engine")
	}

	var client escalation.EmergencyClient
	if cfg.Escalation.WebhookURL != "" {
		client = escalation.NewWebhookClient(cfg.Escalation.WebhookURL, cfg.Escalation.DispatchTimeout)
		logging.Info().Str("url", cfg.Escalation.WebhookURL).Msg("Emergency webhook configured")
	} else {
		client = escalation.NewLogClient()
		logging.Warn().Msg("No emergency webhook configured - alerts will only be logged")
	}

	pipeline := &session.Pipeline{
		Engine:     engine,
		Calculator: scoring.NewCalculator(cfg.Scoring, zones),
		Dispatcher: escalation.NewDispatcher(client, cfg.Escalation),
		Bus:        bus,
		Store:      store,
		Builder: profile.NewBuilder(profile.Config{
			ClusterRadiusMeters: cfg.Monitor.ClusterRadiusMeters,
			MinFixes:            cfg.Monitor.MinProfileFixes,
		}),
		HistorySize:     cfg.Monitor.HistorySize,
		RebuildEvery:    cfg.Monitor.RebuildProfileEveryNFixes,
		QueueSize:       cfg.Monitor.QueueSize,
		ScoreThreshold:  cfg.Escalation.ScoreThreshold,
		PersistInterval: cfg.Storage.PersistInterval,
	}

	// Session workers and escalation dispatches run on their own context so
	// graceful shutdown (tree stopped, manager draining) does not abort
	// in-flight dispatches or the final persist.
	sessionCtx, sessionCancel := context.WithCancel(context.Background())
	defer sessionCancel()
	manager := session.NewManager(sessionCtx, pipeline)

	hub := ws.NewHub()
	bridge := ws.NewBridge(hub, bus)

	handler := api.NewHandler(manager, zones, hub)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg.Server, handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	tree.AddMessagingService(supervisor.NewRunnerService("websocket-hub", hub))
	tree.AddMessagingService(supervisor.NewRunnerService("stream-bridge", bridge))
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	logging.Info().Msg("Supervisor tree started")

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	manager.Shutdown(shutdownCtx)

	logging.Info().Msg("Pathwatch stopped gracefully")
}

// openStore creates the configured session store backend.
func openStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.OpenBadger(cfg.Path)
	}
}

// buildEngine creates the detection engine and applies the tunable monitor
// thresholds on top of the canonical rule defaults.
func buildEngine(cfg config.MonitorConfig) (*detection.Engine, error) {
	engine := detection.NewDefaultEngine()

	speedCfg := detection.DefaultSpeedConfig()
	speedCfg.CriticalMultiplier = cfg.SpeedCriticalMultiplier
	speedCfg.CriticalFloorKmh = cfg.SpeedCriticalFloorKmh
	if err := configureDetector(engine, detection.DetectorTypeSpeed, speedCfg); err != nil {
		return nil, err
	}

	noveltyCfg := detection.DefaultLocationNoveltyConfig()
	noveltyCfg.ClusterRadiusMeters = cfg.ClusterRadiusMeters
	noveltyCfg.RecentRadiusMeters = cfg.RecentRadiusMeters
	if err := configureDetector(engine, detection.DetectorTypeLocationNovelty, noveltyCfg); err != nil {
		return nil, err
	}

	return engine, nil
}

func configureDetector(engine *detection.Engine, detectorType detection.DetectorType, cfg any) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode %s config: %w", detectorType, err)
	}
	if err := engine.Configure(detectorType, raw); err != nil {
		return fmt.Errorf("configure %s detector: %w", detectorType, err)
	}
	return nil
}

// zonesFromConfig converts configured zone entries into the reference zone
// model used by the score calculator.
func zonesFromConfig(entries []config.ZoneConfig) []models.GeoZone {
	zones := make([]models.GeoZone, 0, len(entries))
	for _, z := range entries {
		zones = append(zones, models.GeoZone{
			ID:            z.ID,
			Name:          z.Name,
			Center:        geo.Point{Lat: z.Lat, Lng: z.Lng},
			RadiusMeters:  z.RadiusMeters,
			RiskLevel:     models.RiskLevel(z.RiskLevel),
			IncidentCount: z.IncidentCount,
		})
	}
	return zones
}
