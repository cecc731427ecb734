// Package api is the HTTP surface for telemetry ingest and the
// collaborator-facing status, zone, and escalation endpoints.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/pathwatch/pathwatch/internal/escalation"
	"github.com/pathwatch/pathwatch/internal/logging"
	"github.com/pathwatch/pathwatch/internal/models"
	"github.com/pathwatch/pathwatch/internal/scoring"
	"github.com/pathwatch/pathwatch/internal/session"
	ws "github.com/pathwatch/pathwatch/internal/websocket"
)

// Handler serves the HTTP endpoints.
type Handler struct {
	manager  *session.Manager
	zones    *scoring.ZoneIndex
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewHandler wires the endpoints to the session manager, zone reference
// data, and websocket hub.
func NewHandler(manager *session.Manager, zones *scoring.ZoneIndex, hub *ws.Hub) *Handler {
	return &Handler{
		manager: manager,
		zones:   zones,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The collaborator surface carries no credentials; origin
			// enforcement happens at the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// FixRequest is one submitted location fix.
type FixRequest struct {
	Timestamp      time.Time `json:"timestamp" validate:"required"`
	Lat            float64   `json:"lat" validate:"latitude"`
	Lng            float64   `json:"lng" validate:"longitude"`
	SpeedKmh       *float64  `json:"speed_kmh,omitempty" validate:"omitempty,gte=0"`
	AccuracyMeters *float64  `json:"accuracy_m,omitempty" validate:"omitempty,gte=0"`
}

// SubmitFix accepts one location fix for a tourist. Processing is
// asynchronous; acceptance means the fix entered the session queue.
func (h *Handler) SubmitFix(w http.ResponseWriter, r *http.Request) {
	touristID := chi.URLParam(r, "id")
	if touristID == "" {
		respondError(w, http.StatusBadRequest, "MISSING_TOURIST_ID", "tourist id is required", nil)
		return
	}

	var req FixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	fix := models.LocationFix{
		Timestamp:      req.Timestamp,
		Lat:            req.Lat,
		Lng:            req.Lng,
		SpeedKmh:       req.SpeedKmh,
		AccuracyMeters: req.AccuracyMeters,
	}
	if err := h.manager.SubmitFix(r.Context(), touristID, fix); err != nil {
		respondError(w, http.StatusServiceUnavailable, "SUBMIT_FAILED", "could not accept fix", err)
		return
	}
	respondData(w, http.StatusAccepted, map[string]string{"tourist_id": touristID})
}

// Status returns the session snapshot for a tourist.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	touristID := chi.URLParam(r, "id")
	status, err := h.manager.Status(touristID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownTourist) {
			respondError(w, http.StatusNotFound, "UNKNOWN_TOURIST", "no session for tourist", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STATUS_FAILED", "could not read session status", err)
		return
	}
	respondData(w, http.StatusOK, status)
}

// ResolveEscalation closes a tourist's open escalation.
func (h *Handler) ResolveEscalation(w http.ResponseWriter, r *http.Request) {
	touristID := chi.URLParam(r, "id")
	err := h.manager.Resolve(touristID)
	switch {
	case err == nil:
		respondData(w, http.StatusOK, map[string]string{
			"tourist_id": touristID,
			"state":      string(models.EscalationIdle),
		})
	case errors.Is(err, session.ErrUnknownTourist):
		respondError(w, http.StatusNotFound, "UNKNOWN_TOURIST", "no session for tourist", nil)
	case errors.Is(err, escalation.ErrNoOpenEscalation):
		respondError(w, http.StatusConflict, "NO_OPEN_ESCALATION", "tourist has no open escalation", nil)
	default:
		respondError(w, http.StatusInternalServerError, "RESOLVE_FAILED", "could not resolve escalation", err)
	}
}

// Zones returns the configured geofence reference data.
func (h *Handler) Zones(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.zones.Zones())
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": h.manager.SessionCount(),
	})
}

// WebSocket upgrades the connection and attaches the client to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
