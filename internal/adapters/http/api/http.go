// Package api declares HTTP contracts and route registration helpers for
// the daemon's status API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/showctl/internal/analytics"
	service "github.com/okian/showctl/internal/app"
	"github.com/okian/showctl/internal/devices"
	"github.com/okian/showctl/internal/domain/input"
	"github.com/okian/showctl/internal/domain/telemetry"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DeviceDependencies
	ControlDependencies
	EventDependencies
	StatsProvider
}

// DeviceDependencies exposes the device registry.
type DeviceDependencies interface {
	Devices() []input.Snapshot
	Device(id string) (input.Snapshot, error)
}

// ControlDependencies toggles the readiness gate.
type ControlDependencies interface {
	Suspend(ctx context.Context) (bool, error)
	Resume(ctx context.Context) (bool, error)
}

// EventDependencies queues analytics events.
type EventDependencies interface {
	LogEvent(ctx context.Context, ev telemetry.Event) error
	FlushAnalytics(ctx context.Context) (int, error)
}

// Server wires HTTP routes for the status API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	devicesHandler *DevicesHandler
	controlHandler *ControlHandler
	eventsHandler  *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		devicesHandler: NewDevicesHandler(deps),
		controlHandler: NewControlHandler(deps),
		eventsHandler:  NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/devices", MetricsMiddleware(s.devicesHandler.HandleListDevices, "devices"))
	mux.HandleFunc("/devices/", MetricsMiddleware(s.devicesHandler.HandleGetDevice, "device"))
	mux.HandleFunc("/control/suspend", MetricsMiddleware(s.controlHandler.HandleSuspend, "suspend"))
	mux.HandleFunc("/control/resume", MetricsMiddleware(s.controlHandler.HandleResume, "resume"))
	mux.HandleFunc("/analytics/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "analytics_events"))
	mux.HandleFunc("/analytics/flush", MetricsMiddleware(s.eventsHandler.HandleFlush, "analytics_flush"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps service and component errors to a status, a response
// code and an API error kind. Unknown errors yield a nil kind.
func classify(err error) (int, string, error) {
	switch {
	case errors.Is(err, devices.ErrDeviceNotFound):
		return http.StatusNotFound, "not_found", ErrNotFound
	case errors.Is(err, analytics.ErrInvalidEvent):
		return http.StatusBadRequest, "bad_request", ErrBadRequest
	case errors.Is(err, analytics.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure", ErrBackpressure
	case errors.Is(err, service.ErrInputDisabled),
		errors.Is(err, service.ErrAnalyticsDisabled),
		errors.Is(err, analytics.ErrStopping),
		errors.Is(err, analytics.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable", ErrUnavailable
	default:
		return http.StatusInternalServerError, "internal_error", nil
	}
}

// writeServiceError translates err with classify.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code, kind := classify(err)
	if kind == nil {
		writeError(w, status, code, err)
		return
	}
	writeError(w, status, code, WrapKind(op, kind, err))
}
