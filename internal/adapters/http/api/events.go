package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/showctl/internal/domain/telemetry"
)

// maxEventBody bounds POST /analytics/events bodies.
const maxEventBody = 64 << 10

// eventRequest mirrors the OpenAPI schema for POST /analytics/events.
type eventRequest struct {
	Name           string            `json:"name"`
	TS             string            `json:"ts"`
	Parameters     map[string]string `json:"parameters"`
	UserProperties map[string]string `json:"user_properties"`
}

func (e eventRequest) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("missing name")
	}
	if e.TS != "" {
		if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// event converts the request. An empty ts means now.
func (e eventRequest) event() telemetry.Event {
	ev := telemetry.New(e.Name, e.Parameters)
	if e.TS != "" {
		if ts, err := time.Parse(time.RFC3339, e.TS); err == nil {
			ev.Timestamp = ts.Unix()
		}
	}
	if len(e.UserProperties) > 0 {
		ev.UserProperties = e.UserProperties
	}
	return ev
}

type ackResponse struct {
	Status string `json:"status"`
}

type flushResponse struct {
	Sent int `json:"sent"`
}

// EventsHandler handles analytics requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /analytics/events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.LogEvent(r.Context(), req.event()); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleFlush handles POST /analytics/flush requests. It runs one batch
// cycle and reports how many events were delivered.
func (h *EventsHandler) HandleFlush(w http.ResponseWriter, r *http.Request) {
	const op = "api.flush"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	sent, err := h.deps.FlushAnalytics(r.Context())
	if err != nil && sent == 0 {
		if _, _, kind := classify(err); kind == nil {
			writeError(w, http.StatusBadGateway, "upstream_error", WrapKind(op, ErrUpstream, err))
			return
		}
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, flushResponse{Sent: sent})
}
