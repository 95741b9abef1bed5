package api

import (
	"context"
	"net/http"
)

type controlResponse struct {
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
}

// ControlHandler handles readiness gate requests.
type ControlHandler struct {
	deps ControlDependencies
}

// NewControlHandler creates a new control handler.
func NewControlHandler(deps ControlDependencies) *ControlHandler {
	return &ControlHandler{deps: deps}
}

// HandleSuspend handles POST /control/suspend requests.
func (h *ControlHandler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "api.suspend", "suspended", h.deps.Suspend)
}

// HandleResume handles POST /control/resume requests.
func (h *ControlHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "api.resume", "running", h.deps.Resume)
}

func (h *ControlHandler) toggle(w http.ResponseWriter, r *http.Request, op, status string, fn func(context.Context) (bool, error)) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	changed, err := fn(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, controlResponse{Status: status, Changed: changed})
}
