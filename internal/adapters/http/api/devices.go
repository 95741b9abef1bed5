package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/showctl/internal/domain/input"
)

// axisView and buttonView label controls the way the settings UI shows them.
type axisView struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type buttonView struct {
	Name    string `json:"name"`
	Pressed bool   `json:"pressed"`
}

// deviceView is the wire shape of one device.
type deviceView struct {
	ID      string       `json:"id"`
	Kind    string       `json:"kind"`
	Name    string       `json:"name"`
	Axes    []axisView   `json:"axes"`
	Buttons []buttonView `json:"buttons"`
	Tick    uint64       `json:"tick"`
	At      time.Time    `json:"at"`
}

func newDeviceView(s input.Snapshot) deviceView { //nolint:gocritic // hugeParam: snapshots are passed by value everywhere
	v := deviceView{
		ID:      string(s.ID),
		Kind:    s.Kind.String(),
		Name:    s.Name,
		Axes:    make([]axisView, len(s.Axes)),
		Buttons: make([]buttonView, len(s.Buttons)),
		Tick:    s.Tick,
		At:      s.At,
	}
	for i, val := range s.Axes {
		v.Axes[i] = axisView{Name: input.AxisName(i), Value: val}
	}
	for i, down := range s.Buttons {
		v.Buttons[i] = buttonView{Name: input.ButtonName(i), Pressed: down}
	}
	return v
}

type devicesResponse struct {
	Devices []deviceView `json:"devices"`
}

// DevicesHandler handles device registry requests.
type DevicesHandler struct {
	deps DeviceDependencies
}

// NewDevicesHandler creates a new devices handler.
func NewDevicesHandler(deps DeviceDependencies) *DevicesHandler {
	return &DevicesHandler{deps: deps}
}

// HandleListDevices handles GET /devices requests.
func (h *DevicesHandler) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snaps := h.deps.Devices()
	resp := devicesResponse{Devices: make([]deviceView, len(snaps))}
	for i, s := range snaps {
		resp.Devices[i] = newDeviceView(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetDevice handles GET /devices/{id} requests. Stable ids may
// contain slashes, so everything after the prefix is the id. When no
// device has the id, the name is tried.
func (h *DevicesHandler) HandleGetDevice(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_device"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/devices/")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	snap, err := h.deps.Device(id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeviceView(snap))
}
