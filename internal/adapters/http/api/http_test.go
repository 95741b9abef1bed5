package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/showctl/internal/analytics"
	service "github.com/okian/showctl/internal/app"
	"github.com/okian/showctl/internal/devices"
	"github.com/okian/showctl/internal/domain/input"
	"github.com/okian/showctl/internal/domain/telemetry"
)

// mockDependencies is an in-memory stand-in for the service.
type mockDependencies struct {
	mu        sync.Mutex
	devices   []input.Snapshot
	suspended bool
	logged    []telemetry.Event
	logErr    error
	flushSent int
	flushErr  error
	disabled  bool
}

func (m *mockDependencies) Devices() []input.Snapshot { return m.devices }

func (m *mockDependencies) Device(id string) (input.Snapshot, error) {
	if m.disabled {
		return input.Snapshot{}, service.ErrInputDisabled
	}
	for _, d := range m.devices {
		if string(d.ID) == id || d.Name == id {
			return d, nil
		}
	}
	return input.Snapshot{}, fmt.Errorf("lookup %q: %w", id, devices.ErrDeviceNotFound)
}

func (m *mockDependencies) Suspend(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return false, service.ErrInputDisabled
	}
	changed := !m.suspended
	m.suspended = true
	return changed, nil
}

func (m *mockDependencies) Resume(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := m.suspended
	m.suspended = false
	return changed, nil
}

func (m *mockDependencies) LogEvent(_ context.Context, ev telemetry.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logErr != nil {
		return m.logErr
	}
	m.logged = append(m.logged, ev)
	return nil
}

func (m *mockDependencies) FlushAnalytics(context.Context) (int, error) {
	return m.flushSent, m.flushErr
}

func (m *mockDependencies) GetStats() Stats {
	return Stats{Started: true, AppVersion: "1.0.0", Suspended: m.suspended}
}

func testDevices() []input.Snapshot {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []input.Snapshot{
		{
			ID: "usb-0000:00:14.0-1/input0", Kind: input.KindGameController, Name: "Arcade Stick",
			Axes: []float64{-1, 0.5}, Buttons: []bool{true, false}, Tick: 7, At: at,
		},
		{
			ID: "js-1", Kind: input.KindRawJoystick, Name: "Flight Yoke",
			Axes: []float64{0}, Buttons: []bool{}, Tick: 7, At: at,
		},
	}
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(deps).Register(context.Background(), mux)
	return mux
}

func TestServerRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{devices: testDevices()}
		mux := newMux(deps)

		Convey("Then /healthz serves Prometheus metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "showctl_")
		})

		Convey("Then /stats serves the service summary", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got["started"], ShouldEqual, true)
			So(got["app_version"], ShouldEqual, "1.0.0")
		})

		Convey("Then non-GET /stats is not found", func() {
			w := serve(mux, http.MethodPost, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then a nil mux panics", func() {
			So(func() { NewServer(deps).Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestDeviceRoutes(t *testing.T) {
	Convey("Given two registered devices", t, func() {
		deps := &mockDependencies{devices: testDevices()}
		mux := newMux(deps)

		Convey("When listing devices", func() {
			w := serve(mux, http.MethodGet, "/devices", "")
			var got devicesResponse
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)

			Convey("Then both are returned with labelled controls", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(got.Devices), ShouldEqual, 2)
				first := got.Devices[0]
				So(first.Kind, ShouldEqual, "game_controller")
				So(first.Axes[0], ShouldResemble, axisView{Name: "Axis 1", Value: -1})
				So(first.Axes[1].Name, ShouldEqual, "Axis 2")
				So(first.Buttons[0], ShouldResemble, buttonView{Name: "Button 1", Pressed: true})
				So(got.Devices[1].Kind, ShouldEqual, "raw_joystick")
				So(got.Devices[1].Buttons, ShouldBeEmpty)
			})
		})

		Convey("When fetching a device whose id contains a slash", func() {
			w := serve(mux, http.MethodGet, "/devices/usb-0000:00:14.0-1/input0", "")

			Convey("Then the whole suffix is used as the id", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got deviceView
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Name, ShouldEqual, "Arcade Stick")
				So(got.Tick, ShouldEqual, uint64(7))
			})
		})

		Convey("When fetching a device by name", func() {
			w := serve(mux, http.MethodGet, "/devices/Flight%20Yoke", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When fetching an unknown device", func() {
			w := serve(mux, http.MethodGet, "/devices/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			var got errorResponse
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got.Code, ShouldEqual, "not_found")
		})

		Convey("When the id is missing", func() {
			w := serve(mux, http.MethodGet, "/devices/", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When input is disabled", func() {
			deps.disabled = true
			w := serve(mux, http.MethodGet, "/devices/js-1", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestControlRoutes(t *testing.T) {
	Convey("Given a running input loop", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When suspending twice", func() {
			first := serve(mux, http.MethodPost, "/control/suspend", "")
			second := serve(mux, http.MethodPost, "/control/suspend", "")

			Convey("Then only the first changes state", func() {
				var a, b controlResponse
				So(json.Unmarshal(first.Body.Bytes(), &a), ShouldBeNil)
				So(json.Unmarshal(second.Body.Bytes(), &b), ShouldBeNil)
				So(a, ShouldResemble, controlResponse{Status: "suspended", Changed: true})
				So(b, ShouldResemble, controlResponse{Status: "suspended", Changed: false})
			})

			Convey("Then resume reports running", func() {
				w := serve(mux, http.MethodPost, "/control/resume", "")
				var got controlResponse
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldResemble, controlResponse{Status: "running", Changed: true})
			})
		})

		Convey("Then GET is not a control verb", func() {
			w := serve(mux, http.MethodGet, "/control/suspend", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When input is disabled", func() {
			deps.disabled = true
			w := serve(mux, http.MethodPost, "/control/suspend", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestAnalyticsRoutes(t *testing.T) {
	Convey("Given the analytics endpoints", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When posting a valid event", func() {
			body := `{"name":"level_done","ts":"2024-05-01T12:00:00Z","parameters":{"level":"3"},"user_properties":{"plan":"pro"}}`
			w := serve(mux, http.MethodPost, "/analytics/events", body)

			Convey("Then it is accepted and converted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(len(deps.logged), ShouldEqual, 1)
				ev := deps.logged[0]
				So(ev.Name, ShouldEqual, "level_done")
				So(ev.Timestamp, ShouldEqual, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix())
				So(ev.Parameters, ShouldResemble, map[string]string{"level": "3"})
				So(ev.UserProperties, ShouldResemble, map[string]string{"plan": "pro"})
			})
		})

		Convey("When the ts is omitted", func() {
			before := time.Now().Unix()
			w := serve(mux, http.MethodPost, "/analytics/events", `{"name":"ping"}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(deps.logged[0].Timestamp, ShouldBeGreaterThanOrEqualTo, before)
		})

		Convey("When the body is malformed", func() {
			w := serve(mux, http.MethodPost, "/analytics/events", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the queue is full", func() {
			deps.logErr = analytics.ErrQueueFull
			w := serve(mux, http.MethodPost, "/analytics/events", `{"name":"ping"}`)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("When the batcher is stopping", func() {
			deps.logErr = analytics.ErrStopping
			w := serve(mux, http.MethodPost, "/analytics/events", `{"name":"ping"}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When flushing succeeds", func() {
			deps.flushSent = 3
			w := serve(mux, http.MethodPost, "/analytics/flush", "")
			var got flushResponse
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(got.Sent, ShouldEqual, 3)
		})

		Convey("When the destination rejects the flush", func() {
			deps.flushErr = errors.New("status 500")
			w := serve(mux, http.MethodPost, "/analytics/flush", "")
			So(w.Code, ShouldEqual, http.StatusBadGateway)
		})

		Convey("When analytics is disabled", func() {
			deps.flushErr = service.ErrAnalyticsDisabled
			w := serve(mux, http.MethodPost, "/analytics/flush", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestEventRequestValidate(t *testing.T) {
	Convey("Given event requests", t, func() {
		So(eventRequest{Name: "ok"}.validate(), ShouldBeNil)
		So(eventRequest{Name: "ok", TS: time.Now().Format(time.RFC3339)}.validate(), ShouldBeNil)

		err := eventRequest{Name: "   "}.validate()
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "missing name")

		err = eventRequest{Name: "ok", TS: "yesterday"}.validate()
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "RFC3339")
	})
}

func TestKindErrors(t *testing.T) {
	Convey("Given a wrapped kind error", t, func() {
		cause := errors.New("eof")
		err := WrapKind("api.post_event", ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.post_event: bad request: eof")
		})

		Convey("Then a bare kind error names only the op and kind", func() {
			So(NewKind("api.flush", ErrUpstream).Error(), ShouldEqual, "api.flush: upstream failure")
		})
	})
}

func TestErrorClass(t *testing.T) {
	Convey("Given failing HTTP statuses", t, func() {
		So(errorClass(http.StatusServiceUnavailable), ShouldEqual, "unavailable")
		So(errorClass(http.StatusBadGateway), ShouldEqual, "upstream_error")
		So(errorClass(http.StatusInternalServerError), ShouldEqual, "internal_error")
		So(errorClass(http.StatusTooManyRequests), ShouldEqual, "backpressure")
		So(errorClass(http.StatusNotFound), ShouldEqual, "not_found")
		So(errorClass(http.StatusBadRequest), ShouldEqual, "bad_request")
		So(errorClass(http.StatusMethodNotAllowed), ShouldEqual, "client_error")
	})
}
