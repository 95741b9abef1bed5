package devices_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/showctl/internal/adapters/input/sim"
	"github.com/okian/showctl/internal/devices"
	"github.com/okian/showctl/internal/domain/input"
	. "github.com/smartystreets/goconvey/convey"
)

// recorder collects notifications from the poll goroutine.
type recorder struct {
	mu      sync.Mutex
	added   []input.ID
	removed []input.ID
	states  map[input.ID][]input.Snapshot
}

func newRecorder() *recorder {
	return &recorder{states: make(map[input.ID][]input.Snapshot)}
}

func (r *recorder) DeviceAdded(s input.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, s.ID)
}

func (r *recorder) DeviceRemoved(s input.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, s.ID)
}

func (r *recorder) DeviceStateChanged(s input.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[s.ID] = append(r.states[s.ID], s)
}

func (r *recorder) counts() (added, removed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.added), len(r.removed)
}

func (r *recorder) lastState(id input.ID) (input.Snapshot, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ss := r.states[id]
	if len(ss) == 0 {
		return input.Snapshot{}, 0
	}
	return ss[len(ss)-1], len(ss)
}

// clock hands out tick times that are always a full scan apart.
type clock struct{ now time.Time }

func (c *clock) next() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newMonitor(p devices.Platform, opts ...devices.Option) *devices.Monitor {
	opts = append([]devices.Option{
		devices.WithScanInterval(time.Second),
		devices.WithPollInterval(time.Millisecond),
	}, opts...)
	return devices.NewMonitor(p, opts...)
}

func TestMonitorDiscovery(t *testing.T) {
	Convey("Given a monitor over a simulated platform", t, func() {
		ctx := context.Background()
		p := sim.New()
		m := newMonitor(p)
		rec := newRecorder()
		unsubscribe := m.Subscribe(rec)
		clk := &clock{now: time.Unix(1000, 0)}

		Convey("When a controller and a joystick are attached", func() {
			p.Attach(sim.DeviceSpec{ID: "pad", Name: "Pad", Controller: true, Axes: 2, Buttons: 2})
			p.Attach(sim.DeviceSpec{ID: "stick", Name: "Stick", Axes: 3, Buttons: 8})
			devices.Tick(m, ctx, clk.next())

			Convey("Then both are registered with their kinds", func() {
				list := m.ListDevices()
				So(list, ShouldHaveLength, 2)
				So(list[0].ID, ShouldEqual, input.ID("pad"))
				So(list[0].Kind, ShouldEqual, input.KindGameController)
				So(list[1].Kind, ShouldEqual, input.KindRawJoystick)
				So(list[1].AxisCount(), ShouldEqual, 3)
				So(list[1].ButtonCount(), ShouldEqual, 8)
			})

			Convey("Then each add is emitted once", func() {
				added, removed := rec.counts()
				So(added, ShouldEqual, 2)
				So(removed, ShouldEqual, 0)
			})

			Convey("Then a later tick does not add them again", func() {
				devices.Tick(m, ctx, clk.next())
				added, _ := rec.counts()
				So(added, ShouldEqual, 2)
			})

			Convey("Then state is pushed every tick even when unchanged", func() {
				devices.Tick(m, ctx, clk.now.Add(time.Millisecond))
				devices.Tick(m, ctx, clk.now.Add(2*time.Millisecond))
				_, n := rec.lastState("pad")
				So(n, ShouldEqual, 3)
				So(p.Updates(), ShouldEqual, 3)
			})

			Convey("When one is detached", func() {
				p.Detach("stick")
				devices.Tick(m, ctx, clk.next())

				Convey("Then it is removed and emitted once", func() {
					So(m.ListDevices(), ShouldHaveLength, 1)
					_, ok := m.FindDevice("stick")
					So(ok, ShouldBeFalse)
					_, removed := rec.counts()
					So(removed, ShouldEqual, 1)
					So(p.OpenHandles(), ShouldEqual, 1)
				})
			})

			Convey("When a device is replugged within one scan interval", func() {
				p.Attach(sim.DeviceSpec{ID: "pad", Name: "Pad", Controller: true, Axes: 2, Buttons: 2})
				devices.Tick(m, ctx, clk.next())

				Convey("Then it is removed then added again in the same tick", func() {
					rec.mu.Lock()
					defer rec.mu.Unlock()
					So(rec.removed, ShouldResemble, []input.ID{"pad"})
					So(rec.added, ShouldResemble, []input.ID{"pad", "stick", "pad"})
				})
			})

			Convey("When the listener unsubscribes", func() {
				unsubscribe()
				p.Detach("pad")
				devices.Tick(m, ctx, clk.next())

				Convey("Then it hears nothing more", func() {
					_, removed := rec.counts()
					So(removed, ShouldEqual, 0)
				})
			})
		})

		Convey("When opening a device fails", func() {
			p.Attach(sim.DeviceSpec{ID: "busy", Name: "Busy", Axes: 1})
			p.FailOpen("busy", errors.New("resource busy"))
			devices.Tick(m, ctx, clk.next())

			Convey("Then it is skipped this scan", func() {
				So(m.ListDevices(), ShouldBeEmpty)
			})

			Convey("Then the next scan retries it", func() {
				p.FailOpen("busy", nil)
				devices.Tick(m, ctx, clk.next())
				So(m.ListDevices(), ShouldHaveLength, 1)
			})
		})

		Convey("When enumeration fails", func() {
			p.Attach(sim.DeviceSpec{ID: "pad", Name: "Pad", Axes: 1})
			p.FailEnumerate(errors.New("subsystem down"))
			devices.Tick(m, ctx, clk.next())

			Convey("Then the tick completes with nothing added", func() {
				So(m.ListDevices(), ShouldBeEmpty)
				So(p.Updates(), ShouldEqual, 1)
			})
		})
	})
}

func TestMonitorNormalization(t *testing.T) {
	Convey("Given a pad at the extremes of its range", t, func() {
		ctx := context.Background()
		p := sim.New()
		p.Attach(sim.DeviceSpec{ID: "pad", Name: "Pad", Axes: 3, Buttons: 1})
		p.SetAxis("pad", 0, input.AxisMin)
		p.SetAxis("pad", 1, input.AxisMax)
		p.SetAxis("pad", 2, 0)
		p.SetButton("pad", 0, true)

		Convey("When polled", func() {
			m := newMonitor(p)
			rec := newRecorder()
			m.Subscribe(rec)
			devices.Tick(m, ctx, time.Unix(1, 0))
			snap, _ := rec.lastState("pad")

			Convey("Then the axes map to -1, 1 and about 0", func() {
				So(snap.Axes[0], ShouldEqual, -1.0)
				So(snap.Axes[1], ShouldEqual, 1.0)
				So(snap.Axes[2], ShouldAlmostEqual, 0.0, 1e-4)
				So(snap.Buttons[0], ShouldBeTrue)
			})
		})

		Convey("When polled with a dead zone", func() {
			p.SetAxis("pad", 2, 3000)
			m := newMonitor(p, devices.WithDeadZone(0.2))
			devices.Tick(m, ctx, time.Unix(1, 0))
			snap, ok := m.FindDevice("pad")

			Convey("Then small values are zero and extremes survive", func() {
				So(ok, ShouldBeTrue)
				So(snap.Axes[0], ShouldEqual, -1.0)
				So(snap.Axes[1], ShouldEqual, 1.0)
				So(snap.Axes[2], ShouldEqual, 0.0)
			})
		})
	})
}

func TestMonitorLookup(t *testing.T) {
	Convey("Given two devices sharing a product name", t, func() {
		ctx := context.Background()
		p := sim.New()
		p.Attach(sim.DeviceSpec{ID: "a", Name: "Gamepad", Axes: 1})
		p.Attach(sim.DeviceSpec{ID: "b", Name: "Gamepad", Axes: 1})
		p.Attach(sim.DeviceSpec{ID: "c", Name: "Wheel", Axes: 1})
		m := newMonitor(p)
		devices.Tick(m, ctx, time.Unix(1, 0))

		Convey("Then lookup by name returns the first discovered", func() {
			s, ok := m.FindDeviceByName("Gamepad")
			So(ok, ShouldBeTrue)
			So(s.ID, ShouldEqual, input.ID("a"))
		})

		Convey("Then resolve prefers the id", func() {
			s, ok := m.Resolve("b", "Gamepad")
			So(ok, ShouldBeTrue)
			So(s.ID, ShouldEqual, input.ID("b"))
		})

		Convey("Then resolve falls back to the name when the id is stale", func() {
			s, ok := m.Resolve("gone", "Wheel")
			So(ok, ShouldBeTrue)
			So(s.ID, ShouldEqual, input.ID("c"))
		})

		Convey("Then resolve fails when neither matches", func() {
			_, ok := m.Resolve("gone", "")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestMonitorLeases(t *testing.T) {
	Convey("Given a leased device", t, func() {
		ctx := context.Background()
		p := sim.New()
		p.Attach(sim.DeviceSpec{ID: "pad", Name: "Pad", Axes: 1})
		m := newMonitor(p)
		devices.Tick(m, ctx, time.Unix(1, 0))
		lease, err := m.Acquire("pad")
		So(err, ShouldBeNil)

		Convey("When the device is unplugged", func() {
			p.SetAxis("pad", 0, input.AxisMax)
			devices.Tick(m, ctx, time.Unix(1, int64(time.Millisecond)))
			p.Detach("pad")
			devices.Tick(m, ctx, time.Unix(3, 0))

			Convey("Then the handle stays open until the lease is released", func() {
				So(lease.Detached(), ShouldBeTrue)
				So(lease.Snapshot().Axes[0], ShouldEqual, 1.0)
				So(p.OpenHandles(), ShouldEqual, 1)

				lease.Release()
				lease.Release()
				So(p.OpenHandles(), ShouldEqual, 0)
			})
		})

		Convey("When the lease is released first", func() {
			lease.Release()

			Convey("Then the registry still owns the handle", func() {
				So(lease.Detached(), ShouldBeFalse)
				So(p.OpenHandles(), ShouldEqual, 1)
				devices.DropAll(m)
				So(p.OpenHandles(), ShouldEqual, 0)
			})
		})

		Convey("Then acquiring an unknown id fails", func() {
			_, err := m.Acquire("nope")
			So(err, ShouldEqual, devices.ErrDeviceNotFound)
		})
	})
}

func TestMonitorListenerPanic(t *testing.T) {
	Convey("Given a listener that panics", t, func() {
		ctx := context.Background()
		p := sim.New()
		p.Attach(sim.DeviceSpec{ID: "pad", Name: "Pad", Axes: 1})
		m := newMonitor(p)
		m.Subscribe(devices.ListenerFuncs{OnAdded: func(input.Snapshot) { panic("boom") }})
		rec := newRecorder()
		m.Subscribe(rec)

		Convey("When a device is added", func() {
			So(func() { devices.Tick(m, ctx, time.Unix(1, 0)) }, ShouldNotPanic)

			Convey("Then other listeners still hear it", func() {
				added, _ := rec.counts()
				So(added, ShouldEqual, 1)
			})
		})
	})
}

func TestMonitorWatch(t *testing.T) {
	Convey("Given a watcher with a buffer of two", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := sim.New()
		m := newMonitor(p, devices.WithNotifyBuffer(2))
		ch := m.Watch(ctx)

		Convey("When three devices arrive without the watcher reading", func() {
			for _, id := range []input.ID{"a", "b", "c"} {
				p.Attach(sim.DeviceSpec{ID: id, Name: string(id), Axes: 1})
			}
			devices.Tick(m, ctx, time.Unix(1, 0))

			Convey("Then the first two are queued and the third dropped", func() {
				n1 := <-ch
				n2 := <-ch
				So(n1.Type, ShouldEqual, devices.DeviceAdded)
				So(n1.Device.ID, ShouldEqual, input.ID("a"))
				So(n2.Device.ID, ShouldEqual, input.ID("b"))
				select {
				case <-ch:
					So("unexpected notification", ShouldBeEmpty)
				default:
				}
				So(m.ListDevices(), ShouldHaveLength, 3)
			})
		})

		Convey("When the context ends", func() {
			cancel()

			Convey("Then the channel closes", func() {
				select {
				case _, ok := <-ch:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					So("channel still open", ShouldBeEmpty)
				}
			})
		})
	})
}
