package linuxjs

import (
	"context"
	"encoding/binary"
	"math/bits"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/showctl/internal/domain/input"
	. "github.com/smartystreets/goconvey/convey"
)

func encode(ev event) []byte {
	b := make([]byte, eventSize)
	binary.NativeEndian.PutUint32(b[0:4], ev.Time)
	binary.NativeEndian.PutUint16(b[4:6], uint16(ev.Value))
	b[6] = ev.Type
	b[7] = ev.Number
	return b
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// fakeSysfs lays out device/{name,phys,id/*,capabilities/key} for node.
func fakeSysfs(t *testing.T, root, node, name, phys, keys string) {
	dev := filepath.Join(root, node, "device")
	writeFile(t, filepath.Join(dev, "name"), name+"\n")
	writeFile(t, filepath.Join(dev, "phys"), phys+"\n")
	writeFile(t, filepath.Join(dev, "id", "bustype"), "0003\n")
	writeFile(t, filepath.Join(dev, "id", "vendor"), "045e\n")
	writeFile(t, filepath.Join(dev, "id", "product"), "028e\n")
	writeFile(t, filepath.Join(dev, "id", "version"), "0114\n")
	writeFile(t, filepath.Join(dev, "capabilities", "key"), keys+"\n")
}

func TestEvents(t *testing.T) {
	Convey("Given joystick state for 2 axes and 3 buttons", t, func() {
		st := newState(2, 3)

		Convey("When init and live events arrive in one read", func() {
			var buf []byte
			buf = append(buf, encode(event{Type: eventAxis | eventInit, Number: 0, Value: -32767})...)
			buf = append(buf, encode(event{Type: eventButton | eventInit, Number: 2, Value: 1})...)
			buf = append(buf, encode(event{Type: eventAxis, Number: 1, Value: 32767})...)
			buf = append(buf, encode(event{Type: eventButton, Number: 9, Value: 1})...)
			buf = append(buf, 0xff, 0xff)
			st.applyAll(buf)

			Convey("Then state reflects every whole event", func() {
				So(st.axes, ShouldResemble, []int32{-32767, 32767})
				So(st.buttons, ShouldResemble, []bool{false, false, true})
			})
		})

		Convey("When decoding a short buffer", func() {
			_, err := decodeEvent([]byte{1, 2, 3})
			So(err, ShouldWrap, ErrShortEvent)
		})

		Convey("Then the joydev range normalizes to exactly -1 and 1", func() {
			h := &handle{st: st}
			lo, hi := h.AxisRange()
			So(input.NormalizeAxis(-32767, lo, hi), ShouldEqual, -1.0)
			So(input.NormalizeAxis(32767, lo, hi), ShouldEqual, 1.0)
			So(input.NormalizeAxis(0, lo, hi), ShouldEqual, 0.0)
		})
	})
}

func TestSysfs(t *testing.T) {
	Convey("Given capability bitmaps", t, func() {
		Convey("When BTN_GAMEPAD is set", func() {
			// 0x130 = 304; bit 304 lives in word 4 on 64-bit, word 9 on 32-bit.
			words := make([]uint64, 10)
			words[btnGamepad/bits.UintSize] |= 1 << (btnGamepad % bits.UintSize)
			So(testBit(words, btnGamepad), ShouldBeTrue)
		})

		Convey("When parsing sysfs text most significant word first", func() {
			bm, err := parseBitmap("1 0 0")
			So(err, ShouldBeNil)
			So(bm, ShouldHaveLength, 3)
			So(bm[2], ShouldEqual, 1)
			So(bm[0], ShouldEqual, 0)
		})

		Convey("When the bitmap is garbage", func() {
			_, err := parseBitmap("zz")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given device identity", t, func() {
		info := deviceInfo{Bus: 3, Vendor: 0x045e, Product: 0x028e, Version: 0x114}

		Convey("Then phys wins", func() {
			info.Phys = "usb-0000:00:14.0-2/input0"
			So(info.stableID("/dev/input/js0"), ShouldEqual, input.ID("0003:045e:028e:0114@usb-0000:00:14.0-2/input0"))
		})

		Convey("Then uniq is next", func() {
			info.Uniq = "aa:bb:cc"
			So(info.stableID("/dev/input/js0"), ShouldEqual, input.ID("0003:045e:028e:0114#aa:bb:cc"))
		})

		Convey("Then an anonymous device falls back to its path", func() {
			So(deviceInfo{}.stableID("/dev/input/js3"), ShouldEqual, input.ID("/dev/input/js3"))
		})
	})
}

func TestEnumerate(t *testing.T) {
	Convey("Given a device dir with two joysticks", t, func() {
		devDir := t.TempDir()
		sysDir := t.TempDir()
		writeFile(t, filepath.Join(devDir, "js1"), "")
		writeFile(t, filepath.Join(devDir, "js0"), "")
		writeFile(t, filepath.Join(devDir, "event4"), "")

		gamepadKeys := "7fdb000000000000 0 0 0 0"
		if bits.UintSize == 32 {
			gamepadKeys = "7fdb0000 0 0 0 0 0 0 0 0 0"
		}
		fakeSysfs(t, sysDir, "js0", "Xbox Controller", "usb-1/input0", gamepadKeys)
		fakeSysfs(t, sysDir, "js1", "Flight Stick", "usb-2/input0", "0")

		p := New(WithDeviceDir(devDir), WithSysfsDir(sysDir))
		descs, err := p.Enumerate(context.Background())

		Convey("Then both are listed in slot order with sysfs identity", func() {
			So(err, ShouldBeNil)
			So(descs, ShouldHaveLength, 2)
			So(descs[0].Slot, ShouldEqual, 0)
			So(descs[0].Name, ShouldEqual, "Xbox Controller")
			So(descs[0].ID, ShouldEqual, input.ID("0003:045e:028e:0114@usb-1/input0"))
			So(descs[0].Controller, ShouldBeTrue)
			So(descs[1].Controller, ShouldBeFalse)
		})

		Convey("When the slot is reused by another device", func() {
			fakeSysfs(t, sysDir, "js1", "Flight Stick", "usb-3/input0", "0")
			again, err := p.Enumerate(context.Background())

			Convey("Then the id changes with the port, not the slot", func() {
				So(err, ShouldBeNil)
				So(again[1].ID, ShouldNotEqual, descs[1].ID)
			})
		})
	})
}
