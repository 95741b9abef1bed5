// Package input contains the device model shared by the monitor, its
// platform backends and the status API.
package input

import (
	"strconv"
	"time"
)

// ID is a platform-stable device identity. Slot indices are never used as
// IDs because platforms reuse them after a disconnect.
type ID string

// Kind is fixed when a device is discovered.
type Kind uint8

const (
	KindRawJoystick Kind = iota
	KindGameController
)

func (k Kind) String() string {
	switch k {
	case KindGameController:
		return "game_controller"
	case KindRawJoystick:
		return "raw_joystick"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind as its string name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Snapshot is the state of one device at one scan tick. Snapshots are
// handed out by value and their slices are never written after creation.
type Snapshot struct {
	ID      ID        `json:"id"`
	Kind    Kind      `json:"kind"`
	Name    string    `json:"name"`
	Axes    []float64 `json:"axes"`
	Buttons []bool    `json:"buttons"`
	Tick    uint64    `json:"tick"`
	At      time.Time `json:"at"`
}

// AxisCount returns the number of axes fixed at discovery.
func (s Snapshot) AxisCount() int { return len(s.Axes) }

// ButtonCount returns the number of buttons fixed at discovery.
func (s Snapshot) ButtonCount() int { return len(s.Buttons) }

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Axes = append([]float64(nil), s.Axes...)
	out.Buttons = append([]bool(nil), s.Buttons...)
	return out
}

// AxisName labels axis i (0-based) for display.
func AxisName(i int) string { return "Axis " + strconv.Itoa(i+1) }

// ButtonName labels button i (0-based) for display.
func ButtonName(i int) string { return "Button " + strconv.Itoa(i+1) }
