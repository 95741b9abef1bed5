package linuxjs

import (
	"encoding/binary"
	"fmt"
)

// js_event as defined in linux/joystick.h.
const (
	eventSize = 8

	eventButton = 0x01
	eventAxis   = 0x02
	eventInit   = 0x80

	// joydev scales every axis to this symmetric range.
	axisLimit int32 = 32767
)

type event struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

func decodeEvent(b []byte) (event, error) {
	if len(b) < eventSize {
		return event{}, fmt.Errorf("%w: %d bytes", ErrShortEvent, len(b))
	}
	return event{
		Time:   binary.NativeEndian.Uint32(b[0:4]),
		Value:  int16(binary.NativeEndian.Uint16(b[4:6])),
		Type:   b[6],
		Number: b[7],
	}, nil
}

// state is the last value seen for every axis and button.
type state struct {
	axes    []int32
	buttons []bool
}

func newState(axes, buttons int) state {
	return state{axes: make([]int32, axes), buttons: make([]bool, buttons)}
}

// apply folds one event in. Synthetic init events carry the initial state
// and are treated like real ones.
func (s *state) apply(ev event) {
	n := int(ev.Number)
	switch ev.Type &^ eventInit {
	case eventButton:
		if n < len(s.buttons) {
			s.buttons[n] = ev.Value != 0
		}
	case eventAxis:
		if n < len(s.axes) {
			s.axes[n] = int32(ev.Value)
		}
	}
}

// applyAll decodes and applies every whole event in buf.
func (s *state) applyAll(buf []byte) {
	for len(buf) >= eventSize {
		ev, _ := decodeEvent(buf[:eventSize])
		s.apply(ev)
		buf = buf[eventSize:]
	}
}
