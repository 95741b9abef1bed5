//go:build linux

package linuxjs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/okian/showctl/internal/devices"
)

// ioctl request encoding from asm-generic/ioctl.h.
const (
	iocRead      = 2
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	jsMagic  = 'j'
	nameSize = 128
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNRShift
}

var (
	jsiocgaxes    = ioc(iocRead, jsMagic, 0x11, 1)
	jsiocgbuttons = ioc(iocRead, jsMagic, 0x12, 1)
	jsiocgname    = ioc(iocRead, jsMagic, 0x13, nameSize)
)

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlUint8(fd int, req uintptr) (uint8, error) {
	var v uint8
	if err := ioctlPtr(fd, req, unsafe.Pointer(&v)); err != nil {
		return 0, err
	}
	return v, nil
}

// deviceName asks the driver for the product name.
func deviceName(fd int) string {
	var buf [nameSize]byte
	if err := ioctlPtr(fd, jsiocgname, unsafe.Pointer(&buf[0])); err != nil {
		return ""
	}
	if i := bytes.IndexByte(buf[:], 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf[:])
}

// Open opens the node for d.Slot non-blocking and reads the initial state.
func (p *Platform) Open(_ context.Context, d devices.Descriptor) (devices.Handle, error) {
	path := p.nodePath(d.Slot)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	axes, err := ioctlUint8(fd, jsiocgaxes)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("JSIOCGAXES %s: %w", path, err)
	}
	buttons, err := ioctlUint8(fd, jsiocgbuttons)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("JSIOCGBUTTONS %s: %w", path, err)
	}

	h := &handle{
		p:    p,
		path: path,
		fd:   fd,
		st:   newState(int(axes), int(buttons)),
	}
	h.attached.Store(true)
	h.drain()
	p.track(h)
	return h, nil
}

// drain reads until the kernel queue is empty. ENODEV means unplugged.
func (h *handle) drain() {
	var buf [eventSize * 64]byte
	for {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return
		}
		n, err := unix.Read(h.fd, buf[:])
		if n > 0 {
			h.st.applyAll(buf[:n])
		}
		h.mu.Unlock()

		switch {
		case err == nil && n > 0, errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return
		default:
			// EOF or ENODEV: the device is gone.
			h.attached.Store(false)
			return
		}
	}
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.attached.Store(false)
	h.p.untrack(h)
	if err := unix.Close(h.fd); err != nil {
		return fmt.Errorf("close %s: %w", h.path, err)
	}
	return nil
}
