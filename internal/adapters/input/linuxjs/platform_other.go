//go:build !linux

package linuxjs

import (
	"context"

	"github.com/okian/showctl/internal/devices"
)

// Open is unavailable off Linux.
func (p *Platform) Open(context.Context, devices.Descriptor) (devices.Handle, error) {
	return nil, ErrUnsupported
}

func (h *handle) drain() {}

func (h *handle) Close() error {
	h.attached.Store(false)
	h.p.untrack(h)
	return nil
}
