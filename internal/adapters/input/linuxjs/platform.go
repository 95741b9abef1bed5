// Package linuxjs reads joysticks and gamepads through the Linux joystick
// API (/dev/input/jsN). Identity and classification come from sysfs, so
// enumeration works without opening the device nodes.
package linuxjs

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/showctl/internal/devices"
	"github.com/okian/showctl/internal/domain/input"
)

// Default locations.
const (
	defaultDeviceDir = "/dev/input"
	defaultSysfsDir  = "/sys/class/input"
)

// Platform implements devices.Platform.
type Platform struct {
	devDir   string
	sysfsDir string

	mu      sync.Mutex
	handles map[*handle]struct{}
}

var _ devices.Platform = (*Platform)(nil)

// New returns a platform reading the default locations.
func New(opts ...Option) *Platform {
	p := &Platform{
		devDir:   defaultDeviceDir,
		sysfsDir: defaultSysfsDir,
		handles:  make(map[*handle]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enumerate lists js nodes ordered by slot.
func (p *Platform) Enumerate(ctx context.Context) ([]devices.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(p.devDir, "js*"))
	if err != nil {
		return nil, err
	}

	out := make([]devices.Descriptor, 0, len(paths))
	seen := make(map[input.ID]bool, len(paths))
	for _, path := range paths {
		node := filepath.Base(path)
		slot, err := strconv.Atoi(strings.TrimPrefix(node, "js"))
		if err != nil {
			continue
		}
		info := readDeviceInfo(p.sysfsDir, node)
		id := info.stableID(path)
		if seen[id] {
			id = input.ID(string(id) + "/" + node)
		}
		seen[id] = true

		name := info.Name
		if name == "" {
			name = "Joystick " + strconv.Itoa(slot)
		}
		out = append(out, devices.Descriptor{
			ID:         id,
			Name:       name,
			Controller: info.isGamepad(),
			Slot:       slot,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (p *Platform) nodePath(slot int) string {
	return filepath.Join(p.devDir, "js"+strconv.Itoa(slot))
}

// Update drains pending events from every open handle.
func (p *Platform) Update() error {
	p.mu.Lock()
	hs := make([]*handle, 0, len(p.handles))
	for h := range p.handles {
		hs = append(hs, h)
	}
	p.mu.Unlock()

	for _, h := range hs {
		h.drain()
	}
	return nil
}

func (p *Platform) track(h *handle) {
	p.mu.Lock()
	p.handles[h] = struct{}{}
	p.mu.Unlock()
}

func (p *Platform) untrack(h *handle) {
	p.mu.Lock()
	delete(p.handles, h)
	p.mu.Unlock()
}
