package linuxjs

import (
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/showctl/internal/domain/input"
)

// btnGamepad is BTN_GAMEPAD from linux/input-event-codes.h. Devices that
// report it follow the standard gamepad layout.
const btnGamepad = 0x130

// deviceInfo is what sysfs says about one jsN node.
type deviceInfo struct {
	Name    string
	Phys    string
	Uniq    string
	Bus     uint16
	Vendor  uint16
	Product uint16
	Version uint16
	Keys    []uint64
}

// readDeviceInfo loads <sysfs>/<node>/device. Missing files leave their
// fields zero.
func readDeviceInfo(sysfsDir, node string) deviceInfo {
	dir := filepath.Join(sysfsDir, node, "device")
	info := deviceInfo{
		Name:    readTrim(filepath.Join(dir, "name")),
		Phys:    readTrim(filepath.Join(dir, "phys")),
		Uniq:    readTrim(filepath.Join(dir, "uniq")),
		Bus:     readHex16(filepath.Join(dir, "id", "bustype")),
		Vendor:  readHex16(filepath.Join(dir, "id", "vendor")),
		Product: readHex16(filepath.Join(dir, "id", "product")),
		Version: readHex16(filepath.Join(dir, "id", "version")),
	}
	info.Keys, _ = parseBitmap(readTrim(filepath.Join(dir, "capabilities", "key")))
	return info
}

// stableID survives replugging into the same port and slot reuse.
func (i deviceInfo) stableID(fallback string) input.ID {
	ids := fmt.Sprintf("%04x:%04x:%04x:%04x", i.Bus, i.Vendor, i.Product, i.Version)
	switch {
	case i.Phys != "":
		return input.ID(ids + "@" + i.Phys)
	case i.Uniq != "":
		return input.ID(ids + "#" + i.Uniq)
	case i.Vendor != 0 || i.Product != 0:
		return input.ID(ids + "/" + fallback)
	default:
		return input.ID(fallback)
	}
}

// isGamepad reports whether the key capability bitmap has BTN_GAMEPAD.
func (i deviceInfo) isGamepad() bool {
	return testBit(i.Keys, btnGamepad)
}

// parseBitmap reads a sysfs capability bitmap: space-separated hex words,
// most significant first, each bits.UintSize wide. The result is least
// significant word first.
func parseBitmap(s string) ([]uint64, error) {
	fields := strings.Fields(s)
	out := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, bits.UintSize)
		if err != nil {
			return nil, fmt.Errorf("parse bitmap word %q: %w", f, err)
		}
		out[len(fields)-1-i] = v
	}
	return out, nil
}

func testBit(words []uint64, bit int) bool {
	w := bit / bits.UintSize
	if w >= len(words) {
		return false
	}
	return words[w]&(1<<(uint(bit)%bits.UintSize)) != 0
}

func readTrim(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func readHex16(path string) uint16 {
	v, err := strconv.ParseUint(readTrim(path), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}
