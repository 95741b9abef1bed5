package ga

import (
	"context"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// OSName describes the host OS, e.g. "ubuntu 22.04" or "darwin 14.4".
func OSName(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info == nil {
		return runtime.GOOS
	}
	name := strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	if name == "" {
		return info.OS
	}
	return name
}
