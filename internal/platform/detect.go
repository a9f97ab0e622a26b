package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
)

// RealDetector reports the host the installer runs on.
type RealDetector struct {
	goos   string
	goarch string
}

// NewDetector returns a detector for the running host.
func NewDetector() Detector {
	return &RealDetector{goos: runtime.GOOS, goarch: runtime.GOARCH}
}

// Detect fills OS and architecture from the Go runtime and, on Linux, the
// distribution from gopsutil. Only cancellation makes it fail: a distro
// lookup error leaves the distro fields empty, and an unknown architecture
// is kept raw for the catalog to reject.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info := &Info{
		OS:      normalizeOS(d.goos),
		Arch:    normalizeArch(d.goarch),
		ArchRaw: d.goarch,
	}
	if !info.IsLinux() {
		return info, nil
	}

	if err := fillDistro(ctx, info); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		logger.DebugKV(ctx, "distribution not detected", "error", err)
	}

	return info, nil
}

// fillDistro sets the distribution fields of info.
func fillDistro(ctx context.Context, info *Info) error {
	id, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		return err
	}

	id = normalizePlatform(id)
	if id == "" {
		return nil
	}
	info.Platform = id
	info.Family = mapFamily(family)
	info.Version = normalizePlatform(version)

	logger.DebugKV(ctx, "distribution detected", "id", info.Platform, "family", info.Family, "version", info.Version)
	return nil
}
