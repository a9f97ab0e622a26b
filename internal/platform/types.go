// Package platform detects the host operating system and CPU architecture
// and names the (OS, architecture) pairs that release artifacts are built for.
//
// OS and architecture come from the Go runtime; on Linux the distribution is
// read through gopsutil for diagnostics only. Values the package does not
// recognise are passed through unchanged so that a catalog lookup, not the
// detector, decides whether a platform is supported.
package platform

import (
	"context"
	"fmt"
)

// Operating systems release artifacts are built for.
const (
	OSDarwin = "darwin"
	OSLinux  = "linux"
)

// Architectures release artifacts are built for.
const (
	ArchAMD64 = "amd64"
	ArchARM64 = "arm64"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Key identifies a release platform: one operating system and one CPU
// architecture, both in release-naming form ("darwin", "arm64").
type Key struct {
	OS   string
	Arch string
}

// String returns the key as "os/arch".
func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.OS, k.Arch)
}

// Supported returns the platform matrix release artifacts are published for.
func Supported() []Key {
	return []Key{
		{OS: OSDarwin, Arch: ArchAMD64},
		{OS: OSDarwin, Arch: ArchARM64},
		{OS: OSLinux, Arch: ArchAMD64},
		{OS: OSLinux, Arch: ArchARM64},
	}
}

// ParseKey builds a Key from user or runtime supplied names, folding known
// aliases ("macos", "x86_64", "aarch64", ...) onto release names.
// Unknown names are kept verbatim.
func ParseKey(osName, arch string) Key {
	return Key{OS: normalizeOS(osName), Arch: normalizeArch(arch)}
}

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64" when recognised, otherwise raw
	ArchRaw  string // original GOARCH
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Family   string // canonical family (e.g., "debian", "rhel", "arch")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Key returns the release platform key for this host.
func (i *Info) Key() Key {
	return Key{OS: i.OS, Arch: i.Arch}
}

// Distro contains Linux distribution information.
// This is nil on non-Linux platforms.
type Distro struct {
	ID      string // distro ID (e.g., "ubuntu")
	Family  string // canonical family (e.g., "debian")
	Version string // version (e.g., "22.04")
}

// GetDistro returns distro information if this is a Linux platform.
// Returns nil for non-Linux platforms or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != OSLinux || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == OSLinux
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == OSDarwin && i.Arch == ArchARM64
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector reports a fixed platform. It backs the --os/--arch
// overrides and tests.
type StaticDetector struct {
	Info Info
}

// Detect returns a copy of the configured platform.
func (s *StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info := s.Info
	return &info, nil
}
