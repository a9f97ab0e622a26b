package platform

import (
	"strings"
)

// familyMap maps distribution names to their canonical family names.
// This is used to normalize variations of family strings from gopsutil.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian, // gopsutil might return ubuntu as family
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// archAliases folds runtime and marketing names onto release architecture names.
var archAliases = map[string]string{
	"amd64":   ArchAMD64,
	"x86_64":  ArchAMD64,
	"x64":     ArchAMD64,
	"intel":   ArchAMD64,
	"arm64":   ArchARM64,
	"aarch64": ArchARM64,
	"arm":     ArchARM64, // Homebrew's on_arm means Apple Silicon / arm64
}

// osAliases folds user-facing OS names onto release OS names.
var osAliases = map[string]string{
	"darwin": OSDarwin,
	"macos":  OSDarwin,
	"osx":    OSDarwin,
	"mac":    OSDarwin,
	"linux":  OSLinux,
}

// normalizeArch returns the release name for arch, or arch lower-cased when
// it is not a known alias.
func normalizeArch(arch string) string {
	a := strings.ToLower(strings.TrimSpace(arch))
	if canonical, ok := archAliases[a]; ok {
		return canonical
	}
	return a
}

// normalizeOS returns the release name for osName, or osName lower-cased when
// it is not a known alias.
func normalizeOS(osName string) string {
	o := strings.ToLower(strings.TrimSpace(osName))
	if canonical, ok := osAliases[o]; ok {
		return canonical
	}
	return o
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}

	return FamilyUnknown
}
