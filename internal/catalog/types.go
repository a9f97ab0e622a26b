package catalog

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/platform"
)

// ArchiveExtension is the extension every release archive carries.
const ArchiveExtension = ".tar.gz"

// DefaultURLTemplate is where pass-cli publishes release archives.
// {version} and {file} are expanded by ExpandURL.
const DefaultURLTemplate = "https://github.com/yourusername/pass-cli/releases/download/v{version}/{file}"

// Meta describes the packaged program.
type Meta struct {
	Name        string
	Description string
	Homepage    string
	License     string
	Version     string
}

// Artifact is one platform-specific release archive.
type Artifact struct {
	Name    string
	Version string
	OS      string
	Arch    string
	URL     string
	// SHA256 is the expected hex digest of the archive.
	SHA256 string
	// SignatureURL points at a detached OpenPGP signature (optional).
	SignatureURL string
	// Alias marks an entry that intentionally reuses another platform's
	// archive (for example a universal macOS build).
	Alias bool
}

// Key returns the platform this artifact was built for.
func (a Artifact) Key() platform.Key {
	return platform.Key{OS: a.OS, Arch: a.Arch}
}

// FileName returns the archive file name taken from the download URL.
func (a Artifact) FileName() string {
	u := a.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}

// ArchiveName returns the conventional archive name
// "<name>_<version>_<os>_<arch>.tar.gz".
func ArchiveName(name, version string, key platform.Key) string {
	return fmt.Sprintf("%s_%s_%s_%s%s", name, version, key.OS, key.Arch, ArchiveExtension)
}

// ExpandURL fills {name}, {version}, {os}, {arch} and {file} in template.
func ExpandURL(template, name, version string, key platform.Key) string {
	r := strings.NewReplacer(
		"{name}", name,
		"{version}", version,
		"{os}", key.OS,
		"{arch}", key.Arch,
		"{file}", ArchiveName(name, version, key),
	)
	return r.Replace(template)
}

// UnsupportedPlatformError is returned when the catalog has no artifact for
// the requested platform.
type UnsupportedPlatformError struct {
	Key       platform.Key
	Name      string
	Version   string
	Supported []platform.Key
}

func (e *UnsupportedPlatformError) Error() string {
	supported := make([]string, 0, len(e.Supported))
	for _, k := range e.Supported {
		supported = append(supported, k.String())
	}
	return fmt.Sprintf("unsupported platform %s for %s %s (supported: %s)",
		e.Key, e.Name, e.Version, strings.Join(supported, ", "))
}
