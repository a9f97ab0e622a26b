// Package catalog holds the release artifacts a package descriptor declares
// for one version and resolves the artifact for a platform.
//
// A Catalog is a total mapping from platform.Key to Artifact over
// platform.Supported(): construction fails when a supported platform has no
// entry, when a platform is declared twice, or when two platforms share a
// download URL without one of them being marked as an alias. Resolve is a
// pure lookup; a miss is an UnsupportedPlatformError and callers must not
// fall back to another platform's artifact.
//
// # Usage
//
//	cat, err := catalog.New(catalog.Meta{Name: "pass-cli", Version: "1.0.0"}, artifacts)
//	if err != nil {
//	    return err
//	}
//
//	art, err := cat.Resolve(platform.ParseKey("macos", "arm64"))
//	var unsupported *catalog.UnsupportedPlatformError
//	if errors.As(err, &unsupported) {
//	    // stop: nothing is downloaded for an unsupported platform
//	}
package catalog
