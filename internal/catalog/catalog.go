package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/platform"
)

var (
	// ErrInvalidCatalog is wrapped by every construction failure.
	ErrInvalidCatalog = errors.New("invalid artifact catalog")
)

// Catalog maps every supported platform to exactly one Artifact.
type Catalog struct {
	meta    Meta
	entries map[platform.Key]Artifact
}

// New validates artifacts and builds a Catalog. Artifact Name and Version
// default to the values in meta.
func New(meta Meta, artifacts []Artifact) (*Catalog, error) {
	if meta.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCatalog)
	}
	if meta.Version == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidCatalog)
	}

	entries := make(map[platform.Key]Artifact, len(artifacts))
	owners := make(map[string]platform.Key, len(artifacts))

	for _, a := range artifacts {
		if a.Name == "" {
			a.Name = meta.Name
		}
		if a.Version == "" {
			a.Version = meta.Version
		}
		if a.Version != meta.Version {
			return nil, fmt.Errorf("%w: artifact %s has version %s, catalog is %s",
				ErrInvalidCatalog, a.Key(), a.Version, meta.Version)
		}
		if a.OS == "" || a.Arch == "" {
			return nil, fmt.Errorf("%w: artifact without os/arch (url %q)", ErrInvalidCatalog, a.URL)
		}
		if a.URL == "" {
			return nil, fmt.Errorf("%w: artifact %s has no url", ErrInvalidCatalog, a.Key())
		}

		key := a.Key()
		if _, dup := entries[key]; dup {
			return nil, fmt.Errorf("%w: platform %s declared twice", ErrInvalidCatalog, key)
		}
		// A URL has at most one non-alias owner; aliases may point at it.
		if !a.Alias {
			if other, owned := owners[a.URL]; owned {
				return nil, fmt.Errorf("%w: %s and %s share %s without an alias",
					ErrInvalidCatalog, other, key, a.URL)
			}
			owners[a.URL] = key
		}

		entries[key] = a
	}

	var missing []string
	for _, k := range platform.Supported() {
		if _, ok := entries[k]; !ok {
			missing = append(missing, k.String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: no artifact for %s", ErrInvalidCatalog, strings.Join(missing, ", "))
	}

	return &Catalog{meta: meta, entries: entries}, nil
}

// Meta returns the package metadata.
func (c *Catalog) Meta() Meta {
	return c.meta
}

// Version returns the declared release version.
func (c *Catalog) Version() string {
	return c.meta.Version
}

// Resolve returns the artifact for key. A miss is an
// *UnsupportedPlatformError.
func (c *Catalog) Resolve(key platform.Key) (Artifact, error) {
	a, ok := c.entries[key]
	if !ok {
		return Artifact{}, &UnsupportedPlatformError{
			Key:       key,
			Name:      c.meta.Name,
			Version:   c.meta.Version,
			Supported: c.Platforms(),
		}
	}
	return a, nil
}

// Platforms returns the catalog's platforms in a stable order.
func (c *Catalog) Platforms() []platform.Key {
	keys := make([]platform.Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].OS != keys[j].OS {
			return keys[i].OS < keys[j].OS
		}
		return keys[i].Arch < keys[j].Arch
	})
	return keys
}

// Artifacts returns every artifact ordered by platform.
func (c *Catalog) Artifacts() []Artifact {
	keys := c.Platforms()
	out := make([]Artifact, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.entries[k])
	}
	return out
}
