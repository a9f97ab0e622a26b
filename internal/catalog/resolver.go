package catalog

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/platform"
)

// Resolver detects the host platform and looks up its artifact.
type Resolver struct {
	catalog  *Catalog
	detector platform.Detector
}

// NewResolver creates a resolver over c using d for host detection.
func NewResolver(c *Catalog, d platform.Detector) *Resolver {
	return &Resolver{catalog: c, detector: d}
}

// Resolve returns the artifact for the detected platform together with the
// detection result. It has no side effects.
func (r *Resolver) Resolve(ctx context.Context) (Artifact, *platform.Info, error) {
	if r.catalog == nil {
		return Artifact{}, nil, fmt.Errorf("catalog is required")
	}
	if r.detector == nil {
		return Artifact{}, nil, fmt.Errorf("platform detector is required")
	}

	info, err := r.detector.Detect(ctx)
	if err != nil {
		return Artifact{}, nil, fmt.Errorf("detect platform: %w", err)
	}

	art, err := r.catalog.Resolve(info.Key())
	if err != nil {
		return Artifact{}, info, err
	}
	return art, info, nil
}
