package backend

import (
	"context"
	"fmt"

	"renderq/internal/schema"
)

// Target is the principal implementation of a [schema.RenderTarget]. It is
// meant to be passed by value.
type Target struct {
	Scene      string
	Camera     string
	FrameStart int
	FrameEnd   int
}

// GetScene returns the scene identifier of the [Target].
func (t Target) GetScene() string { return t.Scene }

// GetCamera returns the camera identifier of the [Target].
func (t Target) GetCamera() string { return t.Camera }

// GetFrameStart returns the first frame of the [Target] range.
func (t Target) GetFrameStart() int { return t.FrameStart }

// GetFrameEnd returns the last frame of the [Target] range.
func (t Target) GetFrameEnd() int { return t.FrameEnd }

// StaticProvider is a [schema.SceneProvider] over a fixed set of configured
// scene/camera pairings.
type StaticProvider struct {
	units []schema.SceneUnit
}

// NewStaticProvider returns a pointer to a new [StaticProvider].
func NewStaticProvider(units []schema.SceneUnit) *StaticProvider {
	return &StaticProvider{
		units: units,
	}
}

// Enumerate lists all configured scene/camera pairings.
func (p *StaticProvider) Enumerate(ctx context.Context) ([]schema.SceneUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("(backend-enum) %w", err)
	}

	units := make([]schema.SceneUnit, len(p.units))
	copy(units, p.units)

	return units, nil
}

// Resolve returns the [Target] for a configured scene/camera pairing.
func (p *StaticProvider) Resolve(scene string, camera string) (schema.RenderTarget, error) {
	for _, unit := range p.units {
		if unit.Scene == scene && unit.Camera == camera {
			return Target{
				Scene:      unit.Scene,
				Camera:     unit.Camera,
				FrameStart: unit.FrameStart,
				FrameEnd:   unit.FrameEnd,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s/%s", ErrTargetNotFound, scene, camera)
}
