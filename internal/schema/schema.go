// Package schema provides the principal schematics for all other packages. It
// defines the scene/camera provider and render backend interfaces, the backend
// lifecycle event types and provides implementations for handling operating
// system calls. The package serves as a foundational layer for the scheduling
// core throughout the codebase.
package schema

import "context"

// SceneUnit is one renderable scene and camera pairing, as discovered by a
// [SceneProvider]. It is meant to be passed by value.
type SceneUnit struct {
	Scene      string
	Camera     string
	FrameStart int
	FrameEnd   int
}

// RenderTarget describes a resolved scene/camera pairing that a
// [RenderBackend] can actually render. The handles behind it are owned by the
// resolving [SceneProvider].
type RenderTarget interface {
	GetScene() string
	GetCamera() string
	GetFrameStart() int
	GetFrameEnd() int
}

// SceneProvider describes a source of renderable scene/camera pairings.
type SceneProvider interface {
	// Enumerate lists all renderable scene/camera pairings. It may be slow
	// and is expected to respect a mid-flight context cancellation.
	Enumerate(ctx context.Context) ([]SceneUnit, error)

	// Resolve turns a scene/camera pairing into a concrete [RenderTarget].
	Resolve(scene string, camera string) (RenderTarget, error)
}

// RenderBackend describes the external component performing actual rendering
// work. All methods return immediately; any outcome is reported exclusively
// through lifecycle events on an [EventSource].
type RenderBackend interface {
	// StartImage requests rendering of a single image to outputPath.
	StartImage(target RenderTarget, outputPath string) error

	// StartSequence requests rendering of a frame sequence into outputDir.
	// A backend keeps its own continuation point for a sequence, so a
	// repeated request continues after the last completed frame.
	StartSequence(target RenderTarget, outputDir string) error

	// Cancel aborts the in-flight unit, if any. It is safe to call at any
	// time, including repeatedly.
	Cancel()
}

// Workspace describes the mutable host context a render run operates in: the
// active scene and the effective output path. A scheduler snapshots both
// before a run and restores them on every exit path.
type Workspace interface {
	ActiveScene() string
	SetActiveScene(scene string)
	OutputPath() string
	SetOutputPath(path string)
}
