package schema

import "sync"

// MemoryWorkspace is an in-memory [Workspace] implementation.
type MemoryWorkspace struct {
	sync.RWMutex
	activeScene string
	outputPath  string
}

// NewMemoryWorkspace returns a pointer to a new [MemoryWorkspace].
func NewMemoryWorkspace(activeScene string, outputPath string) *MemoryWorkspace {
	return &MemoryWorkspace{
		activeScene: activeScene,
		outputPath:  outputPath,
	}
}

// ActiveScene returns the currently active scene.
func (w *MemoryWorkspace) ActiveScene() string {
	w.RLock()
	defer w.RUnlock()

	return w.activeScene
}

// SetActiveScene sets the currently active scene.
func (w *MemoryWorkspace) SetActiveScene(scene string) {
	w.Lock()
	defer w.Unlock()

	w.activeScene = scene
}

// OutputPath returns the effective output path.
func (w *MemoryWorkspace) OutputPath() string {
	w.RLock()
	defer w.RUnlock()

	return w.outputPath
}

// SetOutputPath sets the effective output path.
func (w *MemoryWorkspace) SetOutputPath(path string) {
	w.Lock()
	defer w.Unlock()

	w.outputPath = path
}
