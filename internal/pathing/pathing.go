// Package pathing implements output path construction for render jobs and a
// free-space preflight for the output volume.
package pathing

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const (
	// MinFreeSpace is the least free space the output volume must report
	// for a render run to start.
	MinFreeSpace = 64 << 20

	// ManifestName is the filename of the per-run output manifest, placed
	// in the output root.
	ManifestName = "renderq-manifest.txt"

	sequenceDirPerms = 0o755
)

// osProvider defines OS methods needed for establishing output paths.
type osProvider interface {
	MkdirAll(path string, perm os.FileMode) error
}

// unixStatfsProvider defines Statfs methods needed for free space checking.
type unixStatfsProvider interface {
	Statfs(path string, buf *unix.Statfs_t) error
}

// Handler is the principal implementation of an output pathing [Handler].
type Handler struct {
	osHandler   osProvider
	unixHandler unixStatfsProvider
	outputRoot  string
}

// NewHandler returns a pointer to a new pathing [Handler].
func NewHandler(outputRoot string, osHandler osProvider, unixHandler unixStatfsProvider) *Handler {
	return &Handler{
		osHandler:   osHandler,
		unixHandler: unixHandler,
		outputRoot:  outputRoot,
	}
}

// OutputRoot returns the configured output root directory.
func (p *Handler) OutputRoot() string {
	return p.outputRoot
}

// ImagePath returns the output path for a single image render of the given
// scene/camera pairing.
func (p *Handler) ImagePath(scene string, camera string) string {
	return filepath.Join(p.outputRoot, fmt.Sprintf("%s_%s", scene, camera))
}

// SequenceDir establishes and returns the output directory for a sequence
// render of the given scene/camera pairing.
func (p *Handler) SequenceDir(scene string, camera string) (string, error) {
	dir := filepath.Join(p.outputRoot, fmt.Sprintf("%s_%s", scene, camera))

	if err := p.osHandler.MkdirAll(dir, sequenceDirPerms); err != nil {
		return "", fmt.Errorf("(pathing) failed to establish sequence dir: %w", err)
	}

	return dir, nil
}

// ManifestPath returns the path of the per-run output manifest.
func (p *Handler) ManifestPath() string {
	return filepath.Join(p.outputRoot, ManifestName)
}

// EnsureCapacity checks that the output volume reports at least
// [MinFreeSpace] of free space and that the output root exists.
func (p *Handler) EnsureCapacity() error {
	if err := p.osHandler.MkdirAll(p.outputRoot, sequenceDirPerms); err != nil {
		return fmt.Errorf("(pathing) failed to establish output root: %w", err)
	}

	var stat unix.Statfs_t
	if err := p.unixHandler.Statfs(p.outputRoot, &stat); err != nil {
		return fmt.Errorf("(pathing) failed to statfs output root: %w", err)
	}

	freeSpace := stat.Bavail * handleSize(stat.Bsize)
	if freeSpace < MinFreeSpace {
		return fmt.Errorf("%w: %d bytes free", ErrNoFreeSpace, freeSpace)
	}

	return nil
}

// handleSize converts a statfs block size for multiplication, guarding
// against negative values on platforms where it is signed.
func handleSize(size int64) uint64 {
	if size < 0 {
		return 0
	}

	return uint64(size)
}
