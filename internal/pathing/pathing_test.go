package pathing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var errMkdir = errors.New("mkdir failed")

// fakeOS is a fake implementation of osProvider, recording all MkdirAll calls.
type fakeOS struct {
	mkdirCalls []string
	mkdirErr   error
}

func (fo *fakeOS) MkdirAll(path string, _ os.FileMode) error {
	fo.mkdirCalls = append(fo.mkdirCalls, path)

	return fo.mkdirErr
}

// fakeUnix is a fake implementation of unixStatfsProvider, reporting a fixed
// free space figure.
type fakeUnix struct {
	bavail uint64
	bsize  int64
	err    error
}

func (fu *fakeUnix) Statfs(_ string, buf *unix.Statfs_t) error {
	if fu.err != nil {
		return fu.err
	}

	buf.Bavail = fu.bavail
	buf.Bsize = fu.bsize

	return nil
}

// TestImagePath_Success tests single image output path construction.
func TestImagePath_Success(t *testing.T) {
	t.Parallel()

	p := NewHandler("/renders", &fakeOS{}, &fakeUnix{})

	assert.Equal(t, filepath.Join("/renders", "sceneA_cam1"), p.ImagePath("sceneA", "cam1"))
	assert.Equal(t, "/renders", p.OutputRoot())
}

// TestSequenceDir_Success tests sequence output directory establishment.
func TestSequenceDir_Success(t *testing.T) {
	t.Parallel()

	fo := &fakeOS{}
	p := NewHandler("/renders", fo, &fakeUnix{})

	dir, err := p.SequenceDir("sceneA", "cam1")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/renders", "sceneA_cam1"), dir)
	assert.Equal(t, []string{filepath.Join("/renders", "sceneA_cam1")}, fo.mkdirCalls)
}

// TestSequenceDir_Error tests failing sequence directory establishment.
func TestSequenceDir_Error(t *testing.T) {
	t.Parallel()

	p := NewHandler("/renders", &fakeOS{mkdirErr: errMkdir}, &fakeUnix{})

	_, err := p.SequenceDir("sceneA", "cam1")
	require.ErrorIs(t, err, errMkdir)
}

// TestManifestPath_Success tests the manifest path construction.
func TestManifestPath_Success(t *testing.T) {
	t.Parallel()

	p := NewHandler("/renders", &fakeOS{}, &fakeUnix{})

	assert.Equal(t, filepath.Join("/renders", ManifestName), p.ManifestPath())
}

// TestEnsureCapacity_Success tests the free space preflight over a volume
// with enough space.
func TestEnsureCapacity_Success(t *testing.T) {
	t.Parallel()

	fo := &fakeOS{}
	p := NewHandler("/renders", fo, &fakeUnix{bavail: 1 << 20, bsize: 4096})

	require.NoError(t, p.EnsureCapacity())
	assert.Equal(t, []string{"/renders"}, fo.mkdirCalls)
}

// TestEnsureCapacity_NoFreeSpace tests the preflight over a full volume.
func TestEnsureCapacity_NoFreeSpace(t *testing.T) {
	t.Parallel()

	p := NewHandler("/renders", &fakeOS{}, &fakeUnix{bavail: 1, bsize: 4096})

	require.ErrorIs(t, p.EnsureCapacity(), ErrNoFreeSpace)
}

// TestEnsureCapacity_NegativeBlockSize tests the preflight over a malformed
// statfs response.
func TestEnsureCapacity_NegativeBlockSize(t *testing.T) {
	t.Parallel()

	p := NewHandler("/renders", &fakeOS{}, &fakeUnix{bavail: 1 << 30, bsize: -1})

	require.ErrorIs(t, p.EnsureCapacity(), ErrNoFreeSpace)
}

// TestEnsureCapacity_Errors tests the preflight over failing syscalls.
func TestEnsureCapacity_Errors(t *testing.T) {
	t.Parallel()

	p := NewHandler("/renders", &fakeOS{mkdirErr: errMkdir}, &fakeUnix{})
	require.ErrorIs(t, p.EnsureCapacity(), errMkdir)

	p = NewHandler("/renders", &fakeOS{}, &fakeUnix{err: unix.EIO})
	require.ErrorIs(t, p.EnsureCapacity(), unix.EIO)
}
