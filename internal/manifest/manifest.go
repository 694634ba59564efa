// Package manifest implements the per-run output manifest: one record per
// finished render unit, carrying a BLAKE3 checksum of the produced file where
// one exists on disk.
package manifest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

const manifestPerms = 0o644

// osProvider defines OS methods needed for manifest hashing and writing.
type osProvider interface {
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Stat(name string) (os.FileInfo, error)
}

// Record is one finished render unit. It is meant to be passed by value.
type Record struct {
	JobID      uuid.UUID
	Scene      string
	Camera     string
	OutputPath string
	Elapsed    time.Duration
	Checksum   string
	FinishedAt time.Time
}

// Handler is the principal implementation of a run manifest [Handler].
type Handler struct {
	sync.Mutex

	osHandler osProvider
	records   []Record
}

// NewHandler returns a pointer to a new manifest [Handler].
func NewHandler(osHandler osProvider) *Handler {
	return &Handler{
		osHandler: osHandler,
	}
}

// Reset drops all records. Called at the start of every run.
func (m *Handler) Reset() {
	m.Lock()
	defer m.Unlock()

	m.records = nil
}

// Record appends one finished unit to the manifest. The output path is hashed
// when it points to a regular file; backends rendering elsewhere (or into a
// directory) produce a record without a checksum. An error is only returned
// when reading an existing output file fails.
func (m *Handler) Record(record Record) error {
	checksum, err := m.hashOutput(record.OutputPath)
	if err != nil {
		return fmt.Errorf("(manifest) %w", err)
	}
	record.Checksum = checksum

	m.Lock()
	defer m.Unlock()

	m.records = append(m.records, record)

	return nil
}

// Records returns a copy of all recorded units.
func (m *Handler) Records() []Record {
	m.Lock()
	defer m.Unlock()

	records := make([]Record, len(m.records))
	copy(records, m.records)

	return records
}

// Flush writes all records to the given path, one line per finished unit.
// A manifest without records writes nothing and removes no prior file.
func (m *Handler) Flush(path string) error {
	m.Lock()
	defer m.Unlock()

	if len(m.records) == 0 {
		return nil
	}

	file, err := m.osHandler.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, manifestPerms)
	if err != nil {
		return fmt.Errorf("(manifest) failed to open: %w", err)
	}
	defer file.Close()

	for _, record := range m.records {
		checksum := record.Checksum
		if checksum == "" {
			checksum = "-"
		}

		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\n",
			record.FinishedAt.Format(time.RFC3339),
			record.JobID,
			record.Scene,
			record.Camera,
			record.OutputPath,
			checksum,
		)

		if _, err := file.WriteString(line); err != nil {
			return fmt.Errorf("(manifest) failed to write: %w", err)
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("(manifest) failed to sync: %w", err)
	}

	return nil
}

// hashOutput returns the BLAKE3 checksum of the file at path, or an empty
// checksum when no regular file exists there.
func (m *Handler) hashOutput(path string) (string, error) {
	info, err := m.osHandler.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}

		return "", fmt.Errorf("failed to stat output: %w", err)
	}

	if info.IsDir() {
		return "", nil
	}

	file, err := m.osHandler.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open output: %w", err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash output: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
