// Package file implements the shared on-disk run store. One JSON file per
// run, keyed by the immutable run ID. Multiple independent processes read
// and write the same directory with no central server; the versioned
// load/save pair provides optimistic concurrency using the store file's
// modification timestamp as the version token.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gardenfork/espalier/pkg/domain"
)

// Store implements ports.RunStore on the local filesystem.
type Store struct {
	BasePath string
}

// NewStore creates a run store rooted at basePath. If basePath is empty it
// defaults to ".espalier/runs".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".espalier", "runs")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.BasePath, id+".json")
}

// Load reads a run without a version token (last-writer-wins call sites).
func (s *Store) Load(ctx context.Context, id string) (*domain.Run, error) {
	if id == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %q: %w", id, domain.ErrRunNotFound)
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %q: %w", id, err)
	}
	return &run, nil
}

// Save persists the run unconditionally. The transient Version and ReadAt
// fields are excluded from serialization; they are derived, not persisted.
func (s *Store) Save(ctx context.Context, run *domain.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure run directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := os.WriteFile(s.path(run.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	return nil
}

// LoadVersioned reads a run and captures the file's modification timestamp
// as the version token. The timestamp is captured before and after the
// read; a mismatch means a concurrent writer interleaved and the parsed
// content may be torn, so the load fails with a stale-read error instead of
// returning unreliable data.
func (s *Store) LoadVersioned(ctx context.Context, id string) (*domain.Run, error) {
	path := s.path(id)

	before, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %q: %w", id, domain.ErrRunNotFound)
		}
		return nil, fmt.Errorf("failed to stat run file: %w", err)
	}

	run, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	after, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to re-stat run file: %w", err)
	}
	if !before.ModTime().Equal(after.ModTime()) {
		return nil, &domain.StaleReadError{Path: path}
	}

	run.Version = before.ModTime()
	run.ReadAt = time.Now().UTC()
	return run, nil
}

// SaveVersioned writes the run only if the store file still carries the
// run's version token. The token's resolution is bounded by the
// filesystem's timestamp granularity: two writes inside one granularity
// window are indistinguishable and the compare-and-swap degrades to
// last-writer-wins there. That bound is accepted and surfaced in the
// stale-write error text, not hidden.
func (s *Store) SaveVersioned(ctx context.Context, run *domain.Run) error {
	if run.Version.IsZero() {
		return &domain.MissingVersionError{RunID: run.ID}
	}

	path := s.path(run.ID)
	current, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("run %q: %w", run.ID, domain.ErrRunNotFound)
		}
		return fmt.Errorf("failed to stat run file: %w", err)
	}

	if !current.ModTime().Equal(run.Version) {
		return &domain.StaleWriteError{
			Path:     path,
			Expected: run.Version,
			Actual:   current.ModTime(),
		}
	}

	if err := s.Save(ctx, run); err != nil {
		return err
	}

	written, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat run file after write: %w", err)
	}
	run.Version = written.ModTime()
	return nil
}

// List loads every run in the store. Unreadable or malformed files are
// skipped rather than failing the whole listing; sweep and conflict
// queries must keep working when one record is corrupt.
func (s *Store) List(ctx context.Context) ([]*domain.Run, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.Run{}, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*domain.Run, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".json")]
		run, err := s.Load(ctx, id)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Delete removes the run file. Removing a missing run is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run file: %w", err)
	}
	return nil
}
