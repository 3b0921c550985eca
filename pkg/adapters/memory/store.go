// Package memory implements ports.RunStore in memory. Used by tests and by
// embedders that do not need a shared on-disk store. The versioned pair
// keeps the same compare-and-swap contract as the file store, with a
// logical timestamp instead of a file modification time.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gardenfork/espalier/pkg/domain"
)

type entry struct {
	run     *domain.Run
	modTime time.Time
}

// Store is an in-memory run store. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	data  map[string]entry
	clock time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		data:  make(map[string]entry),
		clock: time.Now().UTC(),
	}
}

// tick advances the logical clock. Each write gets a distinct token, which
// is stricter than the file store's granularity bound; the CAS contract is
// the same.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Nanosecond)
	return s.clock
}

// clone round-trips through JSON so stored runs are isolated from caller
// mutations, the same way serialization isolates the file store.
func clone(run *domain.Run) (*domain.Run, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to copy run: %w", err)
	}
	var out domain.Run
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy run: %w", err)
	}
	return &out, nil
}

// Load retrieves a run without a version token.
func (s *Store) Load(ctx context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("run %q: %w", id, domain.ErrRunNotFound)
	}
	return clone(e.run)
}

// Save persists the run unconditionally.
func (s *Store) Save(ctx context.Context, run *domain.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	stored, err := clone(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = entry{run: stored, modTime: s.tick()}
	return nil
}

// LoadVersioned retrieves a run with its version token attached.
func (s *Store) LoadVersioned(ctx context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("run %q: %w", id, domain.ErrRunNotFound)
	}
	run, err := clone(e.run)
	if err != nil {
		return nil, err
	}
	run.Version = e.modTime
	run.ReadAt = time.Now().UTC()
	return run, nil
}

// SaveVersioned persists the run only when the stored token still matches.
func (s *Store) SaveVersioned(ctx context.Context, run *domain.Run) error {
	if run.Version.IsZero() {
		return &domain.MissingVersionError{RunID: run.ID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[run.ID]
	if !ok {
		return fmt.Errorf("run %q: %w", run.ID, domain.ErrRunNotFound)
	}
	if !e.modTime.Equal(run.Version) {
		return &domain.StaleWriteError{
			Path:     run.ID,
			Expected: run.Version,
			Actual:   e.modTime,
		}
	}

	stored, err := clone(run)
	if err != nil {
		return err
	}
	next := s.tick()
	s.data[run.ID] = entry{run: stored, modTime: next}
	run.Version = next
	return nil
}

// List returns every stored run.
func (s *Store) List(ctx context.Context) ([]*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*domain.Run, 0, len(s.data))
	for _, e := range s.data {
		run, err := clone(e.run)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Delete removes the run.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}
