package ports

import (
	"context"

	"github.com/gardenfork/espalier/pkg/domain"
)

// RunStore persists one record per run, keyed by the immutable run ID.
//
// The plain Load/Save pair has last-writer-wins semantics. The versioned
// pair implements optimistic concurrency: LoadVersioned attaches a version
// token to the returned run, and SaveVersioned refuses the write when the
// stored record changed since that token was captured (returning a
// concurrency-class error, see domain.StaleWriteError).
type RunStore interface {
	// Load retrieves a run without a version token.
	// Returns domain.ErrRunNotFound if the ID has no record.
	Load(ctx context.Context, id string) (*domain.Run, error)

	// Save persists the run unconditionally (last writer wins). Transient
	// version fields are never serialized.
	Save(ctx context.Context, run *domain.Run) error

	// LoadVersioned retrieves a run and populates its Version and ReadAt
	// fields. Fails with a domain.StaleReadError when a concurrent writer
	// interleaved with the read.
	LoadVersioned(ctx context.Context, id string) (*domain.Run, error)

	// SaveVersioned persists the run only if the store still matches the
	// run's version token, and refreshes the token on success.
	SaveVersioned(ctx context.Context, run *domain.Run) error

	// List returns every run in the store.
	List(ctx context.Context) ([]*domain.Run, error)

	// Delete removes the run record. Removing a missing run is not an error.
	Delete(ctx context.Context, id string) error
}
