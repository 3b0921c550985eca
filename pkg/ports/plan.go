package ports

import (
	"context"

	"github.com/gardenfork/espalier/pkg/domain"
)

// PlanSource is the boundary to the external plan documents. Espalier never
// parses plan content itself; it only asks the source for the live set of
// declared checks when deriving a verification snapshot.
type PlanSource interface {
	// DeclaredChecks returns the checks currently declared by the plan at
	// the given path. Checks that disappear from the plan vanish from
	// future snapshots while their historical events remain in the log.
	DeclaredChecks(ctx context.Context, planPath string) ([]domain.Check, error)
}
