package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run is the persisted unit of trackable work. One file per run, keyed by
// the immutable ID; every other field may change over the run's life.
type Run struct {
	ID      string    `json:"id"`
	State   State     `json:"state"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`

	// PlanPath points at the external plan document. The human-facing plan
	// reference is derived from it at read time (see PlanRef), never stored,
	// so renaming plan files cannot desynchronize identity.
	PlanPath string `json:"plan_path"`

	// Transitions is the append-only lifecycle log. The final entry's To
	// always equals State.
	Transitions []TransitionRecord `json:"transitions"`

	// Claim fields. All three are set together and cleared together.
	ClaimedBy    string     `json:"claimed_by,omitempty"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	ClaimExpires *time.Time `json:"claim_expires,omitempty"`

	// FilesTouched is the set of paths this run's work modifies, used for
	// soft conflict detection between concurrently active runs.
	FilesTouched []string `json:"files_touched,omitempty"`

	// DependsOn lists run IDs that must reach complete before this run is
	// unblocked.
	DependsOn []string `json:"depends_on,omitempty"`

	// Verification holds the append-only event log. Never overwritten, only
	// appended to.
	Verification VerificationLog `json:"verification"`

	// Version and ReadAt are populated only by the versioned load path and
	// never persisted. Version is the store file's modification timestamp at
	// read time and acts as the optimistic-lock token.
	Version time.Time `json:"-"`
	ReadAt  time.Time `json:"-"`
}

// NewRun creates a run in the given pre-execution state with a fresh opaque
// identity. The ID is generated once and never derived from naming.
func NewRun(planPath string, initial State) *Run {
	now := time.Now().UTC()
	if initial == "" {
		initial = StateProposed
	}
	return &Run{
		ID:       uuid.NewString(),
		State:    initial,
		Created:  now,
		Updated:  now,
		PlanPath: planPath,
	}
}

// PlanRef derives the human-facing plan reference from the current plan
// path: the file name without directory, extension, or a leading numeric
// ordering prefix ("012-rollout.md" -> "rollout"). Pure function of the
// path; callers must not cache it on the record.
func (r *Run) PlanRef() string {
	base := filepath.Base(r.PlanPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.IndexAny(base, "-_"); i > 0 {
		prefix := base[:i]
		if strings.Trim(prefix, "0123456789") == "" {
			base = base[i+1:]
		}
	}
	return base
}

// Claimed reports whether the run currently carries an unexpired claim.
func (r *Run) Claimed(now time.Time) bool {
	if r.ClaimedBy == "" {
		return false
	}
	return r.ClaimExpires == nil || now.Before(*r.ClaimExpires)
}

// ClearClaim unconditionally removes the lease fields. Garbage collection
// must be able to clear stuck claims, so there is no ownership check here.
func (r *Run) ClearClaim() {
	r.ClaimedBy = ""
	r.ClaimedAt = nil
	r.ClaimExpires = nil
}
