package espalier_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gardenfork/espalier"
	"github.com/gardenfork/espalier/pkg/adapters/memory"
	"github.com/gardenfork/espalier/pkg/domain"
)

// ExampleNew_memory walks a run from creation to completion against an
// in-memory store. Real deployments use the file store so independent agent
// processes can share one run directory.
func ExampleNew_memory() {
	coord := espalier.New(memory.NewStore())
	ctx := context.Background()

	// 1. Create a run for a plan document. The ID is opaque; the plan
	// reference is derived from the path.
	run, err := coord.CreateRun(ctx, "plans/001-rollout.md", domain.StateReady)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("plan:", run.PlanRef())

	// 2. Claim it before working. The claim is a time-bounded lease.
	if _, err := coord.Claim(ctx, run.ID, "agent-a", time.Hour); err != nil {
		log.Fatal(err)
	}

	// 3. Move through the lifecycle. Each transition is validated against
	// the state machine and appended to the run's transition log.
	for _, to := range []domain.State{
		domain.StateActiveExecuting,
		domain.StateVerifyingTesting,
		domain.StateVerifyingPassed,
		domain.StateComplete,
	} {
		run, err = coord.Transition(ctx, run.ID, to, "agent-a", "")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("now:", run.State)
	}

	// Output:
	// plan: rollout
	// now: active/executing
	// now: verifying/testing
	// now: verifying/passed
	// now: complete
}

// ExampleCoordinator_Transition shows how an invalid transition is rejected
// with the valid alternatives instead of being coerced.
func ExampleCoordinator_Transition() {
	coord := espalier.New(memory.NewStore())
	ctx := context.Background()

	run, err := coord.CreateRun(ctx, "plans/cleanup.md", domain.StateProposed)
	if err != nil {
		log.Fatal(err)
	}

	// Pre-execution runs can only begin executing; jumping straight to
	// complete is refused.
	_, err = coord.Transition(ctx, run.ID, domain.StateComplete, "agent-a", "")
	fmt.Println(err)

	// Output:
	// invalid transition proposed -> complete (valid targets: [active/executing])
}
