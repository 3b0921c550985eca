package workflow

import (
	"fmt"
	"sort"

	"github.com/gardenfork/espalier/pkg/condition"
)

// GraphError is a single definition-level validation failure.
type GraphError struct {
	Step   string // step id, empty for definition-level problems
	Reason string
}

func (e *GraphError) Error() string {
	if e.Step == "" {
		return e.Reason
	}
	return fmt.Sprintf("step %q: %s", e.Step, e.Reason)
}

// AggregateError collects every validation failure found in one pass, so a
// definition author sees all problems at once.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Validate checks graph integrity: dangling edge targets, unknown initial
// and terminal steps, at most one default edge per step, and parsable
// conditions. Validation runs at load time, not traversal time.
func (d *Definition) Validate() error {
	var errs []error

	report := func(step, format string, args ...any) {
		errs = append(errs, &GraphError{Step: step, Reason: fmt.Sprintf(format, args...)})
	}

	if d.Name == "" {
		report("", "missing workflow name")
	}
	if len(d.Steps) == 0 {
		report("", "workflow has no steps")
	}

	if d.InitialStep == "" {
		report("", "missing initial_step")
	} else if _, ok := d.Steps[d.InitialStep]; !ok {
		report("", "initial_step %q does not reference an existing step", d.InitialStep)
	}

	if len(d.TerminalSteps) == 0 {
		report("", "missing terminal_steps")
	}
	for _, id := range d.TerminalSteps {
		if _, ok := d.Steps[id]; !ok {
			report("", "terminal step %q does not reference an existing step", id)
		}
	}

	// Deterministic error ordering for stable output.
	ids := make([]string, 0, len(d.Steps))
	for id := range d.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		step := d.Steps[id]
		defaults := 0
		for i, edge := range step.Next {
			if edge.Target == "" {
				report(id, "edge %d has no target", i)
			} else if _, ok := d.Steps[edge.Target]; !ok {
				report(id, "edge %d targets unknown step %q", i, edge.Target)
			}
			if edge.Condition == "" {
				defaults++
				continue
			}
			if _, err := condition.Parse(edge.Condition); err != nil {
				report(id, "edge %d condition %q: %v", i, edge.Condition, err)
			}
		}
		if defaults > 1 {
			report(id, "has %d default edges, at most one is allowed", defaults)
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
