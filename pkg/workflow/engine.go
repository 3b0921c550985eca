package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gardenfork/espalier/internal/logging"
	"github.com/gardenfork/espalier/pkg/condition"
)

// InstanceStore persists workflow instances between advances.
type InstanceStore interface {
	Save(ctx context.Context, inst *Instance) error
	Load(ctx context.Context, id string) (*Instance, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// NoTransitionError reports a non-terminal step with no satisfied edge
// under the current state. Terminal steps without a taken edge are normal
// completion, never an error.
type NoTransitionError struct {
	Step string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("step %q has no satisfied edge and is not terminal", e.Step)
}

// UnknownEdgeError reports a forced advance along an edge the current step
// does not declare.
type UnknownEdgeError struct {
	Step   string
	Target string
}

func (e *UnknownEdgeError) Error() string {
	return fmt.Sprintf("step %q declares no edge to %q", e.Step, e.Target)
}

// Engine advances persisted instances through their definition graphs.
type Engine struct {
	defs   *DefinitionStore
	store  InstanceStore
	logger *slog.Logger
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine wires a definition store and an instance store.
func NewEngine(defs *DefinitionStore, store InstanceStore, opts ...EngineOption) *Engine {
	e := &Engine{
		defs:   defs,
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start creates and persists a new instance of the named workflow.
func (e *Engine) Start(ctx context.Context, name string) (*Instance, error) {
	def, err := e.defs.Get(name)
	if err != nil {
		return nil, err
	}
	inst := NewInstance(def)
	if err := e.store.Save(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to persist new instance: %w", err)
	}
	e.logger.Debug("workflow instance started", "workflow", name, "instance", inst.ID, "step", inst.CurrentStep)
	return inst, nil
}

// AdvanceResult describes the outcome of one advance.
type AdvanceResult struct {
	// Step is the instance's step after the advance.
	Step string
	// Completed is true when the instance sat on a terminal step with no
	// satisfied edge; the instance did not move.
	Completed bool
	// Edge is the edge that was taken, nil on completion.
	Edge *Edge
}

// Advance selects an edge from the instance's current step and moves along
// it: evaluate conditional edges in declaration order, take the first that
// holds, fall back to the (at most one) default edge. When no edge applies
// the step must be terminal, otherwise a NoTransitionError is returned.
func (e *Engine) Advance(ctx context.Context, inst *Instance) (*AdvanceResult, error) {
	def, err := e.defs.Get(inst.WorkflowName)
	if err != nil {
		return nil, err
	}

	step, ok := def.Steps[inst.CurrentStep]
	if !ok {
		// The definition changed underneath a persisted instance.
		return nil, fmt.Errorf("instance %s points at step %q which the definition no longer declares", inst.ID, inst.CurrentStep)
	}

	edge, err := selectEdge(step, inst.State)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		if def.Terminal(inst.CurrentStep) {
			return &AdvanceResult{Step: inst.CurrentStep, Completed: true}, nil
		}
		return nil, &NoTransitionError{Step: inst.CurrentStep}
	}

	return e.move(ctx, inst, def, edge)
}

// ForceAdvance moves along a specific declared edge, bypassing condition
// evaluation. The edge must still exist from the current step.
func (e *Engine) ForceAdvance(ctx context.Context, inst *Instance, target string) (*AdvanceResult, error) {
	def, err := e.defs.Get(inst.WorkflowName)
	if err != nil {
		return nil, err
	}

	step, ok := def.Steps[inst.CurrentStep]
	if !ok {
		return nil, fmt.Errorf("instance %s points at step %q which the definition no longer declares", inst.ID, inst.CurrentStep)
	}

	for i := range step.Next {
		if step.Next[i].Target == target {
			return e.move(ctx, inst, def, &step.Next[i])
		}
	}
	return nil, &UnknownEdgeError{Step: inst.CurrentStep, Target: target}
}

func (e *Engine) move(ctx context.Context, inst *Instance, def *Definition, edge *Edge) (*AdvanceResult, error) {
	inst.CurrentStep = edge.Target
	inst.History = append(inst.History, edge.Target)
	inst.mergeOutputs(def.Steps[edge.Target].Outputs)
	inst.UpdatedAt = time.Now().UTC()

	if err := e.store.Save(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to persist instance advance: %w", err)
	}

	e.logger.Debug("workflow instance advanced",
		"workflow", inst.WorkflowName,
		"instance", inst.ID,
		"step", inst.CurrentStep,
	)
	return &AdvanceResult{Step: inst.CurrentStep, Edge: edge}, nil
}

// selectEdge implements the deterministic edge-selection rule. Conditions
// were validated at load time, so a parse error here means the definition
// changed underneath the instance; it is reported, never skipped over.
func selectEdge(step Step, state map[string]any) (*Edge, error) {
	var fallback *Edge
	for i := range step.Next {
		edge := &step.Next[i]
		if edge.Condition == "" {
			if fallback == nil {
				fallback = edge
			}
			continue
		}
		expr, err := condition.Parse(edge.Condition)
		if err != nil {
			return nil, fmt.Errorf("edge to %q has unparsable condition %q: %w", edge.Target, edge.Condition, err)
		}
		if expr.Eval(state) {
			return edge, nil
		}
	}
	return fallback, nil
}
