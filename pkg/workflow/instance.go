package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Instance is one execution of a workflow definition. There is no explicit
// "closed" flag: an instance has ended when its current step is declared
// terminal and no edge is taken from it.
type Instance struct {
	ID           string `json:"id"`
	WorkflowName string `json:"workflow_name"`

	// CurrentStep is always a valid step id of the associated definition.
	CurrentStep string `json:"current_step"`

	// State accumulates step outputs. Keys are only ever added or
	// overwritten, never deleted.
	State map[string]any `json:"state"`

	// History records every step visited, in order, including repeats when
	// the graph cycles.
	History []string `json:"history"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewInstance creates an instance positioned at the definition's initial
// step, with the initial step's outputs already merged.
func NewInstance(def *Definition) *Instance {
	now := time.Now().UTC()
	inst := &Instance{
		ID:           uuid.NewString(),
		WorkflowName: def.Name,
		CurrentStep:  def.InitialStep,
		State:        make(map[string]any),
		History:      []string{def.InitialStep},
		StartedAt:    now,
		UpdatedAt:    now,
	}
	inst.mergeOutputs(def.Steps[def.InitialStep].Outputs)
	return inst
}

// mergeOutputs folds step outputs into the accumulated state: new keys are
// added, existing keys overwritten, nothing removed.
func (i *Instance) mergeOutputs(outputs map[string]any) {
	for k, v := range outputs {
		i.State[k] = v
	}
}
