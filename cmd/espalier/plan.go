package main

import (
	"os"

	"github.com/gardenfork/espalier/internal/adapters/plan"
	"github.com/gardenfork/espalier/internal/config"
	"github.com/gardenfork/espalier/pkg/ports"
)

// planSource opens the plan-document boundary when the plans directory
// exists. Commands that never touch verification work fine without one.
func planSource(cfg config.Config) (ports.PlanSource, error) {
	if _, err := os.Stat(cfg.PlansDir); err != nil {
		return nil, err
	}
	return plan.NewSource(cfg.PlansDir)
}
