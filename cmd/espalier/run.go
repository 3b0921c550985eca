package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gardenfork/espalier/pkg/domain"
	"github.com/gardenfork/espalier/pkg/lifecycle"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create, inspect, and transition runs",
}

var runNewCmd = &cobra.Command{
	Use:   "new <plan-path>",
	Short: "Create a run for a plan document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		coord, _, err := getCoordinator(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}

		initial, _ := cmd.Flags().GetString("state")
		state := domain.State(initial)
		if !state.PreExecution() {
			fatal("Error: runs start in a pre-execution state (proposed, approved, ready), got %q", initial)
		}

		run, err := coord.CreateRun(cmd.Context(), args[0], state)
		if err != nil {
			fatal("Error creating run: %v", err)
		}
		fmt.Printf("Created run %s (%s) for plan %q\n", run.ID, run.State, run.PlanRef())
	},
}

var runLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List runs, optionally filtered by state pattern",
	Run: func(cmd *cobra.Command, args []string) {
		store, _, err := getStore(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}

		runs, err := store.List(cmd.Context())
		if err != nil {
			fatal("Error listing runs: %v", err)
		}

		pattern, _ := cmd.Flags().GetString("state")
		sort.Slice(runs, func(i, j int) bool { return runs[i].ID < runs[j].ID })

		shown := 0
		for _, run := range runs {
			if pattern != "" && !run.State.Matches(pattern) {
				continue
			}
			claim := ""
			if run.ClaimedBy != "" {
				claim = "  claimed by " + run.ClaimedBy
			}
			fmt.Printf("%s  %-20s  %s%s\n", run.ID, run.State, run.PlanRef(), claim)
			shown++
		}
		if shown == 0 {
			fmt.Println("No runs found.")
		}
	},
}

var runShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a run record as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, _, err := getStore(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}

		run, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			fatal("Error loading run %q: %v", args[0], err)
		}

		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			fatal("Error marshaling run: %v", err)
		}
		fmt.Println(string(data))
	},
}

var runTransitionCmd = &cobra.Command{
	Use:   "transition <run-id> <to-state>",
	Short: "Apply a validated lifecycle transition",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		coord, _, err := getCoordinator(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}

		reason, _ := cmd.Flags().GetString("reason")
		force, _ := cmd.Flags().GetBool("force")
		to := domain.State(args[1])

		var run *domain.Run
		if force {
			run, err = coord.ForceTransition(cmd.Context(), args[0], to, agentID(cmd), reason)
		} else {
			run, err = coord.Transition(cmd.Context(), args[0], to, agentID(cmd), reason)
		}
		if err != nil {
			var invalid *domain.InvalidTransitionError
			if errors.As(err, &invalid) {
				fatal("Error: %v\nUse --force to override (the record will be marked).", err)
			}
			if domain.IsConcurrency(err) {
				fatal("Error: %v\nAnother agent modified this run; re-run to retry against fresh state.", err)
			}
			fatal("Error: %v", err)
		}
		fmt.Printf("Run %s is now %s\n", run.ID, run.State)
	},
}

var runTargetsCmd = &cobra.Command{
	Use:   "targets <run-id>",
	Short: "Show the valid transition targets for a run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, _, err := getStore(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}

		run, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			fatal("Error loading run %q: %v", args[0], err)
		}

		targets := lifecycle.ValidTargets(run.State)
		if len(targets) == 0 {
			fmt.Printf("Run is in terminal state %s; no transitions available.\n", run.State)
			return
		}
		fmt.Printf("From %s:\n", run.State)
		for _, t := range targets {
			fmt.Println("- " + string(t))
		}
	},
}

func init() {
	runNewCmd.Flags().String("state", string(domain.StateProposed), "Initial pre-execution state")
	runLsCmd.Flags().String("state", "", `State filter; parent tokens match children ("active")`)
	runTransitionCmd.Flags().String("reason", "", "Reason recorded on the transition")
	runTransitionCmd.Flags().Bool("force", false, "Bypass validation (logged distinctly)")

	runCmd.AddCommand(runNewCmd, runLsCmd, runShowCmd, runTransitionCmd, runTargetsCmd)
	rootCmd.AddCommand(runCmd)
}
