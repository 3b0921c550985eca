package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gardenfork/espalier/pkg/claim"
)

var claimCmd = &cobra.Command{
	Use:   "claim <run-id>",
	Short: "Claim exclusive working rights over a run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		coord, cfg, err := getCoordinator(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}

		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = cfg.ClaimTTL
		}

		run, err := coord.Claim(cmd.Context(), args[0], agentID(cmd), ttl)
		if err != nil {
			fatal("Error claiming run: %v", err)
		}
		fmt.Printf("Claimed run %s until %s\n", run.ID, run.ClaimExpires.Format(time.RFC3339))

		conflicts, err := coord.Claims().Conflicts(cmd.Context(), run)
		if err == nil && len(conflicts) > 0 {
			fmt.Println("Warning: touched files overlap with active runs:")
			for _, c := range conflicts {
				fmt.Printf("- %s: %v\n", c.RunID, c.Files)
			}
		}
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release <run-id>",
	Short: "Release a run's claim (no ownership check)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		coord, _, err := getCoordinator(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}
		if err := coord.Release(cmd.Context(), args[0]); err != nil {
			fatal("Error releasing run: %v", err)
		}
		fmt.Printf("Released run %s\n", args[0])
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Release every expired claim",
	Run: func(cmd *cobra.Command, args []string) {
		coord, _, err := getCoordinator(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}
		reclaimed, err := coord.SweepClaims(cmd.Context())
		if err != nil {
			fatal("Error sweeping claims: %v", err)
		}
		if len(reclaimed) == 0 {
			fmt.Println("No expired claims.")
			return
		}
		for _, id := range reclaimed {
			fmt.Printf("Reclaimed %s\n", id)
		}
	},
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts <run-id>",
	Short: "List active runs whose touched files overlap this run's",
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

		mgr := claim.NewManager(store)
		conflicts, err := mgr.Conflicts(cmd.Context(), run)
		if err != nil {
			fatal("Error computing conflicts: %v", err)
		}
		if len(conflicts) == 0 {
			fmt.Println("No conflicts.")
			return
		}
		for _, c := range conflicts {
			fmt.Printf("%s: %v\n", c.RunID, c.Files)
		}
	},
}

func init() {
	claimCmd.Flags().Duration("ttl", 0, "Claim time-to-live (default from config)")
	rootCmd.AddCommand(claimCmd, releaseCmd, gcCmd, conflictsCmd)
}
