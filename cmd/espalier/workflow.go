package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gardenfork/espalier/internal/logging"
	"github.com/gardenfork/espalier/pkg/workflow"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Validate and inspect workflow definitions",
}

var workflowValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a workflow definition file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		def, err := workflow.LoadDefinition(args[0])
		if err != nil {
			fatal("Invalid definition: %v", err)
		}
		fmt.Printf("Definition %q (version %s) is valid: %d steps, initial %q, %d terminal\n",
			def.Name, def.Version, len(def.Steps), def.InitialStep, len(def.TerminalSteps))
	},
}

var workflowLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List available workflow definitions",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}
		names, err := workflow.NewDefinitionStore(cfg.WorkflowsDir).List()
		if err != nil {
			fatal("Error listing workflows: %v", err)
		}
		if len(names) == 0 {
			fmt.Println("No workflow definitions found.")
			return
		}
		for _, name := range names {
			fmt.Println("- " + name)
		}
	},
}

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Manage workflow instances",
}

func getEngine(cmd *cobra.Command) (*workflow.Engine, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, _ := cmd.Flags().GetString("log-level")
	return workflow.NewEngine(
		workflow.NewDefinitionStore(cfg.WorkflowsDir),
		workflow.NewFileInstanceStore(cfg.InstancesDir),
		workflow.WithLogger(logging.New(logging.ParseLevel(level))),
	), nil
}

var instanceNewCmd = &cobra.Command{
	Use:   "new <workflow-name>",
	Short: "Start a new instance of a workflow",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := getEngine(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}
		inst, err := engine.Start(cmd.Context(), args[0])
		if err != nil {
			fatal("Error starting instance: %v", err)
		}
		fmt.Printf("Started instance %s of %q at step %q\n", inst.ID, inst.WorkflowName, inst.CurrentStep)
	},
}

var instanceAdvanceCmd = &cobra.Command{
	Use:   "advance <instance-id>",
	Short: "Advance an instance along the first satisfied edge",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := getEngine(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}
		cfg, _ := loadConfig(cmd)
		inst, err := workflow.NewFileInstanceStore(cfg.InstancesDir).Load(cmd.Context(), args[0])
		if err != nil {
			fatal("Error loading instance: %v", err)
		}

		target, _ := cmd.Flags().GetString("edge")
		var result *workflow.AdvanceResult
		if target != "" {
			result, err = engine.ForceAdvance(cmd.Context(), inst, target)
		} else {
			result, err = engine.Advance(cmd.Context(), inst)
		}
		if err != nil {
			fatal("Error advancing instance: %v", err)
		}
		if result.Completed {
			fmt.Printf("Instance %s completed at terminal step %q\n", inst.ID, result.Step)
			return
		}
		fmt.Printf("Instance %s advanced to step %q\n", inst.ID, result.Step)
	},
}

var instanceShowCmd = &cobra.Command{
	Use:   "show <instance-id>",
	Short: "Print an instance as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}
		inst, err := workflow.NewFileInstanceStore(cfg.InstancesDir).Load(cmd.Context(), args[0])
		if err != nil {
			fatal("Error loading instance: %v", err)
		}
		data, err := json.MarshalIndent(inst, "", "  ")
		if err != nil {
			fatal("Error marshaling instance: %v", err)
		}
		fmt.Println(string(data))
	},
}

func init() {
	instanceAdvanceCmd.Flags().String("edge", "", "Force a specific declared edge target, bypassing conditions")

	workflowCmd.AddCommand(workflowValidateCmd, workflowLsCmd)
	instanceCmd.AddCommand(instanceNewCmd, instanceAdvanceCmd, instanceShowCmd)
	rootCmd.AddCommand(workflowCmd, instanceCmd)
}
