package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all runs as a newline-delimited record stream",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, _, err := getStore(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				fatal("Error creating export file: %v", err)
			}
			defer f.Close()
			out = f
		}

		if err := store.Export(cmd.Context(), out); err != nil {
			fatal("Error exporting runs: %v", err)
		}
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a record stream, newest record per run wins",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, _, err := getStore(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}

		f, err := os.Open(args[0])
		if err != nil {
			fatal("Error opening import file: %v", err)
		}
		defer f.Close()

		summary, err := store.Import(cmd.Context(), f)
		if err != nil {
			fatal("Error importing runs: %v", err)
		}
		fmt.Printf("created: %d  updated: %d  unchanged: %d  skipped: %d\n",
			summary.Created, summary.Updated, summary.Unchanged, summary.Skipped)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}
