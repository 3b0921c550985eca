package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	serverhttp "github.com/gardenfork/espalier/internal/adapters/http"
	"github.com/gardenfork/espalier/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only status view of the run store",
	Long: `Starts an HTTP server exposing run records, verification logs, and
prometheus metrics. The server only reads the store; coordination stays in
the shared directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		store, cfg, err := getStore(cmd)
		if err != nil {
			fatal("Error: %v", err)
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.HTTPAddr
		}

		level, _ := cmd.Flags().GetString("log-level")
		logger := logging.New(logging.ParseLevel(level))

		server := serverhttp.NewServer(store, serverhttp.WithLogger(logger))
		logger.Info("status server listening", "addr", addr)
		fmt.Printf("Listening on http://%s\n", addr)
		if err := http.ListenAndServe(addr, server.Handler()); err != nil {
			fatal("Server error: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
