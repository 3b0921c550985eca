package main

import (
	"fmt"
	"os"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	espalier "github.com/gardenfork/espalier"
	"github.com/gardenfork/espalier/internal/config"
	"github.com/gardenfork/espalier/internal/logging"
	"github.com/gardenfork/espalier/pkg/adapters/file"
	redislock "github.com/gardenfork/espalier/pkg/adapters/redis"
)

var rootCmd = &cobra.Command{
	Use:   "espalier",
	Short: "Espalier coordinates plan-derived runs across cooperating agents",
	Long: `Espalier tracks units of work ("runs") through a multi-stage lifecycle,
coordinated across independent agent processes through a shared on-disk
store. No server, no daemon: every command is a synchronous read-modify-write
against the run directory.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Base directory of the espalier project")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("agent", defaultAgentID(), "Agent identity recorded on transitions and claims")
}

func defaultAgentID() string {
	if host, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s:%d", host, os.Getpid())
	}
	return fmt.Sprintf("pid:%d", os.Getpid())
}

// loadConfig resolves the effective configuration for a command.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dir, _ := cmd.Flags().GetString("dir")
	return config.Load(dir)
}

// getStore builds the file run store for a command.
func getStore(cmd *cobra.Command) (*file.Store, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	return file.NewStore(cfg.RunsDir), cfg, nil
}

// getCoordinator builds the library facade for a command.
func getCoordinator(cmd *cobra.Command) (*espalier.Coordinator, config.Config, error) {
	store, cfg, err := getStore(cmd)
	if err != nil {
		return nil, cfg, err
	}

	level, _ := cmd.Flags().GetString("log-level")
	opts := []espalier.Option{
		espalier.WithLogger(logging.New(logging.ParseLevel(level))),
	}

	if src, err := planSource(cfg); err == nil {
		opts = append(opts, espalier.WithPlanSource(src))
	}

	if cfg.RedisAddr != "" {
		client := backend.NewClient(&backend.Options{Addr: cfg.RedisAddr})
		opts = append(opts, espalier.WithLocker(redislock.NewLocker(client, "espalier:")))
	}

	return espalier.New(store, opts...), cfg, nil
}

func agentID(cmd *cobra.Command) string {
	agent, _ := cmd.Flags().GetString("agent")
	return agent
}

func fatal(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
