// Package config loads the optional espalier configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config carries the directory layout and coordination defaults.
type Config struct {
	// RunsDir holds one JSON file per run. The sole shared resource.
	RunsDir string `mapstructure:"runs_dir"`

	// InstancesDir holds workflow instance files.
	InstancesDir string `mapstructure:"instances_dir"`

	// WorkflowsDir holds workflow definition YAML files.
	WorkflowsDir string `mapstructure:"workflows_dir"`

	// PlansDir is the root of the external plan documents.
	PlansDir string `mapstructure:"plans_dir"`

	// ClaimTTL bounds claims when the caller does not choose a TTL.
	ClaimTTL time.Duration `mapstructure:"claim_ttl"`

	// HTTPAddr is the status server listen address.
	HTTPAddr string `mapstructure:"http_addr"`

	// RedisAddr enables the external claim primitive when set.
	RedisAddr string `mapstructure:"redis_addr"`
}

// Default returns the configuration used when no file is present. Paths
// are relative until Load anchors them at the base directory.
func Default() Config {
	return Config{
		RunsDir:      filepath.Join(".espalier", "runs"),
		InstancesDir: filepath.Join(".espalier", "instances"),
		WorkflowsDir: filepath.Join(".espalier", "workflows"),
		PlansDir:     "plans",
		ClaimTTL:     30 * time.Minute,
		HTTPAddr:     "127.0.0.1:7272",
	}
}

// Load reads espalier.yaml under baseDir, if present, over the defaults,
// and anchors relative paths at baseDir.
func Load(baseDir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(baseDir, "espalier.yaml")
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &cfg,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			WeaklyTypedInput: true,
		})
		if err != nil {
			return cfg, fmt.Errorf("failed to build config decoder: %w", err)
		}
		if err := decoder.Decode(raw); err != nil {
			return cfg, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	for _, dir := range []*string{&cfg.RunsDir, &cfg.InstancesDir, &cfg.WorkflowsDir, &cfg.PlansDir} {
		if *dir != "" && !filepath.IsAbs(*dir) {
			*dir = filepath.Join(baseDir, *dir)
		}
	}
	return cfg, nil
}
