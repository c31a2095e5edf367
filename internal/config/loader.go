package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Initialize loads, merges, validates, and returns ready-to-use
// configuration — the primary entry point, mirroring the teacher's
// config.Initialize(ctx, configDir) shape exactly.
//
// Steps:
//  1. Load .env (dev convenience, ignored if absent)
//  2. Load synesis.yaml from configDir
//  3. Expand environment variables (${VAR} / $VAR)
//  4. Merge user YAML over builtin defaults
//  5. Apply SYNESIS_-prefixed env var overrides
//  6. Validate
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	user, err := loadYAMLConfig(filepath.Join(configDir, "synesis.yaml"))
	if err != nil {
		return nil, NewLoadError("synesis.yaml", err)
	}

	merged, err := mergeUserOverBuiltin(builtinDefaults(), user)
	if err != nil {
		return nil, fmt.Errorf("failed to merge configuration: %w", err)
	}

	applyEnvOverrides(merged)

	if err := validateConfig(merged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("configuration initialized",
		"server_port", merged.Server.Port,
		"max_iterations", merged.Budgets.MaxIterations)

	return &Config{configDir: configDir, yaml: merged}, nil
}

// loadYAMLConfig reads and parses synesis.yaml. A missing file is not
// an error — an operator may run entirely on builtin defaults plus env
// overrides, returning (nil, nil) in that case.
func loadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &cfg, nil
}
