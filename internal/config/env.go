package config

import (
	"os"
	"strconv"
)

// envPrefix namespaces every override this process reads from the
// environment, so a shared host running multiple services never
// collides on a bare variable name like PORT.
const envPrefix = "SYNESIS_"

// applyEnvOverrides lets deployment-time secrets and per-environment
// endpoints win over both synesis.yaml and the builtin defaults,
// generalizing the teacher's `${VAR}`-in-YAML-only approach (spec §6
// "hierarchical config ... SYNESIS_ env prefix") to direct env var
// overrides for the handful of settings that must never be baked into
// a checked-in YAML file.
func applyEnvOverrides(cfg *YAMLConfig) {
	if v, ok := lookupEnv("SERVER_PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v, ok := lookupEnv("DATABASE_URL"); ok {
		cfg.Server.DatabaseURL = v
	}
	if v, ok := lookupEnv("REDIS_URL"); ok {
		cfg.Server.RedisURL = v
	}
	if v, ok := lookupEnv("LLM_BASE_URL"); ok {
		cfg.Endpoints.LLM.BaseURL = v
	}
	if v, ok := lookupEnv("RETRIEVAL_BASE_URL"); ok {
		cfg.Endpoints.Retrieval.BaseURL = v
	}
	if v, ok := lookupEnv("LSP_BASE_URL"); ok {
		cfg.Endpoints.LSP.BaseURL = v
	}
	if v, ok := lookupEnv("SANDBOX_BASE_URL"); ok {
		cfg.Endpoints.Sandbox.BaseURL = v
	}
	if v, ok := lookupEnv("MAX_ITERATIONS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Budgets.MaxIterations = n
		}
	}
}

func lookupEnv(suffix string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + suffix)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
