// Package config implements Synesis's hierarchical YAML configuration
// (spec §6 ambient stack), generalizing the teacher's pkg/config
// (loader, merge, validator, envexpand, builtin defaults) from
// tarsy.yaml's agent/chain/MCP registries to Synesis's own tunables:
// collaborator endpoints, revision-loop budgets, and per-stage
// thresholds, all overridable via SYNESIS_-prefixed environment
// variables.
package config

import (
	"github.com/supernovae/synesis/internal/contextpack"
	"github.com/supernovae/synesis/internal/integritygate"
)

// Config is the umbrella object Initialize returns, wrapping the
// merged+validated YAML tree plus conversion helpers into each
// package's own Config type — mirroring the teacher's Config.GetAgent/
// GetChain convenience-accessor role.
type Config struct {
	configDir string
	yaml      *YAMLConfig
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }

// Server returns the HTTP server's own settings.
func (c *Config) Server() ServerConfig { return *c.yaml.Server }

// Endpoints returns every external collaborator's transport settings.
func (c *Config) Endpoints() EndpointsConfig { return *c.yaml.Endpoints }

// Budgets returns the traversal's hard ceilings.
func (c *Config) Budgets() BudgetsConfig { return *c.yaml.Budgets }

// Features returns the feature-flag toggles.
func (c *Config) Features() FeatureFlags { return *c.yaml.Features }

// ClassifierWeightsFile returns the path (relative to ConfigDir) to
// the classifier's own YAML weight table.
func (c *Config) ClassifierWeightsFile() string {
	return c.yaml.Classifier.WeightsFile
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

// ContextPackConfig converts the loaded section into
// internal/contextpack.Config, applying that package's own defaults
// for anything the YAML left unset.
func (c *Config) ContextPackConfig() contextpack.Config {
	base := contextpack.DefaultConfig()
	cp := c.yaml.ContextPack
	if cp == nil {
		return base
	}
	if len(cp.ArchStandardsCollections) > 0 {
		base.ArchStandardsCollections = cp.ArchStandardsCollections
	}
	if len(cp.TrustedSources) > 0 {
		base.TrustedSources = cp.TrustedSources
	}
	if cp.CurationMode != "" {
		base.CurationMode = cp.CurationMode
	}
	base.RecurateOnRetry = boolOr(cp.RecurateOnRetry, base.RecurateOnRetry)
	if cp.MaxRetrievalTokens > 0 {
		base.MaxRetrievalTokens = cp.MaxRetrievalTokens
	}
	if cp.RAGTopK > 0 {
		base.RAGTopK = cp.RAGTopK
	}
	base.InjectionScanEnabled = boolOr(cp.InjectionScanEnabled, base.InjectionScanEnabled)
	if cp.BudgetAlertThreshold > 0 {
		base.BudgetAlertThreshold = cp.BudgetAlertThreshold
	}
	if cp.ContextDriftJaccardThreshold > 0 {
		base.ContextDriftJaccardThreshold = cp.ContextDriftJaccardThreshold
	}
	return base
}

// IntegrityGateConfig converts the loaded section into
// internal/integritygate.Config.
func (c *Config) IntegrityGateConfig() integritygate.Config {
	base := integritygate.DefaultConfig()
	ig := c.yaml.IntegrityGate
	if ig == nil {
		return base
	}
	if ig.MaxCodeChars > 0 {
		base.MaxCodeChars = ig.MaxCodeChars
	}
	if ig.MaxPatchFileChars > 0 {
		base.MaxPatchFileChars = ig.MaxPatchFileChars
	}
	if ig.MaxExperimentCommands > 0 {
		base.MaxExperimentCommands = ig.MaxExperimentCommands
	}
	if len(ig.PathDenylist) > 0 {
		base.PathDenylist = ig.PathDenylist
	}
	if len(ig.TrustedPackages) > 0 {
		base.TrustedPackages = ig.TrustedPackages
	}
	if len(ig.EvidenceCommandAllowlist) > 0 {
		base.EvidenceCommandAllowlist = ig.EvidenceCommandAllowlist
	}
	return base
}

// ConvMemoryConfig returns the conversation-memory store's tunables.
func (c *Config) ConvMemoryConfig() ConvMemoryConfig {
	if c.yaml.ConvMemory == nil {
		return ConvMemoryConfig{}
	}
	return *c.yaml.ConvMemory
}

// FailureCacheConfig returns the fail-fast cache's tunables.
func (c *Config) FailureCacheConfig() FailureCacheConfig {
	if c.yaml.FailureCache == nil {
		return FailureCacheConfig{}
	}
	return *c.yaml.FailureCache
}
