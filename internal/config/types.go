package config

// YAMLConfig is the shape of synesis.yaml: every operator-tunable
// surfaced by the traversal's stages and collaborator clients, broken
// into the same sections the teacher groups tarsy.yaml into
// (system-wide, per-component, defaults).
type YAMLConfig struct {
	Server        *ServerConfig        `yaml:"server"`
	Endpoints     *EndpointsConfig     `yaml:"endpoints"`
	Budgets       *BudgetsConfig       `yaml:"budgets"`
	ContextPack   *ContextPackConfig   `yaml:"context_pack"`
	IntegrityGate *IntegrityGateConfig `yaml:"integrity_gate"`
	ConvMemory    *ConvMemoryConfig    `yaml:"conv_memory"`
	FailureCache  *FailureCacheConfig  `yaml:"failure_cache"`
	Classifier    *ClassifierConfig    `yaml:"classifier"`
	Features      *FeatureFlags        `yaml:"features"`
}

// ServerConfig holds the echo HTTP server's own tunables.
type ServerConfig struct {
	Port            int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	ReadTimeoutSec  int    `yaml:"read_timeout_seconds" validate:"omitempty,min=1"`
	WriteTimeoutSec int    `yaml:"write_timeout_seconds" validate:"omitempty,min=1"`
	ShutdownGraceSec int   `yaml:"shutdown_grace_seconds" validate:"omitempty,min=0"`
	DatabaseURL     string `yaml:"database_url"`
	RedisURL        string `yaml:"redis_url"`
}

// CollaboratorEndpoint is one external service's base URL + call
// timeout, shared shape across llm/retrieval/lsp/sandbox.
type CollaboratorEndpoint struct {
	BaseURL        string `yaml:"base_url" validate:"required,url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"omitempty,min=1"`
}

// EndpointsConfig bundles every external collaborator's transport
// settings (spec §5/§12).
type EndpointsConfig struct {
	LLM       CollaboratorEndpoint `yaml:"llm"`
	Retrieval CollaboratorEndpoint `yaml:"retrieval"`
	LSP       CollaboratorEndpoint `yaml:"lsp"`
	Sandbox   CollaboratorEndpoint `yaml:"sandbox"`
}

// BudgetsConfig bundles the traversal's hard ceilings (spec §4.7/§7).
type BudgetsConfig struct {
	MaxIterations      int     `yaml:"max_iterations" validate:"omitempty,min=1"`
	MaxLSPCalls        int     `yaml:"max_lsp_calls" validate:"omitempty,min=0"`
	SandboxMaxMinutes  float64 `yaml:"sandbox_max_minutes" validate:"omitempty,min=0"`
}

// ContextPackConfig mirrors internal/contextpack.Config's tunables for
// YAML loading (that package's Config carries no yaml tags itself,
// since it's also constructed directly in tests).
type ContextPackConfig struct {
	ArchStandardsCollections    []string `yaml:"arch_standards_collections"`
	TrustedSources              []string `yaml:"trusted_sources"`
	CurationMode                string   `yaml:"curation_mode"`
	RecurateOnRetry              *bool   `yaml:"recurate_on_retry"`
	MaxRetrievalTokens           int     `yaml:"max_retrieval_tokens"`
	RAGTopK                      int     `yaml:"rag_top_k"`
	InjectionScanEnabled         *bool   `yaml:"injection_scan_enabled"`
	BudgetAlertThreshold         float64 `yaml:"budget_alert_threshold"`
	ContextDriftJaccardThreshold float64 `yaml:"context_drift_jaccard_threshold"`
}

// IntegrityGateConfig mirrors internal/integritygate.Config.
type IntegrityGateConfig struct {
	MaxCodeChars             int      `yaml:"max_code_chars"`
	MaxPatchFileChars        int      `yaml:"max_patch_file_chars"`
	MaxExperimentCommands    int      `yaml:"max_experiment_commands"`
	PathDenylist             []string `yaml:"path_denylist"`
	TrustedPackages          []string `yaml:"trusted_packages"`
	EvidenceCommandAllowlist []string `yaml:"evidence_command_allowlist"`
}

// ConvMemoryConfig mirrors internal/convmemory's store tunables
// (spec §4.8).
type ConvMemoryConfig struct {
	MaxTurnsPerUser int `yaml:"max_turns_per_user" validate:"omitempty,min=1"`
	MaxUsers        int `yaml:"max_users" validate:"omitempty,min=1"`
	TTLMinutes      int `yaml:"ttl_minutes" validate:"omitempty,min=1"`
}

// FailureCacheConfig mirrors internal/failurecache's L1 cache tunables
// (spec §4.9).
type FailureCacheConfig struct {
	MaxSize    int `yaml:"max_size" validate:"omitempty,min=1"`
	TTLMinutes int `yaml:"ttl_minutes" validate:"omitempty,min=1"`
}

// ClassifierConfig points at the classifier's own YAML weight table
// (spec §4.1), loaded and merged separately since it's a large
// plugin-overlayable document in its own right.
type ClassifierConfig struct {
	WeightsFile  string `yaml:"weights_file"`
	OverlayFile  string `yaml:"overlay_file,omitempty"`
}

// FeatureFlags toggles optional traversal behavior without a code
// change, the same role teacher's per-agent/chain booleans play.
type FeatureFlags struct {
	LSPEnabled     *bool `yaml:"lsp_enabled"`
	RerankerEnabled *bool `yaml:"reranker_enabled"`
	ConvMemoryRedis *bool `yaml:"conv_memory_redis"`
}
