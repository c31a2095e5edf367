package config

// builtinDefaults returns the built-in YAMLConfig tree, equivalent to
// each package's own DefaultConfig() but gathered centrally so the
// loader has one complete baseline to merge user YAML on top of —
// mirroring the teacher's GetBuiltinConfig() role for tarsy.yaml.
func builtinDefaults() *YAMLConfig {
	boolPtr := func(b bool) *bool { return &b }

	return &YAMLConfig{
		Server: &ServerConfig{
			Port:             8080,
			ReadTimeoutSec:   30,
			WriteTimeoutSec:  60,
			ShutdownGraceSec: 15,
		},
		Endpoints: &EndpointsConfig{
			LLM:       CollaboratorEndpoint{BaseURL: "http://localhost:8081", TimeoutSeconds: 60},
			Retrieval: CollaboratorEndpoint{BaseURL: "http://localhost:8082", TimeoutSeconds: 10},
			LSP:       CollaboratorEndpoint{BaseURL: "http://localhost:8083", TimeoutSeconds: 15},
			Sandbox:   CollaboratorEndpoint{BaseURL: "http://localhost:8084", TimeoutSeconds: 30},
		},
		Budgets: &BudgetsConfig{
			MaxIterations:     5,
			MaxLSPCalls:       3,
			SandboxMaxMinutes: 10,
		},
		ContextPack: &ContextPackConfig{
			TrustedSources:       []string{"tool_contract", "output_format", "embedded_policy", "admin_policy", "arch"},
			CurationMode:         "adaptive",
			RecurateOnRetry:      boolPtr(true),
			RAGTopK:              6,
			InjectionScanEnabled: boolPtr(true),
			BudgetAlertThreshold: 0.85,
			ContextDriftJaccardThreshold: 0.2,
		},
		IntegrityGate: &IntegrityGateConfig{
			MaxCodeChars:          100_000,
			MaxPatchFileChars:     50_000,
			MaxExperimentCommands: 10,
			PathDenylist:          []string{"package-lock.json", "yarn.lock", "Cargo.lock", "poetry.lock", "pnpm-lock.yaml"},
		},
		ConvMemory: &ConvMemoryConfig{
			MaxTurnsPerUser: 20,
			MaxUsers:        10_000,
			TTLMinutes:      60,
		},
		FailureCache: &FailureCacheConfig{
			MaxSize:    5_000,
			TTLMinutes: 180,
		},
		Classifier: &ClassifierConfig{
			WeightsFile: "intent_weights.yaml",
		},
		Features: &FeatureFlags{
			LSPEnabled:      boolPtr(true),
			RerankerEnabled: boolPtr(true),
			ConvMemoryRedis: boolPtr(false),
		},
	}
}
