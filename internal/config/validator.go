package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validateConfig runs struct-tag validation over the merged config tree
// (`validate:"..."` tags in types.go), then a few cross-field checks
// the tag language can't express — mirroring the teacher's fail-fast,
// ValidateAll-in-order validator shape, but driven by a single
// validator.Struct() call since every field here is independent
// (unlike tarsy.yaml's cross-referencing agent/chain/MCP registries).
func validateConfig(cfg *YAMLConfig) error {
	v := validator.New()

	if cfg.Server != nil {
		if err := v.Struct(cfg.Server); err != nil {
			return &ValidationError{Section: "server", Err: err}
		}
	}
	if cfg.Endpoints != nil {
		if err := v.Struct(cfg.Endpoints); err != nil {
			return &ValidationError{Section: "endpoints", Err: err}
		}
	}
	if cfg.Budgets != nil {
		if err := v.Struct(cfg.Budgets); err != nil {
			return &ValidationError{Section: "budgets", Err: err}
		}
	}
	if cfg.ConvMemory != nil {
		if err := v.Struct(cfg.ConvMemory); err != nil {
			return &ValidationError{Section: "conv_memory", Err: err}
		}
	}
	if cfg.FailureCache != nil {
		if err := v.Struct(cfg.FailureCache); err != nil {
			return &ValidationError{Section: "failure_cache", Err: err}
		}
	}

	if cfg.ContextPack != nil && cfg.ContextPack.RAGTopK < 0 {
		return &ValidationError{Section: "context_pack", Err: fmt.Errorf("rag_top_k must not be negative")}
	}

	return nil
}
