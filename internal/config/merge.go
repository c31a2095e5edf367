package config

import (
	"fmt"

	"dario.cat/mergo"
)

// mergeUserOverBuiltin merges user-provided YAML on top of the builtin
// defaults, user values overriding non-zero fields, matching the
// teacher's `mergo.Merge(queueConfig, tarsyConfig.Queue,
// mergo.WithOverride)` idiom for resolving partial user config against
// a fully-populated default.
func mergeUserOverBuiltin(builtin, user *YAMLConfig) (*YAMLConfig, error) {
	merged := *builtin
	if user == nil {
		return &merged, nil
	}
	if err := mergo.Merge(&merged, *user, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge user config over builtin: %w", err)
	}
	return &merged, nil
}
