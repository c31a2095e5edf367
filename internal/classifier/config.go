// Package classifier implements the deterministic, keyword-weighted
// intent classifier (spec §4.1). It never calls a model and never fails
// a request: malformed configuration falls back to a built-in minimal
// table.
package classifier

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// CategoryWeight is one scored keyword category.
type CategoryWeight struct {
	Weight   int      `yaml:"weight"`
	Keywords []string `yaml:"keywords"`
}

// Pairing is an ordered keyword tuple that adds a risk multiplier and
// attributes a domain when both keywords fire (e.g. cluster+pod -> k8s).
type Pairing struct {
	Keywords   []string `yaml:"keywords"`
	Multiplier float64  `yaml:"multiplier"`
	Domain     string   `yaml:"domain"`
}

// Overrides holds trigger lists that short-circuit normal scoring.
type Overrides struct {
	ForceManual      []string `yaml:"force_manual"`
	ForceTeach       []string `yaml:"force_teach"`
	ForcePROAdvanced []string `yaml:"force_pro_advanced"`
}

// Thresholds maps accumulated score to task size, plus density/teach
// adjustments.
type Thresholds struct {
	TrivialMax           int `yaml:"trivial_max"`
	SmallMax             int `yaml:"small_max"`
	DensityThreshold     int `yaml:"density_threshold"`
	DensityTax           int `yaml:"density_tax"`
	EducationalDiscount  int `yaml:"educational_discount"`
}

// Config is the raw YAML-shaped configuration for the scoring engine.
type Config struct {
	Weights    map[string]CategoryWeight `yaml:"weights"`
	Pairings   []Pairing                 `yaml:"pairings"`
	Overrides  Overrides                 `yaml:"overrides"`
	Thresholds Thresholds                `yaml:"thresholds"`

	// HardFences lists top-level keys that a plugin overlay is never
	// permitted to change, regardless of what the overlay contains
	// (spec §4.1 "Hard fences... cannot be overridden by YAML").
	HardFences []string `yaml:"hard_fences"`

	// AllowQuestionsForTrivial is a hard-fenced field: it can be set by
	// the core config but never by a plugin overlay.
	AllowQuestionsForTrivial bool `yaml:"allow_questions_for_trivial"`
}

// compiledCategory is a CategoryWeight with its keyword alternation
// pre-compiled into a single regexp, matching the original's
// `re.compile(r"\b(k1|k2)\b")` approach.
type compiledCategory struct {
	weight  int
	pattern *regexp.Regexp
}

func compileCategories(weights map[string]CategoryWeight) map[string]compiledCategory {
	out := make(map[string]compiledCategory, len(weights))
	for cat, data := range weights {
		if len(data.Keywords) == 0 {
			continue
		}
		escaped := make([]string, len(data.Keywords))
		for i, k := range data.Keywords {
			escaped[i] = regexp.QuoteMeta(k)
		}
		pattern := regexp.MustCompile(`(?i)\b(` + joinAlternation(escaped) + `)\b`)
		out[cat] = compiledCategory{weight: data.Weight, pattern: pattern}
	}
	return out
}

func joinAlternation(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "|"
		}
		out += p
	}
	return out
}

// LoadFromFile parses a YAML config from path. Callers should prefer
// LoadWithFallback, which never returns an error.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("classifier: parse config %s: %w", path, err)
	}
	return &cfg, nil
}
