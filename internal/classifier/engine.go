package classifier

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/supernovae/synesis/internal/state"
)

// maxScoredChars bounds how much of the input text scoring considers,
// matching the original's `text[:800]` truncation.
const maxScoredChars = 800

// Classification is the classifier's full output for one request (spec
// §4.1's contract).
type Classification struct {
	TaskSize           state.TaskSize
	Score              int
	ManualOverride     bool
	InteractionMode    state.InteractionMode
	ForceProAdvanced   bool
	ClassificationHits []string
	CategoriesTouched  []string
	ActiveDomains      []string
	TargetLanguage     string
	IsUIHelper         bool

	// Trivial-path seeding (spec §4.1 "for trivial tasks the seeded...").
	SeededTaskDescription string
	SeededTouchedFiles    []string
	DefaultsUsed          bool
	AllowedTools          []string
}

// languagePattern pairs a regex with the language it identifies. Order
// matters: specific-before-general (e.g. typescript before javascript).
type languagePattern struct {
	lang    string
	pattern *regexp.Regexp
}

var languagePatterns = []languagePattern{
	{"typescript", regexp.MustCompile(`(?i)\b(typescript|\.tsx?\b)`)},
	{"javascript", regexp.MustCompile(`(?i)\b(javascript|node\.?js|\.jsx?\b)`)},
	{"go", regexp.MustCompile(`(?i)\b(golang|\bgo\b)`)},
	{"rust", regexp.MustCompile(`(?i)\brust\b`)},
	{"java", regexp.MustCompile(`(?i)\bjava\b`)},
	{"python", regexp.MustCompile(`(?i)\bpython\b`)},
	{"bash", regexp.MustCompile(`(?i)\b(bash|shell script|\bsh\b)`)},
}

// uiHelperPatterns recognizes UI-helper message shapes (suggest-followup
// prompts, title generators) that must be classified away from the
// coding workflow entirely (S2).
var uiHelperPatterns = regexp.MustCompile(`(?i)(suggest\s+\d[\-\s]*\d*\s+relevant\s+follow-?up|generate\s+a\s+(short\s+)?title|follow-?up\s+questions?)`)

// Engine is a compiled, ready-to-use classifier instance.
type Engine struct {
	cfg        *Config
	categories map[string]compiledCategory
	pairings   []Pairing
}

// NewEngine compiles cfg into an Engine.
func NewEngine(cfg *Config) *Engine {
	return &Engine{
		cfg:        cfg,
		categories: compileCategories(cfg.Weights),
		pairings:   cfg.Pairings,
	}
}

// LoadWithFallback loads path, falling back to the built-in table (with
// a warning log) on any error — the classifier must never fail a
// request (spec §4.1).
func LoadWithFallback(path string) *Engine {
	cfg, err := LoadFromFile(path)
	if err != nil {
		slog.Warn("classifier: falling back to built-in config", "path", path, "error", err)
		cfg = BuiltinFallback()
	}
	return NewEngine(cfg)
}

func matchesAnyOverride(text string, triggers []string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	for _, trigger := range triggers {
		trigger = strings.TrimSpace(trigger)
		if trigger == "" {
			continue
		}
		lowerTrigger := strings.ToLower(trigger)
		if strings.HasPrefix(trigger, "/") || strings.HasPrefix(trigger, "@") || strings.HasPrefix(trigger, "#") {
			if strings.HasPrefix(t, lowerTrigger) {
				return true
			}
		}
		if strings.Contains(t, lowerTrigger) {
			return true
		}
	}
	return false
}

// ClassifyUIHelper reports whether text is a UI-helper request that
// should bypass the coding workflow entirely (S2).
func ClassifyUIHelper(text string) bool {
	return uiHelperPatterns.MatchString(text)
}

// detectLanguage runs the ordered language patterns, specific before
// general, returning "bash" (the original's default) when nothing
// matches.
func detectLanguage(text string) string {
	for _, lp := range languagePatterns {
		if lp.pattern.MatchString(text) {
			return lp.lang
		}
	}
	return "bash"
}

// Classify scores text deterministically and returns the resulting
// Classification (spec §4.1's Algorithm).
func (e *Engine) Classify(text string) Classification {
	if ClassifyUIHelper(text) {
		return Classification{IsUIHelper: true}
	}

	t := text
	if len(t) > maxScoredChars {
		t = t[:maxScoredChars]
	}
	trimmed := strings.TrimSpace(t)
	if trimmed == "" {
		return Classification{
			TaskSize:        state.TaskSizeSmall,
			InteractionMode: state.InteractionModeDo,
			TargetLanguage:  "bash",
		}
	}

	// 1. force_manual short-circuits everything: route through
	// Supervisor, saturate the score, force complex.
	if matchesAnyOverride(trimmed, e.cfg.Overrides.ForceManual) {
		mode := state.InteractionModeDo
		if matchesAnyOverride(trimmed, e.cfg.Overrides.ForceTeach) {
			mode = state.InteractionModeTeach
		}
		return Classification{
			TaskSize:           state.TaskSizeComplex,
			Score:              99,
			ManualOverride:     true,
			InteractionMode:    mode,
			ForceProAdvanced:   true,
			ClassificationHits: []string{"force_manual"},
			TargetLanguage:     detectLanguage(trimmed),
		}
	}

	interactionMode := state.InteractionModeDo
	if matchesAnyOverride(trimmed, e.cfg.Overrides.ForceTeach) {
		interactionMode = state.InteractionModeTeach
	}
	forcePro := matchesAnyOverride(trimmed, e.cfg.Overrides.ForcePROAdvanced)

	// 2. base keyword scoring
	lower := strings.ToLower(trimmed)
	score := 0
	var hits []string
	categoriesTouched := make(map[string]bool)

	// Sort category names for deterministic hit ordering.
	names := make([]string, 0, len(e.categories))
	for name := range e.categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, cat := range names {
		cc := e.categories[cat]
		if cc.pattern.MatchString(lower) {
			score += cc.weight
			hits = append(hits, cat)
			categoriesTouched[cat] = true
		}
	}

	// 3. pairing multipliers + domain attribution
	var domains []string
	for _, p := range e.pairings {
		if allKeywordsPresent(lower, p.Keywords) {
			score = int(float64(score) * p.Multiplier)
			if p.Domain != "" {
				domains = append(domains, p.Domain)
			}
		}
	}

	// 4. density tax
	if len(categoriesTouched) >= e.cfg.Thresholds.DensityThreshold && e.cfg.Thresholds.DensityThreshold > 0 {
		score += e.cfg.Thresholds.DensityTax
	}

	// 5. educational discount
	if interactionMode == state.InteractionModeTeach {
		score -= e.cfg.Thresholds.EducationalDiscount
		if score < 0 {
			score = 0
		}
	}

	size := sizeFromScore(score, e.cfg.Thresholds)

	categories := make([]string, 0, len(categoriesTouched))
	for c := range categoriesTouched {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	return Classification{
		TaskSize:           size,
		Score:              score,
		ManualOverride:     false,
		InteractionMode:    interactionMode,
		ForceProAdvanced:   forcePro,
		ClassificationHits: hits,
		CategoriesTouched:  categories,
		ActiveDomains:      domains,
		TargetLanguage:     detectLanguage(trimmed),
	}
}

func allKeywordsPresent(lower string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(lower, strings.ToLower(k)) {
			return false
		}
	}
	return len(keywords) > 0
}

func sizeFromScore(score int, th Thresholds) state.TaskSize {
	switch {
	case score <= th.TrivialMax:
		return state.TaskSizeTrivial
	case score <= th.SmallMax:
		return state.TaskSizeSmall
	default:
		return state.TaskSizeComplex
	}
}

// SeedTrivialPlan populates the trivial-path seeded fields a Classification
// carries directly into the routing engine's synthesized plan (spec
// §4.6 "context_curator (with synthesized trivial plan)").
func (c *Classification) SeedTrivialPlan(taskDescription string) {
	c.SeededTaskDescription = taskDescription
	c.SeededTouchedFiles = []string{"main." + extensionFor(c.TargetLanguage)}
	c.DefaultsUsed = true
	c.AllowedTools = []string{"read_file", "write_file"}
}

func extensionFor(lang string) string {
	switch lang {
	case "python":
		return "py"
	case "javascript":
		return "js"
	case "typescript":
		return "ts"
	case "go":
		return "go"
	case "rust":
		return "rs"
	case "java":
		return "java"
	default:
		return "sh"
	}
}
