package classifier

// BuiltinFallback returns the minimal hardcoded table used when the YAML
// config is missing or malformed. Ported from the original
// implementation's `_builtin_fallback()` — keeps trivial/small/complex
// routing functional with no external file.
func BuiltinFallback() *Config {
	return &Config{
		Thresholds: Thresholds{
			TrivialMax:          4,
			SmallMax:            15,
			DensityThreshold:    3,
			DensityTax:          10,
			EducationalDiscount: 10,
		},
		Weights: map[string]CategoryWeight{
			"io_basic":         {Weight: 1, Keywords: []string{"print", "hello"}},
			"logic_basic":      {Weight: 2, Keywords: []string{"basic", "simple"}},
			"data_processing":  {Weight: 5, Keywords: []string{"parse", "json", "api"}},
			"infrastructure":   {Weight: 15, Keywords: []string{"deploy", "docker"}},
		},
		Overrides: Overrides{
			ForceManual:      []string{"[STRICT]", "/plan", "/manual", "/strict", "@plan"},
			ForceTeach:       []string{"explain", "teach", "how does it work", "why"},
			ForcePROAdvanced: []string{"plan first", "break it down"},
		},
		HardFences: []string{"allow_questions_for_trivial"},
	}
}
