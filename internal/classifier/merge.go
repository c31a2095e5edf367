package classifier

// MergePlugin merges an industry YAML overlay into the core config per
// spec §4.1: weights update by key (later wins), pairings append,
// overrides merge per-key-list, thresholds override last-wins. Hard
// fences named in core.HardFences are never touched by the overlay,
// mirroring the teacher's update/append/override-last/hard-fence merge
// rules in pkg/config/merge.go.
func MergePlugin(core, overlay *Config) *Config {
	merged := &Config{
		Weights:                  mergeWeights(core.Weights, overlay.Weights),
		Pairings:                 append(append([]Pairing{}, core.Pairings...), overlay.Pairings...),
		Overrides:                mergeOverrides(core.Overrides, overlay.Overrides),
		Thresholds:               core.Thresholds,
		HardFences:               core.HardFences,
		AllowQuestionsForTrivial: core.AllowQuestionsForTrivial,
	}

	if !isFenced(core.HardFences, "thresholds") {
		merged.Thresholds = overlayThresholds(core.Thresholds, overlay.Thresholds)
	}
	if !isFenced(core.HardFences, "allow_questions_for_trivial") {
		merged.AllowQuestionsForTrivial = overlay.AllowQuestionsForTrivial || core.AllowQuestionsForTrivial
	}

	return merged
}

func isFenced(fences []string, key string) bool {
	for _, f := range fences {
		if f == key {
			return true
		}
	}
	return false
}

// mergeWeights updates by key; later (overlay) wins for matching keys,
// new keys are appended.
func mergeWeights(core, overlay map[string]CategoryWeight) map[string]CategoryWeight {
	out := make(map[string]CategoryWeight, len(core)+len(overlay))
	for k, v := range core {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// mergeOverrides appends overlay trigger lists onto the core ones
// per-key ("overrides merge per-key-list").
func mergeOverrides(core, overlay Overrides) Overrides {
	return Overrides{
		ForceManual:      append(append([]string{}, core.ForceManual...), overlay.ForceManual...),
		ForceTeach:       append(append([]string{}, core.ForceTeach...), overlay.ForceTeach...),
		ForcePROAdvanced: append(append([]string{}, core.ForcePROAdvanced...), overlay.ForcePROAdvanced...),
	}
}

// overlayThresholds takes the overlay's value for any threshold field
// that is non-zero, else keeps the core value ("override last-wins").
func overlayThresholds(core, overlay Thresholds) Thresholds {
	out := core
	if overlay.TrivialMax != 0 {
		out.TrivialMax = overlay.TrivialMax
	}
	if overlay.SmallMax != 0 {
		out.SmallMax = overlay.SmallMax
	}
	if overlay.DensityThreshold != 0 {
		out.DensityThreshold = overlay.DensityThreshold
	}
	if overlay.DensityTax != 0 {
		out.DensityTax = overlay.DensityTax
	}
	if overlay.EducationalDiscount != 0 {
		out.EducationalDiscount = overlay.EducationalDiscount
	}
	return out
}
