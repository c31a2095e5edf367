// Package strategy maps a failure_type to a weighted candidate revision
// strategy, enforces per-strategy file/LOC/forbidden-move constraints,
// and detects monotonicity violations across retries (spec §4.3).
package strategy

import (
	"sort"

	"github.com/supernovae/synesis/internal/state"
)

// Candidate is one weighted strategy option for a given failure type.
type Candidate struct {
	Name   string
	Weight float64
	Why    string
}

// Constraint bounds what a retry attempt under a given strategy may do.
type Constraint struct {
	MaxFilesTouched int
	MaxLOCDelta     int
	Forbidden       []string
	PreserveStages  []string
	Anchor          string // hard|soft
}

// candidatesByFailure is the deterministic weighted table (spec §4.3).
var candidatesByFailure = map[state.FailureType][]Candidate{
	state.FailureTypeLint: {
		{"minimal_fix", 0.8, "lint"},
		{"refactor", 0.2, "fallback"},
	},
	state.FailureTypeSecurity: {
		{"security_fix", 0.7, "security"},
		{"minimal_fix", 0.2, "security"},
		{"revert_and_patch", 0.1, "security"},
	},
	state.FailureTypeLSP: {
		{"lsp_symbol_first", 0.8, "lsp"},
		{"minimal_fix", 0.2, "fallback"},
	},
	state.FailureTypeRuntime: {
		{"refactor", 0.5, "runtime"},
		{"revert_and_patch", 0.5, "runtime"},
	},
	state.FailureTypeSpecMismatch: {
		{"spec_alignment_first", 0.9, "spec"},
	},
}

var defaultCandidates = []Candidate{
	{"minimal_fix", 0.6, "default"},
	{"refactor", 0.4, "fallback"},
}

// constraints is the per-strategy bound table (spec §4.3).
var constraints = map[string]Constraint{
	"minimal_fix": {
		MaxFilesTouched: 1, MaxLOCDelta: 30,
		Forbidden:      []string{"extract_module", "rename_symbol"},
		PreserveStages: []string{"lint", "security"},
		Anchor:         "hard",
	},
	"refactor": {
		MaxFilesTouched: 5, MaxLOCDelta: 200,
		Anchor: "soft",
	},
	"revert_and_patch": {
		MaxFilesTouched: 1, MaxLOCDelta: 50,
		PreserveStages: []string{"lint"},
		Anchor:         "hard",
	},
	"lsp_symbol_first": {
		MaxFilesTouched: 2, MaxLOCDelta: 40,
		PreserveStages: []string{"lint"},
		Anchor:         "hard",
	},
	"spec_alignment_first": {
		MaxFilesTouched: 2, MaxLOCDelta: 60,
		PreserveStages: []string{"lint", "security"},
		Anchor:         "hard",
	},
	"security_fix": {
		MaxFilesTouched: 1, MaxLOCDelta: 25,
		Forbidden:      []string{"refactor", "extract_module"},
		PreserveStages: []string{"lint"},
		Anchor:         "hard",
	},
}

// ConstraintFor returns the bound table entry for a strategy name.
func ConstraintFor(name string) (Constraint, bool) {
	c, ok := constraints[name]
	return c, ok
}

func candidatesFor(ft state.FailureType) []Candidate {
	if cands, ok := candidatesByFailure[ft]; ok {
		return cands
	}
	return defaultCandidates
}

// Select applies the deterministic selection rule: the first candidate
// not already in triedSet wins; on late iterations (iteration >=
// maxIterations-1) refactor is preferred if still untried; if every
// candidate has been tried, the top-weighted one is picked regardless.
func Select(failureType state.FailureType, iteration, maxIterations int, tried []string) Candidate {
	cands := candidatesFor(failureType)
	triedSet := make(map[string]bool, len(tried))
	for _, t := range tried {
		triedSet[t] = true
	}

	sorted := append([]Candidate{}, cands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })

	lateIteration := iteration >= maxIterations-1
	if lateIteration {
		for _, c := range sorted {
			if c.Name == "refactor" && !triedSet[c.Name] {
				return c
			}
		}
	}

	for _, c := range sorted {
		if !triedSet[c.Name] {
			return c
		}
	}

	return sorted[0]
}
