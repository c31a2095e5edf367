// Package integritygate runs the deterministic, short-circuiting
// pre-sandbox checks that decide whether generated code is *permitted*,
// not whether it is *good* (spec §4.4). Checks run in a fixed order;
// the first failure wins.
package integritygate

import (
	"github.com/supernovae/synesis/internal/state"
	"github.com/supernovae/synesis/internal/strategy"
)

// FailureCategory names the class of integrity violation.
type FailureCategory string

const (
	CategoryWorkspace FailureCategory = "workspace"
	CategoryScope     FailureCategory = "scope"
	CategoryPath      FailureCategory = "path"
	CategorySize      FailureCategory = "size"
	CategoryBinary    FailureCategory = "binary"
	CategorySecret    FailureCategory = "secret"
	CategoryNetwork   FailureCategory = "network"
	CategoryDangerous FailureCategory = "dangerous"
	CategoryImport    FailureCategory = "import"
)

// Failure is the gate's rejection payload — always actionable, fed
// straight back into the worker's next prompt.
type Failure struct {
	Category    FailureCategory
	Evidence    string
	Remediation string
}

// Input bundles everything a gate run needs out of State plus the
// per-request configuration that isn't itself state (trusted packages,
// path denylist, size limits).
type Input struct {
	GeneratedCode      string
	ExperimentScript   string
	ExperimentCommands []string
	TargetLanguage     string
	FilesTouched       []string
	PatchOps           []state.PatchOp
	UnifiedDiff        string
	TargetWorkspace    string
	TouchedFilesManifest []string
	RevisionStrategy   string
}

// Config holds the tunables sourced from hierarchical YAML config.
type Config struct {
	MaxCodeChars             int
	MaxPatchFileChars         int
	MaxExperimentCommands     int
	PathDenylist              []string
	TrustedPackages           []string
	EvidenceCommandAllowlist  []string
}

func DefaultConfig() Config {
	return Config{
		MaxCodeChars:          100_000,
		MaxPatchFileChars:     50_000,
		MaxExperimentCommands: 10,
		PathDenylist:          []string{"package-lock.json", "yarn.lock", "Cargo.lock", "poetry.lock", "pnpm-lock.yaml"},
	}
}

// Gate runs the ordered check pipeline.
type Gate struct {
	cfg Config
}

func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// checkFn is one ordered integrity check; a nil return means "passed".
type checkFn func(g *Gate, in Input) *Failure

// orderedChecks is the fixed pipeline order from spec §4.4: workspace
// boundary, scope allowlist, patch-op constraints, per-file size, diff
// shape, path denylist, evidence blast radius, code size, UTF-8,
// secrets, network, dangerous commands, import integrity.
var orderedChecks = []checkFn{
	(*Gate).checkWorkspaceBoundary,
	(*Gate).checkScopeViolation,
	(*Gate).checkPatchOpConstraints,
	(*Gate).checkPatchFileSize,
	(*Gate).checkDiffShape,
	(*Gate).checkPathDenylist,
	(*Gate).checkEvidenceBlastRadius,
	(*Gate).checkMaxSize,
	(*Gate).checkUTF8,
	(*Gate).checkSecrets,
	(*Gate).checkNetwork,
	(*Gate).checkDangerousCommands,
	(*Gate).checkImportIntegrity,
}

// Check runs every ordered check, short-circuiting on first failure.
func (g *Gate) Check(in Input) *Failure {
	if in.GeneratedCode == "" && !hasPatchContent(in.PatchOps) {
		return nil
	}
	for _, fn := range orderedChecks {
		if f := fn(g, in); f != nil {
			return f
		}
	}
	return nil
}

func hasPatchContent(ops []state.PatchOp) bool {
	for _, op := range ops {
		if op.Text != "" {
			return true
		}
	}
	return false
}

// codeToCheck concatenates generated code, patch-op text, experiment
// script, and experiment commands — the same "everything the sandbox
// will execute" surface the original checks run against.
func codeToCheck(in Input) string {
	code := in.GeneratedCode
	if code == "" && len(in.PatchOps) > 0 {
		var sb []byte
		for _, op := range in.PatchOps {
			sb = append(sb, op.Text...)
			sb = append(sb, '\n')
		}
		code = string(sb)
	}
	if in.ExperimentScript != "" {
		code = code + "\n" + in.ExperimentScript
	}
	if len(in.ExperimentCommands) > 0 {
		code = code + "\n" + joinLines(in.ExperimentCommands)
	}
	return code
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func (g *Gate) checkDiffShape(in Input) *Failure {
	c, ok := strategy.ConstraintFor(in.RevisionStrategy)
	if !ok {
		return nil
	}
	paths := allTouchedPaths(in)
	if c.MaxFilesTouched > 0 && len(paths) > c.MaxFilesTouched {
		return &Failure{
			Category:    CategorySize,
			Evidence:    "file count exceeds strategy limit",
			Remediation: "Reduce the number of touched files to fit the active revision strategy.",
		}
	}
	delta := locDeltaFromDiff(in.UnifiedDiff) + locDeltaFromPatchOps(in.PatchOps)
	if c.MaxLOCDelta > 0 && delta > c.MaxLOCDelta {
		return &Failure{
			Category:    CategorySize,
			Evidence:    "LOC delta exceeds strategy limit",
			Remediation: "Reduce scope. Stay within the active revision strategy's max_loc_delta.",
		}
	}
	return nil
}

func allTouchedPaths(in Input) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range in.FilesTouched {
		add(p)
	}
	for _, op := range in.PatchOps {
		add(op.Path)
	}
	return out
}
