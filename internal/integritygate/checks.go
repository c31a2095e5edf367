package integritygate

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

func (g *Gate) checkWorkspaceBoundary(in Input) *Failure {
	prefix := strings.TrimRight(in.TargetWorkspace, "/")
	if prefix == "" {
		return nil
	}
	for _, p := range allTouchedPaths(in) {
		norm := p
		if !strings.HasPrefix(norm, "/") {
			norm = "/" + norm
		}
		if norm != prefix && !strings.HasPrefix(norm, prefix+"/") {
			return &Failure{
				Category:    CategoryWorkspace,
				Evidence:    "path " + p + " is outside target_workspace " + in.TargetWorkspace,
				Remediation: "All paths must be under the workspace root. Request a Re-Plan from Supervisor to adjust scope.",
			}
		}
	}
	return nil
}

func (g *Gate) checkScopeViolation(in Input) *Failure {
	if len(in.TouchedFilesManifest) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(in.TouchedFilesManifest))
	for _, p := range in.TouchedFilesManifest {
		if p != "" {
			allowed[strings.TrimRight(p, "/")] = true
		}
	}
	wsPrefix := strings.TrimRight(in.TargetWorkspace, "/")
	for _, p := range allTouchedPaths(in) {
		norm := p
		if !strings.HasPrefix(norm, "/") && wsPrefix != "" {
			norm = wsPrefix + "/" + p
		} else if !strings.HasPrefix(norm, "/") {
			norm = "/" + p
		}
		matched := false
		for a := range allowed {
			if norm == a || strings.HasPrefix(norm, a+"/") {
				matched = true
				break
			}
		}
		if !matched {
			return &Failure{
				Category:    CategoryScope,
				Evidence:    "path " + p + " is not in the execution plan's touched_files manifest",
				Remediation: "Scope violation: you may only modify files listed in the execution plan. Request a Re-Plan to expand the allowlist.",
			}
		}
	}
	return nil
}

func (g *Gate) checkPatchOpConstraints(in Input) *Failure {
	for _, op := range in.PatchOps {
		if op.Path == "" {
			continue
		}
		opType := string(op.Op)
		if opType != "add" && opType != "modify" && opType != "delete" {
			return &Failure{
				Category:    CategoryPath,
				Evidence:    "invalid op '" + opType + "' for path " + op.Path,
				Remediation: "Use only add, modify, or delete. No line-range edits.",
			}
		}
		if strings.Contains(op.Path, "..") || strings.Contains(op.Path, "//") {
			return &Failure{
				Category:    CategoryPath,
				Evidence:    "path traversal: " + op.Path,
				Remediation: "Use relative paths under workspace. No '../' or '//'.",
			}
		}
		if strings.Contains(op.Text, "ln -s") {
			return &Failure{
				Category:    CategoryPath,
				Evidence:    "symlink creation (ln -s) in patch content for " + op.Path,
				Remediation: "Forbid symlink creation. Use regular files only.",
			}
		}
	}
	return nil
}

func (g *Gate) checkPatchFileSize(in Input) *Failure {
	limit := g.cfg.MaxPatchFileChars
	if limit <= 0 {
		limit = 50_000
	}
	for _, op := range in.PatchOps {
		if len(op.Text) > limit {
			return &Failure{
				Category:    CategorySize,
				Evidence:    "file " + op.Path + " exceeds patch size limit",
				Remediation: "Reduce patch content to under the configured per-file character limit.",
			}
		}
	}
	return nil
}

func (g *Gate) checkPathDenylist(in Input) *Failure {
	names := g.cfg.PathDenylist
	if len(names) == 0 {
		names = DefaultConfig().PathDenylist
	}
	for _, ft := range allTouchedPaths(in) {
		for _, name := range names {
			if strings.Contains(ft, name) {
				return &Failure{
					Category:    CategoryPath,
					Evidence:    "file " + ft,
					Remediation: "Remove from files_touched/patch_ops. Lockfiles are denylisted.",
				}
			}
		}
	}

	writeIndicators := []string{">", ">>", "cp ", "mv ", "sed -i"}
	code := codeToCheck(in)
	for i, line := range strings.Split(code, "\n") {
		hasIndicator := false
		for _, ind := range writeIndicators {
			if strings.Contains(line, ind) {
				hasIndicator = true
				break
			}
		}
		if !hasIndicator {
			continue
		}
		for _, name := range names {
			if strings.Contains(line, name) {
				return &Failure{
					Category:    CategoryPath,
					Evidence:    lineEvidence(i, line),
					Remediation: "Remove edits to lockfiles (package-lock.json, yarn.lock, etc.).",
				}
			}
		}
		if lockFileRegex.MatchString(line) {
			return &Failure{
				Category:    CategoryPath,
				Evidence:    lineEvidence(i, line),
				Remediation: "Remove edits to denylisted paths.",
			}
		}
	}
	return nil
}

func (g *Gate) checkEvidenceBlastRadius(in Input) *Failure {
	if len(in.ExperimentCommands) == 0 {
		return nil
	}
	maxCmds := g.cfg.MaxExperimentCommands
	if maxCmds <= 0 {
		maxCmds = 10
	}
	if len(in.ExperimentCommands) > maxCmds {
		return &Failure{
			Category:    CategoryDangerous,
			Evidence:    "experiment has too many commands",
			Remediation: "Reduce the experiment plan's commands to fit the configured maximum.",
		}
	}
	for _, cmd := range in.ExperimentCommands {
		lower := strings.ToLower(strings.TrimSpace(cmd))
		for _, risky := range highRiskExperimentCmds {
			if strings.Contains(lower, risky) {
				return &Failure{
					Category:    CategoryDangerous,
					Evidence:    "high-risk command in experiment: " + truncate(cmd, 80),
					Remediation: "Experiments may not run package installers. Use pre-installed deps or add to trusted setup.",
				}
			}
		}
	}
	if len(g.cfg.EvidenceCommandAllowlist) > 0 {
		allowed := make(map[string]bool, len(g.cfg.EvidenceCommandAllowlist))
		for _, a := range g.cfg.EvidenceCommandAllowlist {
			allowed[strings.ToLower(a)] = true
		}
		for _, cmd := range in.ExperimentCommands {
			fields := strings.Fields(cmd)
			if len(fields) == 0 {
				continue
			}
			first := strings.ToLower(fields[0])
			if strings.HasPrefix(first, "#") {
				continue
			}
			matched := false
			for a := range allowed {
				if first == a || strings.HasPrefix(first, a) {
					matched = true
					break
				}
			}
			if !matched {
				return &Failure{
					Category:    CategoryPath,
					Evidence:    "command: " + truncate(cmd, 60),
					Remediation: "Evidence experiment commands must use allowlisted interpreters (python, pytest, bash, etc.).",
				}
			}
		}
	}
	return nil
}

func (g *Gate) checkMaxSize(in Input) *Failure {
	limit := g.cfg.MaxCodeChars
	if limit <= 0 {
		limit = 100_000
	}
	if len(codeToCheck(in)) > limit {
		return &Failure{
			Category:    CategorySize,
			Evidence:    "combined code exceeds the configured character limit",
			Remediation: "Produce a shorter script or split into smaller units.",
		}
	}
	return nil
}

func (g *Gate) checkUTF8(in Input) *Failure {
	if !utf8.ValidString(codeToCheck(in)) {
		return &Failure{
			Category:    CategoryBinary,
			Evidence:    "invalid UTF-8 or binary content",
			Remediation: "Produce valid UTF-8 text only. No binary edits.",
		}
	}
	return nil
}

func lineEvidence(i int, line string) string {
	return "line ~" + strconv.Itoa(i+1) + ": " + truncate(strings.TrimSpace(line), 60)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
