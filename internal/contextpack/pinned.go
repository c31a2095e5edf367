package contextpack

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/supernovae/synesis/internal/state"
)

var (
	pyVersionPattern     = regexp.MustCompile(`(?i)python\s+3\.(\d+)`)
	repoPyVersionPattern = regexp.MustCompile(`(?i)python\s*=\s*["']?3\.(\d+)|3\.(\d+)`)
	orgPyVersionPattern  = regexp.MustCompile(`(?i)python\s+3\.(\d+)|3\.(\d+)`)
	projPyVersionPattern = regexp.MustCompile(`(?i)python\s*=\s*["']?3\.(\d+)|3\.(\d+)`)
)

// extractPythonVersions pulls the first Python minor version named in
// org/project text, reporting ok=false if either side names none.
func extractPythonVersions(orgText, projText string) (org, proj string, ok bool) {
	om := orgPyVersionPattern.FindStringSubmatch(orgText)
	pm := projPyVersionPattern.FindStringSubmatch(projText)
	if om == nil || pm == nil {
		return "", "", false
	}
	return firstNonEmpty(om[1], om[2]), firstNonEmpty(pm[1], pm[2]), true
}

// buildPinnedContext assembles the four trusted tiers in hierarchical
// override order: Tier 1 global invariants -> Tier 2 org standards ->
// Tier 3 project manifest -> Tier 4 session (the current task
// description only; plan steps are not included).
func buildPinnedContext(s *state.State, orgStandards, projectManifest []state.Chunk) []state.Chunk {
	var chunks []state.Chunk

	outputFormat := "Respond with valid JSON. Include code, explanation, reasoning, assumptions, confidence, " +
		"edge_cases_considered, needs_input, needs_input_question, stop_reason."
	chunks = append(chunks, state.Chunk{
		ID:     "invariant_output_format",
		Text:   outputFormat,
		Origin: state.OriginTrusted,
		Tier:   state.TierGlobalInvariants,
		Source: "output_format",
		Score:  1.0,
	})

	toolContract := fmt.Sprintf("Target language: %s. Sandbox has no network. Use set -euo pipefail for bash.", s.TargetLanguage)
	chunks = append(chunks, state.Chunk{
		ID:     "invariant_sandbox",
		Text:   toolContract,
		Origin: state.OriginTrusted,
		Tier:   state.TierGlobalInvariants,
		Source: "tool_contract",
		Score:  1.0,
	})

	chunks = append(chunks, orgStandards...)
	chunks = append(chunks, projectManifest...)

	if s.TaskDescription != "" {
		sessionText := "Current task: " + truncate(s.TaskDescription, 500)
		chunks = append(chunks, state.Chunk{
			ID:     "invariant_session",
			Text:   sessionText,
			Origin: state.OriginTrusted,
			Tier:   state.TierSession,
			Source: "tool_contract",
			Score:  0.9,
		})
	}
	return chunks
}

// projectManifestChunks reads the Tier 3 project manifest chunks
// already present in State's ContextPack. Nothing in this repository
// reads .synesis.yaml, so these chunks only exist when a caller has
// placed them on State.
func projectManifestChunks(s *state.State) []state.Chunk {
	if s.ContextPack == nil {
		return nil
	}
	var out []state.Chunk
	for _, c := range s.ContextPack.TrustedChunks {
		if c.Tier == state.TierProjectManifest {
			out = append(out, c)
		}
	}
	return out
}

// detectTier2Tier3Conflicts flags disagreements between org standards
// (Tier 2) and the project manifest (Tier 3) — container runtime and
// Python version are the two cases the original implementation checks.
func detectTier2Tier3Conflicts(orgStandards, projectManifest []state.Chunk) []state.ContextConflict {
	var conflicts []state.ContextConflict
	orgText := strings.ToLower(joinChunkText(orgStandards))
	projText := strings.ToLower(joinChunkText(projectManifest))
	if orgText == "" || projText == "" {
		return conflicts
	}

	hasDocker, hasPodman := strings.Contains(orgText, "docker"), strings.Contains(orgText, "podman")
	projDocker, projPodman := strings.Contains(projText, "docker"), strings.Contains(projText, "podman")
	if (hasDocker && projPodman) || (hasPodman && projDocker) {
		orgRuntime, projRuntime := "Docker", "Podman"
		if hasPodman {
			orgRuntime = "Podman"
		}
		if projPodman {
			projRuntime = "Podman"
		} else {
			projRuntime = "Docker"
		}
		conflicts = append(conflicts, state.ContextConflict{
			Feature:        "container_runtime",
			TrustedValue:   orgRuntime,
			UntrustedValue: projRuntime,
			Severity:       "warning",
			Resolution:     "Tier 3 override applied for this session. Worker must note in residual_risks or blocking_issues.",
		})
	}

	if o, p, ok := extractPythonVersions(orgText, projText); ok && o != p {
		conflicts = append(conflicts, state.ContextConflict{
			Feature:        "python_version",
			TrustedValue:   "Python 3." + o,
			UntrustedValue: "Python 3." + p,
			Severity:       "warning",
			Resolution:     "Tier 3 override applied for this session. Worker must note in residual_risks or blocking_issues.",
		})
	}
	return conflicts
}

func buildSyntheticConflictChunk(c state.ContextConflict) state.Chunk {
	text := fmt.Sprintf(
		"[SYSTEM WARNING]: Conflict detected between Org Standard (Tier 2) and Project Manifest (Tier 3) "+
			"regarding %s. Tier 3 overrides Tier 2 for this session, but Worker must note this in "+
			"'residual_risks' or 'blocking_issues'. Trusted: %s. Untrusted: %s. %s",
		c.Feature, c.TrustedValue, c.UntrustedValue, c.Resolution,
	)
	return state.Chunk{
		ID:     "conflict_" + c.Feature,
		Text:   text,
		Origin: state.OriginTrusted,
		Tier:   state.TierGlobalInvariants,
		Source: "tool_contract",
		Score:  1.0,
	}
}

// detectConflicts flags trusted-policy vs untrusted-data disagreements
// surfaced as warnings, never silently resolved.
func detectConflicts(trusted []state.Chunk, untrustedText string) []state.ConflictWarning {
	var warnings []state.ConflictWarning
	untrustedLower := strings.ToLower(untrustedText)

	for _, c := range trusted {
		if match := pyVersionPattern.FindStringSubmatch(c.Text); match != nil {
			claimedVer := "3." + match[1]
			if repoMatch := repoPyVersionPattern.FindStringSubmatch(untrustedLower); repoMatch != nil {
				repoVer := "3." + firstNonEmpty(repoMatch[1], repoMatch[2])
				if claimedVer != repoVer {
					warnings = append(warnings, state.ConflictWarning{
						TrustedClaim:      match[0],
						UntrustedEvidence: "Repository specifies Python " + repoVer,
						Suggestion:        "Flag as blocking_issue; do not override repo version arbitrarily.",
					})
				}
			}
		}
		textLower := strings.ToLower(c.Text)
		if strings.Contains(textLower, "docker") && strings.Contains(untrustedLower, "podman") {
			warnings = append(warnings, state.ConflictWarning{
				TrustedClaim:      "Policy mentions Docker",
				UntrustedEvidence: "Repository references Podman",
				Suggestion:        "Flag as blocking_issue; clarify container runtime with user.",
			})
		}
		if strings.Contains(textLower, "podman") && strings.Contains(untrustedLower, "docker") && !strings.Contains(untrustedLower, "podman") {
			warnings = append(warnings, state.ConflictWarning{
				TrustedClaim:      "Policy mentions Podman",
				UntrustedEvidence: "Repository references Docker",
				Suggestion:        "Flag as blocking_issue; clarify container runtime with user.",
			})
		}
	}
	return warnings
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
