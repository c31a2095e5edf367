// Package contextpack builds the deterministic, bounded ContextPack the
// worker consumes before every generation attempt, including retries.
package contextpack

import (
	"regexp"
	"strings"
)

// injectionPattern pairs a compiled regex with its description for the
// audit trail, mirroring the teacher's CompiledPattern in
// pkg/masking/pattern.go.
type injectionPattern struct {
	name  string
	regex *regexp.Regexp
}

// injectionPatterns are known prompt-injection phrasings (OWASP LLM
// prompt-injection guidance; documented attacks and obfuscations).
var injectionPatterns = []injectionPattern{
	{"ignore_previous", regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|prior|above)\s+instructions?`)},
	{"disregard_previous", regexp.MustCompile(`(?i)disregard\s+(?:all\s+)?(?:previous|prior|above)`)},
	{"forget_everything", regexp.MustCompile(`(?i)forget\s+(?:everything|all)\s+(?:you\s+)?(?:were\s+)?told`)},
	{"new_instructions", regexp.MustCompile(`(?i)new\s+instructions?\s*:`)},
	{"override_instructions", regexp.MustCompile(`(?i)override\s+(?:your\s+)?(?:instructions?|prompt)`)},
	{"you_are_now", regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a|an)\s`)},
	{"pretend_you_are", regexp.MustCompile(`(?i)pretend\s+you\s+are`)},
	{"act_as_if", regexp.MustCompile(`(?i)act\s+as\s+if\s+you`)},
	{"system_role", regexp.MustCompile(`(?i)system\s*:\s*`)},
	{"im_start_system", regexp.MustCompile(`(?i)<\|im_start\|>\s*system`)},
	{"human_marker", regexp.MustCompile(`(?i)###\s*human\s*:`)},
	{"inst_template", regexp.MustCompile(`(?i)\[INST\]\s*`)},
	{"xml_role_tag", regexp.MustCompile(`(?i)<\/?s(?:ystem)?>`)},
	{"ignore_above", regexp.MustCompile(`(?i)ignore\s+the\s+above`)},
	{"follow_instead", regexp.MustCompile(`(?i)follow\s+these\s+instructions?\s+instead`)},
	{"output_only", regexp.MustCompile(`(?i)output\s+(?:only|just)\s+the\s+following`)},
	{"print_exactly", regexp.MustCompile(`(?i)print\s+(?:exactly|only)\s+this\s*:`)},
}

// maxScanChars bounds how much of a chunk is scanned, avoiding a DoS on
// pathologically large retrieved documents.
const maxScanChars = 32_000

// ScanResult is the outcome of scanning one text block for injection.
type ScanResult struct {
	Detected      bool
	PatternsFound []string
	Source        string
	Excerpt       string
}

// ScanText scans text for known injection patterns, labeling the result
// with source for the audit trail.
func ScanText(text, source string) ScanResult {
	if text == "" {
		return ScanResult{Source: source}
	}
	toScan := text
	if len(toScan) > maxScanChars {
		toScan = toScan[:maxScanChars]
	}

	var found []string
	var firstLoc []int
	for _, p := range injectionPatterns {
		loc := p.regex.FindStringIndex(toScan)
		if loc == nil {
			continue
		}
		found = append(found, p.name)
		if firstLoc == nil {
			firstLoc = loc
		}
	}

	excerpt := ""
	if firstLoc != nil {
		start := firstLoc[0] - 50
		if start < 0 {
			start = 0
		}
		end := firstLoc[1] + 50
		if end > len(toScan) {
			end = len(toScan)
		}
		excerpt = strings.ReplaceAll(toScan[start:end], "\n", " ")
	}

	return ScanResult{
		Detected:      len(found) > 0,
		PatternsFound: found,
		Source:        source,
		Excerpt:       excerpt,
	}
}

// ReduceOnInjection redacts every injection-pattern match in text,
// conservatively replacing the matched span rather than rejecting the
// whole chunk.
func ReduceOnInjection(text string) string {
	for _, p := range injectionPatterns {
		text = p.regex.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}
