package integritygate

import (
	"regexp"
	"strconv"
	"strings"
)

func (g *Gate) checkSecrets(in Input) *Failure {
	code := codeToCheck(in)
	for _, pat := range secretPatterns {
		loc := pat.FindStringIndex(code)
		if loc == nil {
			continue
		}
		line := strings.Count(code[:loc[0]], "\n") + 1
		match := code[loc[0]:loc[1]]
		return &Failure{
			Category:    CategorySecret,
			Evidence:    "line ~" + strconv.Itoa(line) + ": " + truncate(match, 80) + "...",
			Remediation: "Remove the hardcoded API key/secret and use environment variables.",
		}
	}
	return nil
}

func (g *Gate) checkNetwork(in Input) *Failure {
	lang := strings.ToLower(in.TargetLanguage)
	if lang == "" {
		lang = "bash"
	}
	code := codeToCheck(in)

	if lang == "python" || lang == "py" {
		if f := checkPythonNetworkImports(code); f != nil {
			return f
		}
		return scanLinesForPatterns(stripPythonTripleQuotedStrings(code), lang, networkGoLikePatterns, CategoryNetwork,
			"You attempted a network call. Use the internal MockClient or define this as an external tool requirement.")
	}

	if lang == "bash" || lang == "shell" || lang == "sh" {
		return scanLinesForPatterns(code, lang, networkBashPatterns, CategoryNetwork,
			"You attempted a network call. Use the internal MockClient or define this as an external tool requirement.")
	}
	return scanLinesForPatterns(code, lang, networkJSPatterns, CategoryNetwork,
		"You attempted a network call. Use the internal MockClient or define this as an external tool requirement.")
}

func checkPythonNetworkImports(code string) *Failure {
	code = stripPythonTripleQuotedStrings(code)
	for _, m := range pythonImportPattern.FindAllStringSubmatch(code, -1) {
		root := strings.SplitN(m[1], ".", 2)[0]
		for _, mod := range networkModuleImports {
			if root == strings.SplitN(mod, ".", 2)[0] {
				return &Failure{
					Category:    CategoryNetwork,
					Evidence:    "import " + m[1],
					Remediation: "You attempted to use '" + m[1] + "'. Use the internal MockClient or define this as an external tool requirement.",
				}
			}
		}
	}
	return nil
}

func (g *Gate) checkDangerousCommands(in Input) *Failure {
	lang := strings.ToLower(in.TargetLanguage)
	if lang != "bash" && lang != "shell" && lang != "sh" {
		return nil
	}
	return scanLinesForPatterns(codeToCheck(in), lang, dangerousBashPatterns, CategoryDangerous,
		"Remove rm -rf, curl|bash, or fork bombs. Use safer alternatives.")
}

func (g *Gate) checkImportIntegrity(in Input) *Failure {
	lang := strings.ToLower(in.TargetLanguage)
	if lang != "python" && lang != "py" {
		return nil
	}
	if len(g.cfg.TrustedPackages) == 0 {
		return nil
	}
	trusted := make(map[string]bool, len(g.cfg.TrustedPackages))
	for _, p := range g.cfg.TrustedPackages {
		trusted[strings.ToLower(strings.TrimSpace(p))] = true
	}
	code := stripPythonTripleQuotedStrings(codeToCheck(in))
	for _, m := range pythonImportPattern.FindAllStringSubmatch(code, -1) {
		root := strings.ToLower(strings.SplitN(m[1], ".", 2)[0])
		if !trusted[root] {
			return &Failure{
				Category:    CategoryImport,
				Evidence:    "import " + m[1],
				Remediation: "Package '" + root + "' is not in the trusted-packages list. Use an allowed package or define as an external tool requirement.",
			}
		}
	}
	return nil
}

// scanLinesForPatterns walks code line by line (skipping comment-only
// lines and stripping inline comments/string literals) checking each
// against patterns, mirroring the original's bash/JS heuristic for
// languages without an AST pass available in this toolchain.
func scanLinesForPatterns(code, lang string, patterns []*regexp.Regexp, category FailureCategory, remediation string) *Failure {
	for i, line := range strings.Split(code, "\n") {
		if isLikelyCommentOrString(line, lang) {
			continue
		}
		stripped := stripSingleLineComment(line, lang)
		stripped = stripQuotedLiterals(stripped)
		for _, pat := range patterns {
			if m := pat.FindString(stripped); m != "" {
				return &Failure{
					Category:    category,
					Evidence:    lineEvidence(i, stripped),
					Remediation: remediation,
				}
			}
		}
	}
	return nil
}

func isLikelyCommentOrString(line, lang string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	switch lang {
	case "python", "py":
		return strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''") || strings.HasPrefix(trimmed, "#")
	case "bash", "shell", "sh":
		return strings.HasPrefix(trimmed, "#")
	case "javascript", "typescript", "js", "ts":
		return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*")
	}
	return false
}

func stripSingleLineComment(line, lang string) string {
	switch lang {
	case "bash", "shell", "sh", "python", "py":
		return strings.SplitN(line, "#", 2)[0]
	case "javascript", "typescript", "js", "ts":
		return strings.SplitN(line, "//", 2)[0]
	}
	return line
}

// stripPythonTripleQuotedStrings blanks out the interior of
// triple-quoted string regions (docstrings and block literals),
// preserving line breaks so downstream line-number evidence stays
// accurate, before the import-name and call-pattern scans run. Without this, a
// docstring line such as `    import requests` used purely as a
// documentation example would trip the import/network scanners the
// same as a real import statement (spec scenario S9). The original's
// ast.parse/ast.walk pass over Import/ImportFrom nodes gets this for
// free; this regex-based scanner needs the region stripped first.
func stripPythonTripleQuotedStrings(code string) string {
	var out strings.Builder
	i, n := 0, len(code)
	for i < n {
		if i+3 <= n && (code[i:i+3] == `"""` || code[i:i+3] == "'''") {
			quote := code[i : i+3]
			out.WriteString(quote)
			i += 3
			for i < n {
				if i+3 <= n && code[i:i+3] == quote {
					out.WriteString(quote)
					i += 3
					break
				}
				if code[i] == '\n' {
					out.WriteByte('\n')
				} else {
					out.WriteByte(' ')
				}
				i++
			}
			continue
		}
		out.WriteByte(code[i])
		i++
	}
	return out.String()
}

// stripQuotedLiterals removes quoted-string content, replacing it with
// a space, so patterns matching against string literals (documented
// examples) don't trip the scanner.
func stripQuotedLiterals(line string) string {
	var out strings.Builder
	i := 0
	for i < len(line) {
		c := line[i]
		if c == '\'' || c == '"' {
			end := c
			i++
			for i < len(line) {
				if line[i] == '\\' {
					i += 2
					continue
				}
				if line[i] == end {
					i++
					break
				}
				i++
			}
			out.WriteByte(' ')
			continue
		}
		out.WriteByte(c)
		i++
	}
	return out.String()
}
