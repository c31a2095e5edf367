package integritygate

import "regexp"

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:api[_-]?key|secret|password|token)\s*=\s*['"]?[a-zA-Z0-9_\-]{8,}['"]?`),
	regexp.MustCompile(`(?m)-----BEGIN\s+(?:RSA\s+)?PRIVATE\s+KEY-----`),
	regexp.MustCompile(`(?m)-----BEGIN\s+[A-Z]+\s+PRIVATE\s+KEY-----`),
}

var networkBashPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(curl|wget|nc\s|netcat\s)\s`),
	regexp.MustCompile(`/dev/tcp/`),
	regexp.MustCompile(`(?i)\$\(.*\bcurl\b.*\)`),
}

// networkGoLikePatterns are network client call sites recognizable as
// literal text. checkNetwork applies them to Python code only; Go,
// Java, Rust and other non-bash languages are scanned with
// networkJSPatterns instead. Mirrors the original's AST walk's
// intent without a Python-AST dependency no example repo carries.
var networkGoLikePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(requests\.(get|post|put|delete)|urllib\.request|urllib3\.request)\s*\(`),
	regexp.MustCompile(`(?i)socket\.(connect|create_connection)\s*\(`),
	regexp.MustCompile(`(?i)\bhttpx\.(get|post|AsyncClient)\s*\(`),
	regexp.MustCompile(`(?i)\bnet/http\b|http\.(Get|Post|Client)\s*\(`),
}

var networkJSPatterns = []*regexp.Regexp{
	regexp.MustCompile(`fetch\s*\(`),
	regexp.MustCompile(`(?i)axios\.(get|post|create)\s*\(`),
	regexp.MustCompile(`require\s*\(\s*['"]https?://`),
}

var dangerousBashPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brm\s+-rf\s+`),
	regexp.MustCompile(`(?i)\brm\s+--recursive\s+`),
	regexp.MustCompile(`(?i)curl\s+[^|]*\|\s*bash`),
	regexp.MustCompile(`(?i)wget\s+[^|]*\|\s*(?:bash|sh)\b`),
	regexp.MustCompile(`(?m):\s*\{\s*:\s*\}\s*\|`),
}

var lockFileRegex = regexp.MustCompile(`(?i)\b\S+\.lock\b`)

var highRiskExperimentCmds = []string{
	"pip install", "pip3 install", "npm install", "yarn add", "go get", "cargo add",
}

// networkModuleImports are the Python-ish module names the network
// check treats as forbidden when imported — ported from the original's
// AST-targeted module set, matched here against import-statement text.
var networkModuleImports = []string{"requests", "urllib", "urllib3", "socket", "httpx", "http.client"}

var pythonImportPattern = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([a-zA-Z0-9_.]+)`)
