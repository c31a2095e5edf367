package contextpack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/supernovae/synesis/internal/state"
)

// Retriever is the narrow interface the curator needs from the
// retrieval collaborator client (internal/retrieval implements it).
// Kept local to avoid contextpack depending on retrieval's transport
// details — only the shape of a query matters here.
type Retriever interface {
	Retrieve(ctx context.Context, query string, collections []string, topK int) ([]state.RetrievalResult, error)
}

// Config bundles the curator's tunables, sourced from hierarchical
// YAML config (spec §6) rather than hardcoded, unlike the teacher's
// builtin-pattern tables which stay code-level.
type Config struct {
	ArchStandardsCollections       []string
	TrustedSources                 []string
	CurationMode                   string // adaptive|static
	RecurateOnRetry                bool
	MaxRetrievalTokens              int
	RAGTopK                         int
	InjectionScanEnabled            bool
	BudgetAlertThreshold            float64
	ContextDriftJaccardThreshold    float64
}

// DefaultConfig mirrors the original's settings defaults.
func DefaultConfig() Config {
	return Config{
		TrustedSources:               []string{"tool_contract", "output_format", "embedded_policy", "admin_policy", "arch"},
		CurationMode:                 "adaptive",
		RecurateOnRetry:              true,
		RAGTopK:                      6,
		InjectionScanEnabled:         true,
		BudgetAlertThreshold:         0.85,
		ContextDriftJaccardThreshold: 0.2,
	}
}

// Builder produces a deterministic ContextPack from State, re-curating
// on every retry including a supplemental targeted query when the prior
// attempt failed at runtime or via an LSP check (spec §4.2).
type Builder struct {
	cfg       Config
	retriever Retriever
}

func NewBuilder(cfg Config, retriever Retriever) *Builder {
	return &Builder{cfg: cfg, retriever: retriever}
}

// entityPattern extracts error codes for targeted re-retrieval on retry.
var entityPattern = regexp.MustCompile(`(?i)\b(ORA-\d+|E\d{4}|ENOENT|ECONNREFUSED|ETIMEDOUT|ESRCH|EACCES)\b`)
var importErrPattern = regexp.MustCompile(`(?i)(?:ImportError|ModuleNotFoundError|No module named)\s+['"]?(\w+(?:\.\w+)*)['"]?`)
var undefinedNamePattern = regexp.MustCompile("(?i)(?:name|undefined reference to)\\s+['`]?(\\w+)['`]?")

// executionJSONDiagnosticsQuery pulls the structured diagnostic text
// fields out of the sandbox's raw JSON response (internal/sandbox's
// decodeExecuteResult shape: lint.output, security.output,
// execution.output, stderr, error) — the same report carries more than
// the plain stdout capture threaded through state.ExecutionResult, so
// entity extraction on retry should see it too (spec §4.2).
var executionJSONDiagnosticsQuery = mustParseJQ(
	`[.lint.output?, .security.output?, .execution.output?, .stderr?, .error?] | .[] | select(type == "string" and length > 0)`,
)

func mustParseJQ(src string) *gojq.Query {
	q, err := gojq.Parse(src)
	if err != nil {
		panic("contextpack: invalid jq query: " + err.Error())
	}
	return q
}

// diagnosticsFromExecutionJSON runs executionJSONDiagnosticsQuery over
// the sandbox's raw JSON response, returning every matched text field
// joined for the entity regexes in extractEntitiesFromStderr to scan.
// Returns "" on anything that isn't a decodable JSON object, so callers
// can fall back to the plain-stdout extraction path unconditionally.
func diagnosticsFromExecutionJSON(rawJSON string) string {
	if rawJSON == "" {
		return ""
	}
	var decoded any
	if err := json.Unmarshal([]byte(rawJSON), &decoded); err != nil {
		return ""
	}
	var parts []string
	iter := executionJSONDiagnosticsQuery.Run(decoded)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			slog.Debug("contextpack: execution json diagnostics query failed", "error", err)
			continue
		}
		if s, ok := v.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func extractEntitiesFromStderr(executionResult string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, m := range entityPattern.FindAllStringSubmatch(executionResult, -1) {
		add(m[1])
	}
	for _, m := range importErrPattern.FindAllStringSubmatch(executionResult, -1) {
		add(strings.SplitN(m[1], ".", 2)[0])
	}
	for _, m := range undefinedNamePattern.FindAllStringSubmatch(executionResult, -1) {
		add(m[1])
	}
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// Build assembles the ContextPack for one worker invocation.
func (b *Builder) Build(ctx context.Context, s *state.State) *state.ContextPack {
	var orgStandards []state.Chunk
	if len(b.cfg.ArchStandardsCollections) > 0 && b.retriever != nil {
		query := truncate(s.TaskDescription, 300)
		results, err := b.retriever.Retrieve(ctx, query, b.cfg.ArchStandardsCollections, 3)
		if err != nil {
			slog.Debug("contextpack: arch standards fetch skipped", "error", err)
		}
		for i, r := range results {
			orgStandards = append(orgStandards, state.Chunk{
				ID:     docIDOrDefault(r.Source, fmt.Sprintf("arch_%d", i)),
				Text:   r.Text,
				Origin: state.OriginTrusted,
				Tier:   state.TierOrgStandards,
				Source: "arch",
				Score:  scoreOf(r),
			})
		}
	}

	projectManifest := projectManifestChunks(s)

	tier2Tier3Conflicts := detectTier2Tier3Conflicts(orgStandards, projectManifest)

	pinned := buildPinnedContext(s, orgStandards, projectManifest)
	for _, c := range tier2Tier3Conflicts {
		pinned = append(pinned, buildSyntheticConflictChunk(c))
	}

	retrieved, excluded, sanitizationActions := b.selectRetrieved(ctx, s)

	trusted := filterBySource(pinned, b.cfg.TrustedSources)
	untrustedCombined := joinChunkText(retrieved)
	conflictWarnings := detectConflicts(trusted, untrustedCombined)

	contextHash := computeContextHash(pinned, retrieved)
	totalTokens := estimateTokens(pinned) + estimateTokens(retrieved)

	contextID := fmt.Sprintf("%s_%d", truncate(s.UserID, 8), s.IterationCount)
	snapshotVersion := fmt.Sprintf("turn_%d_v%s", s.IterationCount, truncate(contextHash, 8))

	budgetAlert := b.budgetAlert(excluded)
	resyncMessage := b.contextResyncMessage(s, pinned, retrieved)

	return &state.ContextPack{
		Pinned:               pinned,
		Retrieved:            retrieved,
		Excluded:             excluded,
		TrustedChunks:        trusted,
		UntrustedChunks:      retrieved,
		SanitizationActions:  sanitizationActions,
		ConflictWarnings:     conflictWarnings,
		ContextConflicts:     tier2Tier3Conflicts,
		ContextHash:          contextHash,
		ContextID:            contextID,
		SnapshotVersion:      snapshotVersion,
		TotalTokensEstimate:  totalTokens,
		BudgetAlert:          budgetAlert,
		ContextResyncMessage: resyncMessage,
	}
}

func (b *Builder) selectRetrieved(ctx context.Context, s *state.State) ([]state.Chunk, []state.ExcludedChunk, []state.SanitizationAction) {
	ragResults := s.RAGResults

	priorityIDs := b.promotedExcludedIDs(s)
	entityChunks := b.pivotEntityChunks(ctx, s)

	merged := mergeRetrieval(entityChunks, ragResults, priorityIDs)

	var retrieved []state.Chunk
	var excluded []state.ExcludedChunk
	var sanitizationActions []state.SanitizationAction

	budgetChars := b.cfg.MaxRetrievalTokens * 4
	charsUsed := 0
	topK := b.cfg.RAGTopK
	if topK <= 0 {
		topK = 6
	}

	for i, r := range merged {
		text := r.Text
		docID := docIDOrDefault(r.Source, fmt.Sprintf("rag_%d", i))
		if b.cfg.InjectionScanEnabled && text != "" {
			scan := ScanText(text, "rag_"+docID)
			if scan.Detected {
				text = ReduceOnInjection(text)
				sanitizationActions = append(sanitizationActions, state.SanitizationAction{
					ChunkID: docID,
					Action:  state.SanitizationReduce,
					Pattern: strings.Join(scan.PatternsFound, ","),
				})
			}
		}
		exceedsBudget := budgetChars > 0 && charsUsed+len(text) > budgetChars
		if i < topK && !exceedsBudget {
			charsUsed += len(text)
			retrieved = append(retrieved, state.Chunk{
				ID:     docID,
				Text:   text,
				Origin: state.OriginUntrusted,
				Source: "rag",
				Score:  scoreOf(r),
			})
			continue
		}
		reason := state.ExcludeBelowThreshold
		if exceedsBudget {
			reason = state.ExcludeBudgetExceeded
		}
		excluded = append(excluded, state.ExcludedChunk{
			Chunk: state.Chunk{
				ID:    docID,
				Text:  truncate(text, 200),
				Score: scoreOf(r),
			},
			Reason: reason,
		})
	}
	return retrieved, excluded, sanitizationActions
}

// promotedExcludedIDs finds doc IDs from the prior pack's excluded set
// whose snippet keywords appear in the latest stderr — these are
// promoted ahead of the normal merge order (spec §4.2 context pivot).
func (b *Builder) promotedExcludedIDs(s *state.State) map[string]bool {
	priority := map[string]bool{}
	if s.IterationCount == 0 || s.ExecutionResult == "" || s.ContextPack == nil {
		return priority
	}
	stderrLower := strings.ToLower(s.ExecutionResult)
	for _, ex := range s.ContextPack.Excluded {
		if ex.ID == "" || ex.Text == "" {
			continue
		}
		words := strings.Fields(strings.ToLower(ex.Text))
		if len(words) > 15 {
			words = words[:15]
		}
		for _, w := range words {
			if strings.Contains(stderrLower, w) {
				priority[ex.ID] = true
				break
			}
		}
	}
	return priority
}

func (b *Builder) pivotEntityChunks(ctx context.Context, s *state.State) []state.RetrievalResult {
	pivotPlausible := s.FailureType == state.FailureTypeLSP || s.FailureType == state.FailureTypeRuntime
	if b.cfg.CurationMode != "adaptive" || s.IterationCount == 0 || s.ExecutionResult == "" ||
		!pivotPlausible || !b.cfg.RecurateOnRetry || b.retriever == nil {
		return nil
	}
	diagnosticText := s.ExecutionResult
	if jsonDiag := diagnosticsFromExecutionJSON(s.ExecutionResultJSON); jsonDiag != "" {
		diagnosticText += "\n" + jsonDiag
	}
	entities := extractEntitiesFromStderr(diagnosticText)
	query := strings.Join(entities, " ")
	if query == "" {
		query = extractErrorForRAG(diagnosticText)
	}
	if query == "" {
		return nil
	}
	topK := 4
	if b.cfg.RAGTopK < topK {
		topK = b.cfg.RAGTopK
	}
	collections := s.RAGCollectionsQueried
	if len(collections) == 0 {
		collections = []string{s.TargetLanguage + "_v1"}
	}
	results, err := b.retriever.Retrieve(ctx, query, collections, topK)
	if err != nil {
		slog.Debug("contextpack: targeted retry retrieval failed", "error", err)
		return nil
	}
	slog.Info("contextpack: pivoted on retry", "entities", entities, "count", len(results))
	return results
}

func (b *Builder) budgetAlert(excluded []state.ExcludedChunk) string {
	for _, ex := range excluded {
		if ex.Reason == state.ExcludeBudgetExceeded && ex.Score >= b.cfg.BudgetAlertThreshold {
			return fmt.Sprintf(
				"I have more relevant documentation on %s (score %.2f), but I've reached my token limit. "+
					"Would you like me to swap current context for the extra documentation?",
				ex.ID, ex.Score,
			)
		}
	}
	return ""
}

func (b *Builder) contextResyncMessage(s *state.State, pinned, retrieved []state.Chunk) string {
	if s.ContextPack == nil || s.IterationCount == 0 {
		return ""
	}
	prevIDs := idSet(s.ContextPack.Pinned, s.ContextPack.Retrieved)
	currIDs := idSet(pinned, retrieved)
	jaccard := jaccardSimilarity(prevIDs, currIDs)
	if jaccard < b.cfg.ContextDriftJaccardThreshold {
		return "Note: Based on the build errors, I have pivoted my focus. The context has shifted significantly. Review updated plan?"
	}
	return ""
}

func extractErrorForRAG(executionResult string) string {
	trimmed := strings.TrimSpace(executionResult)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if len(line) > 10 {
			return truncate(line, 300)
		}
	}
	return truncate(executionResult, 300)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func docIDOrDefault(source, fallback string) string {
	if source != "" {
		return source
	}
	return fallback
}

func scoreOf(r state.RetrievalResult) float64 {
	if r.RerankScore != 0 {
		return r.RerankScore
	}
	if r.RRFScore != 0 {
		return r.RRFScore
	}
	return 0
}

func estimateTokens(chunks []state.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += len(strings.Fields(c.Text)) * 2
	}
	return total
}

func joinChunkText(chunks []state.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n")
}

func filterBySource(chunks []state.Chunk, sources []string) []state.Chunk {
	allow := make(map[string]bool, len(sources))
	for _, s := range sources {
		allow[s] = true
	}
	var out []state.Chunk
	for _, c := range chunks {
		if allow[c.Source] {
			out = append(out, c)
		}
	}
	return out
}

// mergeRetrieval orders priority-ID rag results first, then entity
// chunks, then the remaining rag results, deduping entity chunks and
// remaining rag results by (source, text prefix); priority-ID results
// are not deduped.
func mergeRetrieval(entityChunks, ragResults []state.RetrievalResult, priorityIDs map[string]bool) []state.RetrievalResult {
	seen := make(map[string]bool)
	key := func(r state.RetrievalResult) string {
		t := r.Text
		if len(t) > 80 {
			t = t[:80]
		}
		return r.Source + "\x00" + t
	}

	var merged []state.RetrievalResult
	for _, r := range entityChunks {
		k := key(r)
		if !seen[k] {
			seen[k] = true
			merged = append(merged, r)
		}
	}

	var promoted, rest []state.RetrievalResult
	for i, r := range ragResults {
		docID := docIDOrDefault(r.Source, fmt.Sprintf("rag_%d", i))
		if priorityIDs[docID] {
			promoted = append(promoted, r)
			continue
		}
		k := key(r)
		if !seen[k] {
			seen[k] = true
			rest = append(rest, r)
		}
	}

	merged = append(promoted, merged...)
	merged = append(merged, rest...)
	return merged
}
