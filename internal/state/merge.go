package state

// StageDelta is the value a Stage's Run returns. It is applied to a State
// via Merge, which implements the monotonic-merge rule from spec §9:
// append-only fields use list concatenation, scalar fields take the
// latest non-nil/non-zero value supplied by the delta.
//
// Every field is a pointer or slice so the zero value means "unset" and
// is never mistaken for an explicit overwrite with the zero value.
type StageDelta struct {
	TaskSize         *TaskSize
	TaskType         *TaskType
	InteractionMode  *InteractionMode
	TargetLanguage   *string
	WorkerPromptTier *string
	BypassSupervisor *bool
	BypassPlanner    *bool

	RAGContext            []string
	RAGResults            []RetrievalResult
	ContextPack           *ContextPack
	RAGCollectionsQueried []string
	RetrievalParams       *RetrievalParams

	GeneratedCode *string
	PatchOps      []PatchOp
	FilesTouched  []string
	UnifiedDiff   *string
	CodeRef       *string

	ExecutionResult         *string
	ExecutionResultJSON     *string
	ExecutionExitCode       *int
	ExecutionLintPassed     *bool
	ExecutionSecurityPassed *bool
	LSPDiagnostics          []Diagnostic
	SandboxSameFailure      *bool

	IntegrityGatePassed *bool

	WhatIfAnalyses []WhatIfAnalysis
	CriticApproved *bool
	CriticFeedback *string
	ResidualRisks  []string
	BlockingIssues []string

	// IterationIncrement is added to IterationCount. It is set only by
	// the revision-loop controller on a genuine failure cycle — never
	// by a stage directly.
	IterationIncrement int

	NewStagesPassed []string

	FailureType            *FailureType
	NewFailureIDsSeen      []string
	RevisionStrategy       *string
	NewRevisionStrategyTried []string
	RevisionConstraints    *RevisionConstraint
	StrategyViolation      *bool
	RegressionsIntended    []string
	RegressionJustification *string

	StopReason *StopReason

	NewNodeTraces []NodeTrace
	NewToolRefs   []ToolRef

	Budgets *Budgets

	SupervisorGuard      *bool
	TouchedFilesManifest []string
	CurationMode         *string
	NeedsClarification   *bool
	ClarificationSource  *string

	CurrentNode *string
	NextNode    *string
	Error       *string
}

// Merge applies delta to s in place and returns s for chaining.
func (s *State) Merge(delta StageDelta) *State {
	if delta.TaskSize != nil {
		s.TaskSize = *delta.TaskSize
	}
	if delta.TaskType != nil {
		s.TaskType = *delta.TaskType
	}
	if delta.InteractionMode != nil {
		s.InteractionMode = *delta.InteractionMode
	}
	if delta.TargetLanguage != nil {
		s.TargetLanguage = *delta.TargetLanguage
	}
	if delta.WorkerPromptTier != nil {
		s.WorkerPromptTier = *delta.WorkerPromptTier
	}
	if delta.BypassSupervisor != nil {
		s.BypassSupervisor = *delta.BypassSupervisor
	}
	if delta.BypassPlanner != nil {
		s.BypassPlanner = *delta.BypassPlanner
	}

	if delta.RAGContext != nil {
		s.RAGContext = delta.RAGContext
	}
	if delta.RAGResults != nil {
		s.RAGResults = delta.RAGResults
	}
	if delta.ContextPack != nil {
		s.ContextPack = delta.ContextPack
	}
	if delta.RAGCollectionsQueried != nil {
		s.RAGCollectionsQueried = append(s.RAGCollectionsQueried, delta.RAGCollectionsQueried...)
	}
	if delta.RetrievalParams != nil {
		s.RetrievalParams = delta.RetrievalParams
	}

	if delta.GeneratedCode != nil {
		s.GeneratedCode = *delta.GeneratedCode
	}
	if delta.PatchOps != nil {
		s.PatchOps = delta.PatchOps
	}
	if delta.FilesTouched != nil {
		s.FilesTouched = delta.FilesTouched
	}
	if delta.UnifiedDiff != nil {
		s.UnifiedDiff = *delta.UnifiedDiff
	}
	if delta.CodeRef != nil {
		s.CodeRef = *delta.CodeRef
	}

	if delta.ExecutionResult != nil {
		s.ExecutionResult = *delta.ExecutionResult
	}
	if delta.ExecutionResultJSON != nil {
		s.ExecutionResultJSON = *delta.ExecutionResultJSON
	}
	if delta.ExecutionExitCode != nil {
		s.ExecutionExitCode = delta.ExecutionExitCode
	}
	if delta.ExecutionLintPassed != nil {
		s.ExecutionLintPassed = *delta.ExecutionLintPassed
	}
	if delta.ExecutionSecurityPassed != nil {
		s.ExecutionSecurityPassed = *delta.ExecutionSecurityPassed
	}
	if delta.LSPDiagnostics != nil {
		s.LSPDiagnostics = delta.LSPDiagnostics
	}
	if delta.SandboxSameFailure != nil {
		s.SandboxSameFailure = *delta.SandboxSameFailure
	}
	if delta.IntegrityGatePassed != nil {
		s.IntegrityGatePassed = *delta.IntegrityGatePassed
	}

	if delta.WhatIfAnalyses != nil {
		s.WhatIfAnalyses = delta.WhatIfAnalyses
	}
	if delta.CriticApproved != nil {
		s.CriticApproved = *delta.CriticApproved
	}
	if delta.CriticFeedback != nil {
		s.CriticFeedback = *delta.CriticFeedback
	}
	if delta.ResidualRisks != nil {
		s.ResidualRisks = delta.ResidualRisks
	}
	if delta.BlockingIssues != nil {
		s.BlockingIssues = delta.BlockingIssues
	}

	s.IterationCount += delta.IterationIncrement

	for _, stage := range delta.NewStagesPassed {
		if !s.HasStagePassed(stage) {
			s.StagesPassed = append(s.StagesPassed, stage)
		}
	}

	if delta.FailureType != nil {
		s.FailureType = *delta.FailureType
	}
	for _, fp := range delta.NewFailureIDsSeen {
		if !s.HasSeenFailure(fp) {
			s.FailureIDsSeen = append(s.FailureIDsSeen, fp)
		}
	}
	if delta.RevisionStrategy != nil {
		s.RevisionStrategy = *delta.RevisionStrategy
	}
	for _, strat := range delta.NewRevisionStrategyTried {
		if !s.HasTriedStrategy(strat) {
			s.RevisionStrategiesTried = append(s.RevisionStrategiesTried, strat)
		}
	}
	if delta.RevisionConstraints != nil {
		s.RevisionConstraints = delta.RevisionConstraints
	}
	if delta.StrategyViolation != nil {
		s.StrategyViolation = *delta.StrategyViolation
	}
	if delta.RegressionsIntended != nil {
		s.RegressionsIntended = delta.RegressionsIntended
	}
	if delta.RegressionJustification != nil {
		s.RegressionJustification = *delta.RegressionJustification
	}

	if delta.StopReason != nil {
		s.StopReason = *delta.StopReason
	}

	s.NodeTraces = append(s.NodeTraces, delta.NewNodeTraces...)
	s.ToolRefs = append(s.ToolRefs, delta.NewToolRefs...)

	if delta.Budgets != nil {
		s.Budgets = *delta.Budgets
	}

	if delta.SupervisorGuard != nil {
		s.SupervisorGuard = *delta.SupervisorGuard
	}
	if delta.TouchedFilesManifest != nil {
		s.TouchedFilesManifest = delta.TouchedFilesManifest
	}
	if delta.CurationMode != nil {
		s.CurationMode = *delta.CurationMode
	}
	if delta.NeedsClarification != nil {
		s.NeedsClarification = *delta.NeedsClarification
	}
	if delta.ClarificationSource != nil {
		s.ClarificationSource = *delta.ClarificationSource
	}

	if delta.CurrentNode != nil {
		s.CurrentNode = *delta.CurrentNode
	}
	if delta.NextNode != nil {
		s.NextNode = *delta.NextNode
	}
	if delta.Error != nil {
		s.Error = *delta.Error
	}

	return s
}
