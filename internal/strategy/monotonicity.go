package strategy

// ViolationCheck reports whether a retry attempt violated the active
// strategy's monotonicity contract: a stage named in Constraint.PreserveStages
// that had previously passed must not fail again, unless the worker
// declared it an intended regression with a non-empty justification
// (spec §4.3).
type ViolationCheck struct {
	Violated        bool
	OffendingStage  string
}

// CheckMonotonicity inspects the newly failed stages against the
// strategy's preserved-stage list and the previously-passed set.
// regressionsIntended lists stages the worker explicitly declared as
// intended regressions; regressionJustification must be non-empty for
// the declaration to excuse a violation.
func CheckMonotonicity(
	c Constraint,
	previouslyPassed []string,
	newlyFailedStages []string,
	regressionsIntended []string,
	regressionJustification string,
) ViolationCheck {
	passedSet := make(map[string]bool, len(previouslyPassed))
	for _, s := range previouslyPassed {
		passedSet[s] = true
	}
	preserveSet := make(map[string]bool, len(c.PreserveStages))
	for _, s := range c.PreserveStages {
		preserveSet[s] = true
	}
	intendedSet := make(map[string]bool, len(regressionsIntended))
	if regressionJustification != "" {
		for _, s := range regressionsIntended {
			intendedSet[s] = true
		}
	}

	for _, stage := range newlyFailedStages {
		if preserveSet[stage] && passedSet[stage] && !intendedSet[stage] {
			return ViolationCheck{Violated: true, OffendingStage: stage}
		}
	}
	return ViolationCheck{}
}
