// Package model defines the in-flight ScoredCandidate entity,
// constructed by the rule scorer and consumed by the curation engine. It
// is never persisted.
package model

import talentModel "github.com/talentcurate/pipeline/modules/talent/model"

// SkillMatch reports which required/preferred skills a candidate
// matched and which it missed.
type SkillMatch struct {
	Matched []string
	Missing []string
}

// ScoredCandidate is a Person ranked by the deterministic rule scorer.
type ScoredCandidate struct {
	Person *talentModel.Person

	Score      float64 // in [0,100]
	SkillMatch SkillMatch
	Confidence float64 // in [0,1]

	// Tie-break components, retained so sorting stays deterministic
	// end-to-end: count of matched required/preferred skills.
	MatchedRequiredCount  int
	MatchedPreferredCount int
}
