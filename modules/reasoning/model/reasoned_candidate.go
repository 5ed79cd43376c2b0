// Package model defines the in-flight ReasonedCandidate entity,
// constructed by the Reasoning Ensemble.
package model

import scoringModel "github.com/talentcurate/pipeline/modules/scoring/model"

// AgentName identifies one of the four reasoning agents.
type AgentName string

const (
	AgentSkills     AgentName = "skills"
	AgentTrajectory AgentName = "trajectory"
	AgentFit        AgentName = "fit"
	AgentTiming     AgentName = "timing"
)

// AgentResult is one agent's verdict: a score in [0,100], a short
// rationale, and the confidence it self-reported (or 0 if it didn't).
type AgentResult struct {
	Agent      AgentName
	Score      float64
	Rationale  string
	Confidence float64 // 0 means "not reported"
	Failed     bool
}

// ReasonedCandidate extends ScoredCandidate with the ensemble's output.
type ReasonedCandidate struct {
	scoringModel.ScoredCandidate

	AgentResults map[AgentName]AgentResult

	AggregateScore float64 // in [0,100]
	Confidence     float64 // in [0,1]
	Degraded       bool    // fewer than two agents returned
}
