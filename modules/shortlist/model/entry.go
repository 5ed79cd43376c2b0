// Package model defines the CuratedCandidate and ShortlistCacheEntry
// entities, the persisted output of a curation build.
package model

import (
	"time"

	contextModel "github.com/talentcurate/pipeline/modules/context/model"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

// AgentScore is one reasoning agent's persisted score/rationale pair.
type AgentScore struct {
	Agent     string
	Score     float64
	Rationale string
}

// CuratedCandidate is a Person ranked and annotated by a completed
// curation build.
type CuratedCandidate struct {
	Person *talentModel.Person

	MatchScore         float64 // aggregate reasoning score, or rule score on fallback
	Confidence         float64
	DataCompleteness   float64
	EnrichmentSources  []string
	ReasoningBreakdown []AgentScore
	Context            contextModel.Context
}

// Status is a ShortlistCacheEntry's lifecycle tag.
type Status string

const (
	StatusReady    Status = "ready"
	StatusBuilding Status = "building"
	StatusFailed   Status = "failed"
)

// Summary carries the build's aggregate statistics.
type Summary struct {
	TotalSearched int
	EnrichedCount int
	AverageScore  float64
}

// DecisionConfidence is the caller-facing confidence tag: high when
// every stage succeeded, medium when any source was partially
// unavailable, low when reasoning fell back to rule scoring.
type DecisionConfidence string

const (
	ConfidenceHigh   DecisionConfidence = "high"
	ConfidenceMedium DecisionConfidence = "medium"
	ConfidenceLow    DecisionConfidence = "low"
)

// ShortlistCacheEntry is keyed by (company, role) and carries one build's
// full result.
type ShortlistCacheEntry struct {
	CompanyID string
	RoleID    string

	GeneratedAt time.Time
	ExpiresAt   time.Time

	Candidates []CuratedCandidate
	Summary    Summary
	Status     Status

	// Build-outcome fields, persisted so a cache hit reproduces the
	// original response's degraded/warnings/confidence verbatim.
	Degraded           bool
	Warnings           []string
	DecisionConfidence DecisionConfidence

	FailureReason string // populated only when Status == StatusFailed
}

// IsFresh reports whether the entry's expires-at is in the future of now.
func (e *ShortlistCacheEntry) IsFresh(now time.Time) bool {
	if e == nil {
		return false
	}
	return now.Before(e.ExpiresAt)
}
