package model

import (
	"time"

	contextModel "github.com/talentcurate/pipeline/modules/context/model"
	shortlistModel "github.com/talentcurate/pipeline/modules/shortlist/model"
	shortlistService "github.com/talentcurate/pipeline/modules/shortlist/service"
)

// CurateRequestDTO is the HTTP body for POST /curate.
type CurateRequestDTO struct {
	CompanyID           string `json:"company_id" binding:"required"`
	RoleID              string `json:"role_id" binding:"required"`
	Limit               int    `json:"limit"`
	ForceRefresh        bool   `json:"force_refresh"`
	DisableStaleOnError bool   `json:"disable_stale_on_error"`
}

// ShortlistResponseDTO is the HTTP shape of a ShortlistResponse.
type ShortlistResponseDTO struct {
	Candidates         []CuratedCandidateDTO `json:"candidates"`
	Summary            SummaryDTO            `json:"summary"`
	FromCache          bool                  `json:"from_cache"`
	Degraded           bool                  `json:"degraded"`
	DecisionConfidence string                `json:"decision_confidence"`
	Warnings           []string              `json:"warnings"`
}

// SummaryDTO is the HTTP shape of the build's summary statistics.
type SummaryDTO struct {
	TotalSearched int     `json:"total_searched"`
	EnrichedCount int     `json:"enriched_count"`
	AverageScore  float64 `json:"average_score"`
}

// CuratedCandidateDTO is the HTTP shape of one curated candidate.
type CuratedCandidateDTO struct {
	PersonID    string `json:"person_id"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	GitHubURL   string `json:"github_url,omitempty"`

	MatchScore         float64         `json:"match_score"`
	Confidence         float64         `json:"confidence"`
	DataCompleteness   float64         `json:"data_completeness"`
	EnrichmentSources  []string        `json:"enrichment_sources"`
	ReasoningBreakdown []AgentScoreDTO `json:"reasoning_breakdown,omitempty"`
	Context            ContextDTO      `json:"context"`
}

// AgentScoreDTO is one reasoning agent's persisted verdict.
type AgentScoreDTO struct {
	Agent     string  `json:"agent"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
}

// ContextDTO is the HTTP shape of a candidate's explanation record.
type ContextDTO struct {
	WhyConsider         []WhyConsiderPointDTO `json:"why_consider"`
	Unknowns            []string              `json:"unknowns"`
	StandoutSignal      string                `json:"standout_signal,omitempty"`
	WarmPathDescription string                `json:"warm_path,omitempty"`
	InterviewQuestions  []string              `json:"interview_questions"`
	EnrichmentDetails   EnrichmentDetailsDTO  `json:"enrichment_details"`
}

// WhyConsiderPointDTO is one why-consider entry.
type WhyConsiderPointDTO struct {
	Category string   `json:"category"`
	Strength string   `json:"strength"`
	Bullets  []string `json:"bullets,omitempty"`
}

// EnrichmentDetailsDTO names the sources consulted and the data quality.
type EnrichmentDetailsDTO struct {
	Sources     []string `json:"sources"`
	DataQuality float64  `json:"data_quality"`
}

// RoleStatusDTO is one row of the cache_status response.
type RoleStatusDTO struct {
	RoleID       string     `json:"role_id"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	LastBuiltAt  *time.Time `json:"last_built_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastWarnings []string   `json:"last_warnings,omitempty"`
}

// ToDTO converts a ShortlistResponse to its HTTP shape.
func (r *ShortlistResponse) ToDTO() ShortlistResponseDTO {
	candidates := make([]CuratedCandidateDTO, 0, len(r.Candidates))
	for i := range r.Candidates {
		candidates = append(candidates, candidateToDTO(&r.Candidates[i]))
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return ShortlistResponseDTO{
		Candidates: candidates,
		Summary: SummaryDTO{
			TotalSearched: r.Summary.TotalSearched,
			EnrichedCount: r.Summary.EnrichedCount,
			AverageScore:  r.Summary.AverageScore,
		},
		FromCache:          r.FromCache,
		Degraded:           r.Degraded,
		DecisionConfidence: string(r.DecisionConfidence),
		Warnings:           warnings,
	}
}

func candidateToDTO(c *shortlistModel.CuratedCandidate) CuratedCandidateDTO {
	dto := CuratedCandidateDTO{
		MatchScore:        c.MatchScore,
		Confidence:        c.Confidence,
		DataCompleteness:  c.DataCompleteness,
		EnrichmentSources: c.EnrichmentSources,
		Context:           contextToDTO(c.Context),
	}
	if c.Person != nil {
		dto.PersonID = c.Person.ID
		dto.Name = c.Person.Name
		dto.Title = c.Person.Title
		dto.Company = c.Person.Company
		dto.Location = c.Person.Location
		dto.LinkedInURL = c.Person.LinkedInURL
		dto.GitHubURL = c.Person.GitHubURL
	}
	for _, a := range c.ReasoningBreakdown {
		dto.ReasoningBreakdown = append(dto.ReasoningBreakdown, AgentScoreDTO{
			Agent:     a.Agent,
			Score:     a.Score,
			Rationale: a.Rationale,
		})
	}
	return dto
}

func contextToDTO(c contextModel.Context) ContextDTO {
	dto := ContextDTO{
		Unknowns:            c.Unknowns,
		StandoutSignal:      c.StandoutSignal,
		WarmPathDescription: c.WarmPathDescription,
		InterviewQuestions:  c.InterviewQuestions,
		EnrichmentDetails: EnrichmentDetailsDTO{
			Sources:     c.EnrichmentDetails.Sources,
			DataQuality: c.EnrichmentDetails.DataQuality,
		},
	}
	for _, p := range c.WhyConsider {
		dto.WhyConsider = append(dto.WhyConsider, WhyConsiderPointDTO{
			Category: string(p.Category),
			Strength: string(p.Strength),
			Bullets:  p.Bullets,
		})
	}
	return dto
}

// RoleStatusesToDTO converts the shortlist service's status rows to their
// HTTP shape.
func RoleStatusesToDTO(statuses []shortlistService.RoleStatus) []RoleStatusDTO {
	out := make([]RoleStatusDTO, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, RoleStatusDTO{
			RoleID:       s.RoleID,
			Title:        s.Title,
			Status:       s.Status,
			LastBuiltAt:  s.LastBuiltAt,
			ExpiresAt:    s.ExpiresAt,
			LastWarnings: s.LastWarnings,
		})
	}
	return out
}
