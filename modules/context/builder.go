// Package context implements the Context Builder: a pure,
// CPU-bound transform from a ReasonedCandidate into the user-visible
// Context record. It never suspends and never calls an upstream service.
package context

import (
	"fmt"
	"strings"

	"github.com/talentcurate/pipeline/modules/context/model"
	enrichmentModel "github.com/talentcurate/pipeline/modules/enrichment/model"
	reasoningModel "github.com/talentcurate/pipeline/modules/reasoning/model"
	researchModel "github.com/talentcurate/pipeline/modules/research/model"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

// categoryAgent maps each why-consider category to the reasoning agent
// whose score drives its strength label.
var categoryAgent = map[model.Category]reasoningModel.AgentName{
	model.CategorySkillMatch: reasoningModel.AgentSkills,
	model.CategoryTrajectory: reasoningModel.AgentTrajectory,
	model.CategoryCompanyFit: reasoningModel.AgentFit,
	model.CategoryTiming:     reasoningModel.AgentTiming,
}

var categoryOrder = []model.Category{
	model.CategorySkillMatch,
	model.CategoryTrajectory,
	model.CategoryCompanyFit,
	model.CategoryTiming,
}

// Inputs bundles everything the builder needs for one candidate.
type Inputs struct {
	Reasoned     *reasoningModel.ReasonedCandidate
	Role         *talentModel.Role
	Company      *talentModel.Company
	Enrichment   *enrichmentModel.EnrichmentRecord
	Highlights   []researchModel.Highlight
	OutreachDone bool // whether prior outreach toward this candidate is on record
}

// Build constructs a Context for one reasoned candidate.
func Build(in Inputs) model.Context {
	ctx := model.Context{
		WhyConsider:       buildWhyConsider(in.Reasoned),
		Unknowns:          buildUnknowns(in.Reasoned, in.Role, in.OutreachDone),
		StandoutSignal:    standoutSignal(in.Highlights),
		EnrichmentDetails: buildEnrichmentDetails(in),
	}
	ctx.InterviewQuestions = buildInterviewQuestions(ctx.Unknowns, in.Reasoned)
	return ctx
}

func buildWhyConsider(rc *reasoningModel.ReasonedCandidate) []model.WhyConsiderPoint {
	if rc == nil || len(rc.AgentResults) == 0 {
		return nil
	}

	points := make([]model.WhyConsiderPoint, 0, len(categoryOrder))
	for _, category := range categoryOrder {
		agentName := categoryAgent[category]
		result, ok := rc.AgentResults[agentName]
		points = append(points, model.WhyConsiderPoint{
			Category: category,
			Strength: strengthFor(result, ok),
			Bullets:  bulletsFrom(result, ok),
		})
	}
	return points
}

func strengthFor(r reasoningModel.AgentResult, present bool) model.Strength {
	if !present || r.Failed {
		return model.StrengthUnknown
	}
	switch {
	case r.Score >= 75:
		return model.StrengthHigh
	case r.Score >= 50:
		return model.StrengthMedium
	case r.Score > 0:
		return model.StrengthLow
	default:
		return model.StrengthUnknown
	}
}

// bulletsFrom splits an agent's rationale into at most three short
// statements, preferring verbatim fragments of the original sentence.
func bulletsFrom(r reasoningModel.AgentResult, present bool) []string {
	if !present || r.Failed || strings.TrimSpace(r.Rationale) == "" {
		return nil
	}

	raw := strings.FieldsFunc(r.Rationale, func(c rune) bool {
		return c == '.' || c == ';'
	})
	bullets := make([]string, 0, 3)
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		bullets = append(bullets, s)
		if len(bullets) == 3 {
			break
		}
	}
	return bullets
}

func buildUnknowns(rc *reasoningModel.ReasonedCandidate, role *talentModel.Role, outreachDone bool) []string {
	var unknowns []string

	if rc != nil {
		unknowns = append(unknowns, rc.SkillMatch.Missing...)
	} else if role != nil {
		unknowns = append(unknowns, role.RequiredSkills...)
	}

	if !outreachDone {
		unknowns = append(unknowns, "Interest in this opportunity")
	}
	unknowns = append(unknowns, "Availability and start date")

	return unknowns
}

func standoutSignal(highlights []researchModel.Highlight) string {
	for _, h := range highlights {
		if h.Type == researchModel.HighlightGitHub || h.Type == researchModel.HighlightPublication {
			return h.Description
		}
	}
	return ""
}

// buildInterviewQuestions generates up to five questions from the
// unknowns list plus the candidate's weakest reasoning component.
func buildInterviewQuestions(unknowns []string, rc *reasoningModel.ReasonedCandidate) []string {
	questions := make([]string, 0, 5)
	for _, u := range unknowns {
		questions = append(questions, fmt.Sprintf("Ask about: %s", u))
		if len(questions) == 5 {
			return questions
		}
	}

	if weakest, ok := weakestCategory(rc); ok {
		questions = append(questions, fmt.Sprintf("Probe the candidate's %s further, given a lower-confidence signal there.", weakest))
	}
	if len(questions) > 5 {
		questions = questions[:5]
	}
	return questions
}

func weakestCategory(rc *reasoningModel.ReasonedCandidate) (model.Category, bool) {
	if rc == nil || len(rc.AgentResults) == 0 {
		return "", false
	}
	var weakestCat model.Category
	lowest := 101.0
	found := false
	for _, category := range categoryOrder {
		r, ok := rc.AgentResults[categoryAgent[category]]
		if !ok || r.Failed {
			continue
		}
		if r.Score < lowest {
			lowest = r.Score
			weakestCat = category
			found = true
		}
	}
	return weakestCat, found
}

func buildEnrichmentDetails(in Inputs) model.EnrichmentDetails {
	sources := []string{"manual"}
	if in.Enrichment != nil {
		sources = append(sources, "pdl")
	}
	if len(in.Highlights) > 0 {
		sources = append(sources, "perplexity")
	}

	completeness := 0.0
	if in.Reasoned != nil && in.Reasoned.Person != nil {
		completeness = in.Reasoned.Person.Completeness()
	}

	reasoningConfidence := 0.0
	if in.Enrichment != nil && in.Reasoned != nil && !in.Reasoned.Degraded {
		reasoningConfidence = in.Reasoned.Confidence
	}

	return model.EnrichmentDetails{
		Sources:     sources,
		DataQuality: (completeness + reasoningConfidence) / 2,
	}
}
