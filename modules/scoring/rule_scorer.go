// Package scoring implements the Rule Scorer: a deterministic,
// purely CPU-bound fit score over every candidate, computed before any
// expensive enrichment or reasoning call. The weights and tie-breaking
// rules below are this component's observable contract — re-ordering
// the implementation is fine, changing the numbers is not.
package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/talentcurate/pipeline/modules/scoring/model"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

const (
	weightSkills     = 40.0
	weightExperience = 30.0
	weightCulture    = 20.0
	weightSignals    = 10.0
)

// Score computes a ScoredCandidate for person against role and company.
func Score(person *talentModel.Person, role *talentModel.Role, company *talentModel.Company) model.ScoredCandidate {
	skillsScore, match, matchedRequired, matchedPreferred := scoreSkills(person, role)
	experienceScore := scoreExperience(person, role)
	cultureScore := scoreCulture(person, company)
	signalsScore := scoreSignals(person)

	total := skillsScore + experienceScore + cultureScore + signalsScore

	return model.ScoredCandidate{
		Person:                person,
		Score:                 total,
		SkillMatch:            match,
		Confidence:            person.Completeness(),
		MatchedRequiredCount:  matchedRequired,
		MatchedPreferredCount: matchedPreferred,
	}
}

// scoreSkills computes the skills component (weight 0.40).
func scoreSkills(person *talentModel.Person, role *talentModel.Role) (float64, model.SkillMatch, int, int) {
	skillSet := make(map[string]struct{}, len(person.Skills))
	for _, s := range person.Skills {
		skillSet[s] = struct{}{}
	}

	var raw, achievable float64
	var match model.SkillMatch
	matchedRequired, matchedPreferred := 0, 0

	for _, req := range role.RequiredSkills {
		achievable += 1.0
		switch {
		case skillPresent(skillSet, req):
			raw += 1.0
			matchedRequired++
			match.Matched = append(match.Matched, req)
		case titleOrExperienceContains(person, req):
			raw += 0.5
			matchedRequired++
			match.Matched = append(match.Matched, req)
		default:
			match.Missing = append(match.Missing, req)
		}
	}

	for _, pref := range role.PreferredSkills {
		achievable += 0.5
		if skillPresent(skillSet, pref) || titleOrExperienceContains(person, pref) {
			raw += 0.5
			matchedPreferred++
			match.Matched = append(match.Matched, pref)
		}
	}

	if achievable == 0 {
		// Edge case: a role with no required or preferred skills is
		// a non-discriminator — every candidate scores the full weight.
		return weightSkills, match, matchedRequired, matchedPreferred
	}

	score := (raw / achievable) * weightSkills
	return score, match, matchedRequired, matchedPreferred
}

func skillPresent(skillSet map[string]struct{}, skill string) bool {
	_, ok := skillSet[skill]
	return ok
}

// titleOrExperienceContains reports whether skill appears substring-wise
// in the candidate's current title or any experience entry's title,
// case-insensitively (both sides are already normalised lowercase where
// applicable, but titles are free text so we lower both here).
func titleOrExperienceContains(person *talentModel.Person, skill string) bool {
	skill = strings.ToLower(skill)
	if strings.Contains(strings.ToLower(person.Title), skill) {
		return true
	}
	for _, e := range person.Experience {
		if strings.Contains(strings.ToLower(e.Title), skill) {
			return true
		}
	}
	return false
}

// scoreExperience computes the experience component (weight 0.30).
func scoreExperience(person *talentModel.Person, role *talentModel.Role) float64 {
	if role.MinYearsExperience == nil {
		return 24.0
	}
	minYears := float64(*role.MinYearsExperience)
	if minYears <= 0 {
		return weightExperience
	}
	years := person.YearsOfExperience(time.Now())
	if years >= minYears {
		return weightExperience
	}
	return (years / minYears) * weightExperience
}

// scoreCulture computes the culture component (weight 0.20). A company
// with no declared tech stack yields zero overlap, so every candidate
// lands in the absence branch: 12 flat from the imported network, 0
// otherwise.
func scoreCulture(person *talentModel.Person, company *talentModel.Company) float64 {
	personSkills := make(map[string]struct{}, len(person.Skills))
	for _, s := range person.Skills {
		personSkills[s] = struct{}{}
	}

	overlap := 0
	for _, s := range company.TechStackSkills {
		if _, ok := personSkills[s]; ok {
			overlap++
		}
	}

	if overlap > 0 {
		return (float64(overlap) / float64(len(company.TechStackSkills))) * weightCulture
	}
	if person.FromImportedNetwork() {
		return 12.0
	}
	return 0.0
}

// scoreSignals computes the signals component (weight 0.10).
func scoreSignals(person *talentModel.Person) float64 {
	var score float64
	if person.HasGitHub() {
		score += 5.0
	}
	if person.HasLinkedIn() {
		score += 3.0
	}
	if person.HasHeadline() {
		score += 2.0
	}
	return score
}

// Rank sorts candidates by (score desc, completeness desc, stable id
// asc) so the same input always yields the same shortlist. Within full
// score-and-completeness ties, the matched required and preferred skill
// counts refine the order before falling back to the stable id.
func Rank(candidates []model.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.MatchedRequiredCount != b.MatchedRequiredCount {
			return a.MatchedRequiredCount > b.MatchedRequiredCount
		}
		if a.MatchedPreferredCount != b.MatchedPreferredCount {
			return a.MatchedPreferredCount > b.MatchedPreferredCount
		}
		return a.Person.ID < b.Person.ID
	})
}
