package model

import (
	"sort"
	"strings"
	"time"
)

// Experience is a single entry in a Person's work history.
type Experience struct {
	Title     string
	Company   string
	StartDate time.Time
	EndDate   *time.Time // nil means current
}

// Education is a single entry in a Person's education history.
type Education struct {
	Institution string
	Degree      string
	Field       string
	EndDate     *time.Time
}

// Person is a candidate record in the tenant's talent graph.
type Person struct {
	ID       string
	Name     string
	Title    string
	Company  string
	Location string

	LinkedInURL string // empty means absent
	GitHubURL   string // empty means absent

	Skills     []string
	Experience []Experience
	Education  []Education

	// Sources records which imports/connections contributed this record
	// (e.g. "linkedin-sync", "csv-import", "external-search").
	Sources []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeSkills lowercases, trims, deduplicates and sorts p.Skills in
// place.
func (p *Person) NormalizeSkills() {
	p.Skills = NormalizeSkillSet(p.Skills)
}

// NormalizeSkillSet lowercases, trims, deduplicates and sorts a skill list.
// Shared by Person and Role so both sides of a skill-match comparison are
// normalised the same way.
func NormalizeSkillSet(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// HasGitHub reports whether the person has a GitHub reference.
func (p *Person) HasGitHub() bool { return p.GitHubURL != "" }

// HasLinkedIn reports whether the person has a LinkedIn reference.
func (p *Person) HasLinkedIn() bool { return p.LinkedInURL != "" }

// HasHeadline reports whether the person has a non-empty current title.
func (p *Person) HasHeadline() bool { return strings.TrimSpace(p.Title) != "" }

// FromImportedNetwork reports whether any source attribution indicates
// the person arrived via the tenant's own import/connection graph, as
// opposed to external search. Used by the culture component of the rule
// scorer to decide the no-tech-stack-overlap fallback score.
func (p *Person) FromImportedNetwork() bool {
	for _, s := range p.Sources {
		if s != "" && s != "external-search" {
			return true
		}
	}
	return false
}

// YearsOfExperience sums the duration of every Experience entry,
// treating a nil EndDate as ongoing until now. Overlapping entries are
// summed as given (no de-overlap logic) since the source data already
// reflects distinct roles.
func (p *Person) YearsOfExperience(now time.Time) float64 {
	var total float64
	for _, e := range p.Experience {
		end := now
		if e.EndDate != nil {
			end = *e.EndDate
		}
		if end.Before(e.StartDate) {
			continue
		}
		total += end.Sub(e.StartDate).Hours() / (24 * 365.25)
	}
	return total
}

// Completeness computes the fraction of the six fields the rule scorer's
// confidence calculation considers: title, company, location,
// skills, experience, education.
func (p *Person) Completeness() float64 {
	present := 0
	total := 6
	if strings.TrimSpace(p.Title) != "" {
		present++
	}
	if strings.TrimSpace(p.Company) != "" {
		present++
	}
	if strings.TrimSpace(p.Location) != "" {
		present++
	}
	if len(p.Skills) > 0 {
		present++
	}
	if len(p.Experience) > 0 {
		present++
	}
	if len(p.Education) > 0 {
		present++
	}
	return float64(present) / float64(total)
}
