package model

// Company is the tenant context used by scoring and reasoning. It is
// never mutated by the curation pipeline.
type Company struct {
	ID       string
	Name     string
	Stage    string // e.g. "seed", "series-a", "growth", "public"
	Industry string

	TechStackSkills []string // normalised skill set used by the culture component

	IdealCandidateTraits string // free text
	AntiPatterns         string // free text
}

// NormalizeSkills normalises TechStackSkills.
func (c *Company) NormalizeSkills() {
	c.TechStackSkills = NormalizeSkillSet(c.TechStackSkills)
}
