// Package model defines the Research Client's output type.
package model

// HighlightType enumerates the kinds of research highlight the web
// research provider can surface.
type HighlightType string

const (
	HighlightGitHub      HighlightType = "github"
	HighlightPublication HighlightType = "publication"
	HighlightAchievement HighlightType = "achievement"
	HighlightSkill       HighlightType = "skill"
)

// Highlight is one structured finding about a candidate from the
// web-research provider.
type Highlight struct {
	Type        HighlightType
	Description string
	URL         string // empty means none
}
