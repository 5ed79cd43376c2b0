// Package model defines the Curation Engine's request/response types
// and the error taxonomy mapping the engine's failures to HTTP
// codes.
package model

import (
	shortlistModel "github.com/talentcurate/pipeline/modules/shortlist/model"
)

// CurateRequest is the single curate operation's input.
type CurateRequest struct {
	CompanyID    string
	RoleID       string
	Limit        int  // clamped to [1, 50]; 0 means the default of 15
	ForceRefresh bool // bypasses the cache read but still respects the build lease

	// DisableStaleOnError turns off the serve-expired-entry-on-failure
	// behaviour for this request; it is on by default.
	DisableStaleOnError bool
}

// ShortlistResponse is the curate operation's output: the ordered
// curated candidates truncated to the request's limit, the build's
// summary statistics, and the origin/degradation tags.
type ShortlistResponse struct {
	Candidates []shortlistModel.CuratedCandidate
	Summary    shortlistModel.Summary

	FromCache          bool
	Degraded           bool
	DecisionConfidence shortlistModel.DecisionConfidence
	Warnings           []string
}
