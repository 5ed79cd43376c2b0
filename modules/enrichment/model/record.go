// Package model defines the EnrichmentRecord entity and the
// per-person outcome sum type the Enrichment Client's contract returns.
package model

import "time"

// EnrichmentPayload carries the verified fields a bulk-enrichment
// provider returned for a person.
type EnrichmentPayload struct {
	Skills     []string
	Experience []Experience
	Education  []Education
}

// Experience mirrors talent/model.Experience without importing it, so
// this package stays a leaf the talent store can depend on.
type Experience struct {
	Title     string
	Company   string
	StartDate time.Time
	EndDate   *time.Time
}

// Education mirrors talent/model.Education.
type Education struct {
	Institution string
	Degree      string
	Field       string
	EndDate     *time.Time
}

// EnrichmentRecord is keyed by person ID and carries one provider's
// result. At most one record exists per (person, provider) pair;
// a refresh replaces it wholesale.
type EnrichmentRecord struct {
	PersonID  string
	Provider  string
	FetchedAt time.Time
	Payload   EnrichmentPayload
	Quality   float64 // in [0,1]
}

// IsFresh reports whether the record was fetched within ttl of now.
func (r *EnrichmentRecord) IsFresh(now time.Time, ttl time.Duration) bool {
	if r == nil {
		return false
	}
	return now.Sub(r.FetchedAt) <= ttl
}

// Outcome is the sum type an enrichment attempt resolves to: exactly one
// of Record, Miss or Err is populated.
type Outcome struct {
	Record *EnrichmentRecord // populated on success
	Miss   bool              // provider matched nothing (NoMatch)
	Err    error             // populated on ProviderError/BudgetExceeded
}
