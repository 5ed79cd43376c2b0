// Package ports declares the Talent Store contract. The curation
// engine depends only on this interface; the Postgres-backed
// implementation in ../repository stands in for the external talent
// graph service and can be swapped for an HTTP client against the real
// one without touching the engine.
package ports

import (
	"context"

	"github.com/talentcurate/pipeline/modules/enrichment/model"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

// Store is the read-only (from the pipeline's point of view) accessor
// over a company's talent graph, plus the enrichment record passthrough
// the Enrichment Cache wraps.
type Store interface {
	// ListPeople returns the complete, stably-ordered enumeration of
	// people belonging to company.
	ListPeople(ctx context.Context, companyID string) ([]*talentModel.Person, error)

	// GetRole returns the role identified by roleID. Returns
	// talentModel.ErrRoleNotFound if unknown.
	GetRole(ctx context.Context, roleID string) (*talentModel.Role, error)

	// GetCompany returns the company identified by companyID. Returns
	// talentModel.ErrCompanyNotFound if unknown.
	GetCompany(ctx context.Context, companyID string) (*talentModel.Company, error)

	// ListRoles returns every role belonging to company, used by
	// cache_status.
	ListRoles(ctx context.Context, companyID string) ([]*talentModel.Role, error)

	// GetEnrichment returns the stored enrichment record for personID, or
	// nil if none exists yet.
	GetEnrichment(ctx context.Context, personID string) (*model.EnrichmentRecord, error)

	// PutEnrichment writes rec unconditionally, overwriting any prior
	// record for the same person, whatever its provider.
	PutEnrichment(ctx context.Context, rec *model.EnrichmentRecord) error
}
