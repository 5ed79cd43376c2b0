// Package repository implements ports.Store against Postgres:
// parameterized queries, pgx.ErrNoRows mapped to a domain NotFound error.
package repository

import (
	"context"
	"encoding/json"
	"errors"

	enrichModel "github.com/talentcurate/pipeline/modules/enrichment/model"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxIface is the slice of *pgxpool.Pool's method set this repository
// uses. Depending on the interface rather than the concrete pool lets
// repository tests exercise the real query/scan logic against
// pgxmock.PgxPoolIface instead of duplicating it per test, while
// production code still wires the real pool.
type pgxIface interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Store implements ports.Store against Postgres.
type Store struct {
	pool pgxIface
}

// New creates a Postgres-backed Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// newWithIface builds a Store over any pgxIface implementation; used by
// tests to wire a pgxmock pool without a throwaway concrete type.
func newWithIface(pool pgxIface) *Store {
	return &Store{pool: pool}
}

// personRow mirrors the people table's JSON-encoded list columns.
type personRow struct {
	skillsJSON     []byte
	experienceJSON []byte
	educationJSON  []byte
	sourcesJSON    []byte
}

func scanPerson(row pgx.Row) (*talentModel.Person, error) {
	p := &talentModel.Person{}
	var r personRow
	err := row.Scan(
		&p.ID, &p.Name, &p.Title, &p.Company, &p.Location,
		&p.LinkedInURL, &p.GitHubURL,
		&r.skillsJSON, &r.experienceJSON, &r.educationJSON, &r.sourcesJSON,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(r.skillsJSON, &p.Skills); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(r.experienceJSON, &p.Experience); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(r.educationJSON, &p.Education); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(r.sourcesJSON, &p.Sources); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPeople returns every person belonging to companyID, ordered by
// stable id.
func (s *Store) ListPeople(ctx context.Context, companyID string) ([]*talentModel.Person, error) {
	query := `
		SELECT id, name, title, company, location, linkedin_url, github_url,
		       skills, experience, education, sources, created_at, updated_at
		FROM people
		WHERE company_id = $1
		ORDER BY id ASC
	`
	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, errTransient(err)
	}
	defer rows.Close()

	var people []*talentModel.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, errTransient(err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errTransient(err)
	}
	return people, nil
}

// GetRole returns the role identified by roleID.
func (s *Store) GetRole(ctx context.Context, roleID string) (*talentModel.Role, error) {
	query := `
		SELECT id, title, company_id, required_skills, preferred_skills,
		       min_years_experience, location_preference, description, status
		FROM roles
		WHERE id = $1
	`
	role := &talentModel.Role{}
	var requiredJSON, preferredJSON []byte
	err := s.pool.QueryRow(ctx, query, roleID).Scan(
		&role.ID, &role.Title, &role.Company,
		&requiredJSON, &preferredJSON,
		&role.MinYearsExperience, &role.LocationPreference,
		&role.Description, &role.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, talentModel.ErrRoleNotFound
		}
		return nil, errTransient(err)
	}
	if err := json.Unmarshal(requiredJSON, &role.RequiredSkills); err != nil {
		return nil, errTransient(err)
	}
	if err := json.Unmarshal(preferredJSON, &role.PreferredSkills); err != nil {
		return nil, errTransient(err)
	}
	return role, nil
}

// ListRoles returns every role belonging to companyID (used by
// cache_status).
func (s *Store) ListRoles(ctx context.Context, companyID string) ([]*talentModel.Role, error) {
	query := `
		SELECT id, title, company_id, required_skills, preferred_skills,
		       min_years_experience, location_preference, description, status
		FROM roles
		WHERE company_id = $1
		ORDER BY id ASC
	`
	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, errTransient(err)
	}
	defer rows.Close()

	var roles []*talentModel.Role
	for rows.Next() {
		role := &talentModel.Role{}
		var requiredJSON, preferredJSON []byte
		if err := rows.Scan(
			&role.ID, &role.Title, &role.Company,
			&requiredJSON, &preferredJSON,
			&role.MinYearsExperience, &role.LocationPreference,
			&role.Description, &role.Status,
		); err != nil {
			return nil, errTransient(err)
		}
		if err := json.Unmarshal(requiredJSON, &role.RequiredSkills); err != nil {
			return nil, errTransient(err)
		}
		if err := json.Unmarshal(preferredJSON, &role.PreferredSkills); err != nil {
			return nil, errTransient(err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, errTransient(err)
	}
	return roles, nil
}

// GetCompany returns the company identified by companyID.
func (s *Store) GetCompany(ctx context.Context, companyID string) (*talentModel.Company, error) {
	query := `
		SELECT id, name, stage, industry, tech_stack_skills,
		       ideal_candidate_traits, anti_patterns
		FROM companies
		WHERE id = $1
	`
	company := &talentModel.Company{}
	var skillsJSON []byte
	err := s.pool.QueryRow(ctx, query, companyID).Scan(
		&company.ID, &company.Name, &company.Stage, &company.Industry,
		&skillsJSON, &company.IdealCandidateTraits, &company.AntiPatterns,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, talentModel.ErrCompanyNotFound
		}
		return nil, errTransient(err)
	}
	if err := json.Unmarshal(skillsJSON, &company.TechStackSkills); err != nil {
		return nil, errTransient(err)
	}
	return company, nil
}

// GetEnrichment returns the stored enrichment record for personID, or nil
// if none exists yet.
func (s *Store) GetEnrichment(ctx context.Context, personID string) (*enrichModel.EnrichmentRecord, error) {
	query := `
		SELECT person_id, provider, fetched_at, payload, quality
		FROM enrichment_records
		WHERE person_id = $1
	`
	rec := &enrichModel.EnrichmentRecord{}
	var payloadJSON []byte
	err := s.pool.QueryRow(ctx, query, personID).Scan(
		&rec.PersonID, &rec.Provider, &rec.FetchedAt, &payloadJSON, &rec.Quality,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errTransient(err)
	}
	if err := json.Unmarshal(payloadJSON, &rec.Payload); err != nil {
		return nil, errTransient(err)
	}
	return rec, nil
}

// PutEnrichment writes rec unconditionally, overwriting any prior record
// for the same person.
func (s *Store) PutEnrichment(ctx context.Context, rec *enrichModel.EnrichmentRecord) error {
	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO enrichment_records (person_id, provider, fetched_at, payload, quality)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (person_id) DO UPDATE
		SET provider = $2, fetched_at = $3, payload = $4, quality = $5
	`
	_, err = s.pool.Exec(ctx, query, rec.PersonID, rec.Provider, rec.FetchedAt, payloadJSON, rec.Quality)
	if err != nil {
		return errTransient(err)
	}
	return nil
}

// errTransient wraps a raw driver error as talentModel.ErrTransient so
// callers can classify it as Transient without a type
// switch on pgx internals.
func errTransient(err error) error {
	return &wrappedError{kind: talentModel.ErrTransient, cause: err}
}

type wrappedError struct {
	kind  error
	cause error
}

func (w *wrappedError) Error() string { return w.kind.Error() + ": " + w.cause.Error() }
func (w *wrappedError) Unwrap() error { return w.kind }
