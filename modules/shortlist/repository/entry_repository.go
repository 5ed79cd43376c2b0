// Package repository implements the Shortlist Cache's storage ports:
// ports.EntryStore against Postgres (one row per fingerprint, candidates
// serialised as JSON the way the talent repository serialises list
// columns) and ports.LeaseManager against Redis (SET NX + ownership
// token, so an abandoned holder is detectable and oustable).
package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentcurate/pipeline/modules/shortlist/model"
)

// pgxIface is the slice of *pgxpool.Pool's method set this repository
// uses; tests substitute pgxmock.PgxPoolIface.
type pgxIface interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// EntryRepository implements ports.EntryStore against Postgres.
type EntryRepository struct {
	pool pgxIface
}

// NewEntryRepository creates a Postgres-backed EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// newEntryRepositoryWithIface builds a repository over any pgxIface; used
// by tests to wire a pgxmock pool.
func newEntryRepositoryWithIface(pool pgxIface) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Get returns the stored entry for (companyID, roleID), or nil if none
// exists. Freshness is not evaluated here; that policy lives in the
// service layer.
func (r *EntryRepository) Get(ctx context.Context, companyID, roleID string) (*model.ShortlistCacheEntry, error) {
	query := `
		SELECT company_id, role_id, generated_at, expires_at,
		       candidates, total_searched, enriched_count, average_score,
		       status, degraded, warnings, decision_confidence, failure_reason
		FROM shortlist_cache_entries
		WHERE company_id = $1 AND role_id = $2
	`
	e := &model.ShortlistCacheEntry{}
	var candidatesJSON, warningsJSON []byte
	err := r.pool.QueryRow(ctx, query, companyID, roleID).Scan(
		&e.CompanyID, &e.RoleID, &e.GeneratedAt, &e.ExpiresAt,
		&candidatesJSON, &e.Summary.TotalSearched, &e.Summary.EnrichedCount, &e.Summary.AverageScore,
		&e.Status, &e.Degraded, &warningsJSON, &e.DecisionConfidence, &e.FailureReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errTransient(err)
	}
	if err := json.Unmarshal(candidatesJSON, &e.Candidates); err != nil {
		return nil, errTransient(err)
	}
	if err := json.Unmarshal(warningsJSON, &e.Warnings); err != nil {
		return nil, errTransient(err)
	}
	return e, nil
}

// Upsert writes entry atomically, replacing any prior row for the same
// fingerprint, so waiters observe either the old entry or the new one,
// never a blend.
func (r *EntryRepository) Upsert(ctx context.Context, entry *model.ShortlistCacheEntry) error {
	candidatesJSON, err := json.Marshal(entry.Candidates)
	if err != nil {
		return err
	}
	warningsJSON, err := json.Marshal(entry.Warnings)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO shortlist_cache_entries (
			company_id, role_id, generated_at, expires_at,
			candidates, total_searched, enriched_count, average_score,
			status, degraded, warnings, decision_confidence, failure_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (company_id, role_id) DO UPDATE
		SET generated_at = $3, expires_at = $4, candidates = $5,
		    total_searched = $6, enriched_count = $7, average_score = $8,
		    status = $9, degraded = $10, warnings = $11,
		    decision_confidence = $12, failure_reason = $13
	`
	_, err = r.pool.Exec(ctx, query,
		entry.CompanyID, entry.RoleID, entry.GeneratedAt, entry.ExpiresAt,
		candidatesJSON, entry.Summary.TotalSearched, entry.Summary.EnrichedCount, entry.Summary.AverageScore,
		entry.Status, entry.Degraded, warningsJSON, entry.DecisionConfidence, entry.FailureReason,
	)
	if err != nil {
		return errTransient(err)
	}
	return nil
}

// errTransient wraps a raw driver error as model.ErrTransient so callers
// can classify it without a type switch on pgx internals.
func errTransient(err error) error {
	return &wrappedError{kind: model.ErrTransient, cause: err}
}

type wrappedError struct {
	kind  error
	cause error
}

func (w *wrappedError) Error() string { return w.kind.Error() + ": " + w.cause.Error() }
func (w *wrappedError) Unwrap() error { return w.kind }
