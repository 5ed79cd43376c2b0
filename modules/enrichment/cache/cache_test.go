package cache

import (
	"context"
	"testing"
	"time"

	"github.com/talentcurate/pipeline/modules/enrichment/model"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records map[string]*model.EnrichmentRecord
}

func (s *fakeStore) ListPeople(ctx context.Context, companyID string) ([]*talentModel.Person, error) {
	return nil, nil
}
func (s *fakeStore) GetRole(ctx context.Context, roleID string) (*talentModel.Role, error) {
	return nil, nil
}
func (s *fakeStore) GetCompany(ctx context.Context, companyID string) (*talentModel.Company, error) {
	return nil, nil
}
func (s *fakeStore) ListRoles(ctx context.Context, companyID string) ([]*talentModel.Role, error) {
	return nil, nil
}
func (s *fakeStore) GetEnrichment(ctx context.Context, personID string) (*model.EnrichmentRecord, error) {
	return s.records[personID], nil
}
func (s *fakeStore) PutEnrichment(ctx context.Context, rec *model.EnrichmentRecord) error {
	s.records[rec.PersonID] = rec
	return nil
}

func TestCache_Lookup_FreshVsStale(t *testing.T) {
	store := &fakeStore{records: map[string]*model.EnrichmentRecord{
		"fresh": {PersonID: "fresh", FetchedAt: time.Now()},
		"stale": {PersonID: "stale", FetchedAt: time.Now().Add(-60 * 24 * time.Hour)},
	}}
	c := New(store, DefaultTTL)

	rec, fresh, err := c.Lookup(context.Background(), "fresh")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.NotNil(t, rec)

	rec, fresh, err = c.Lookup(context.Background(), "stale")
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.NotNil(t, rec, "stale record is still returned so callers may accept it")

	rec, fresh, err = c.Lookup(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Nil(t, rec)
}
