package service

import (
	"context"
	"testing"
	"time"

	"github.com/talentcurate/pipeline/internal/platform/breaker"
	"github.com/talentcurate/pipeline/internal/platform/ratelimit"
	"github.com/talentcurate/pipeline/modules/research/model"
	"github.com/talentcurate/pipeline/modules/research/provider"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResearcher struct {
	calls      int
	highlights []model.Highlight
	delay      time.Duration
	err        error
}

func (f *fakeResearcher) Research(ctx context.Context, req provider.ResearchRequest) ([]model.Highlight, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.highlights, f.err
}

func TestService_Disabled_NoUpstreamCall(t *testing.T) {
	f := &fakeResearcher{highlights: []model.Highlight{{Type: model.HighlightGitHub}}}
	svc := New(f, ratelimit.NewLimiter(60), breaker.New("t", breaker.DefaultConfig()), time.Second, false, "")
	assert.False(t, svc.Enabled())

	out, err := svc.Research(context.Background(), &talentModel.Person{}, &talentModel.Role{})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 0, f.calls)
}

func TestService_EmptyAPIKey_Disabled(t *testing.T) {
	f := &fakeResearcher{}
	svc := New(f, ratelimit.NewLimiter(60), breaker.New("t2", breaker.DefaultConfig()), time.Second, true, "")
	assert.False(t, svc.Enabled())
}

func TestService_Timeout_ReturnsTypedError(t *testing.T) {
	f := &fakeResearcher{delay: 50 * time.Millisecond}
	svc := New(f, ratelimit.NewLimiter(60), breaker.New("t3", breaker.DefaultConfig()), 5*time.Millisecond, true, "key")

	out, err := svc.Research(context.Background(), &talentModel.Person{Name: "A"}, &talentModel.Role{Title: "Eng"})
	require.ErrorIs(t, err, provider.ErrTimeout)
	assert.Empty(t, out)
}

func TestService_Success(t *testing.T) {
	f := &fakeResearcher{highlights: []model.Highlight{{Type: model.HighlightGitHub, Description: "active OSS contributor"}}}
	svc := New(f, ratelimit.NewLimiter(60), breaker.New("t4", breaker.DefaultConfig()), time.Second, true, "key")

	out, err := svc.Research(context.Background(), &talentModel.Person{Name: "A"}, &talentModel.Role{Title: "Eng"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.HighlightGitHub, out[0].Type)
}
