package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dens-health/casetrack-api/internal/models"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

type cacheRepoStub struct {
	entries map[string][]byte
	sets    int
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.entries == nil {
		s.entries = make(map[string][]byte)
	}
	s.entries[key] = raw
	s.sets++
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

type dashboardRepoStub struct {
	counts models.StatusCounts
	recent []models.Case
	labs   []string
	calls  int
}

func (s *dashboardRepoStub) CountsByStatus(ctx context.Context) (*models.StatusCounts, error) {
	s.calls++
	counts := s.counts
	return &counts, nil
}

func (s *dashboardRepoStub) Recent(ctx context.Context, limit int) ([]models.Case, error) {
	if limit < len(s.recent) {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func (s *dashboardRepoStub) DistinctLabNames(ctx context.Context) ([]string, error) {
	return s.labs, nil
}

func TestDashboardSummaryComposesAndCaches(t *testing.T) {
	repo := &dashboardRepoStub{
		counts: models.StatusCounts{Sent: 3, InLab: 2, Returned: 1, Completed: 5},
		recent: []models.Case{{ID: "case-1", CaseCode: "C-2026-00001"}},
		labs:   []string{"Apex", "Crown Works"},
	}
	cacheRepo := &cacheRepoStub{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, nil, DashboardServiceConfig{})

	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, summary.Counts.Sent)
	assert.Equal(t, 5, summary.Counts.Completed)
	assert.Len(t, summary.Recent, 1)
	assert.Equal(t, []string{"Apex", "Crown Works"}, summary.Labs)
	assert.Equal(t, 1, cacheRepo.sets)

	// Second read is served from cache without touching the repository.
	summary, cached, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 3, summary.Counts.Sent)
	assert.Equal(t, 1, repo.calls)
}

func TestDashboardSummaryRecomputesAfterInvalidation(t *testing.T) {
	repo := &dashboardRepoStub{counts: models.StatusCounts{Sent: 1}}
	cacheRepo := &cacheRepoStub{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, nil, DashboardServiceConfig{})

	_, _, err := svc.Summary(context.Background())
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(context.Background(), "dash:*"))

	_, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardSummaryWithoutCache(t *testing.T) {
	repo := &dashboardRepoStub{counts: models.StatusCounts{InLab: 4}}
	svc := NewDashboardService(repo, nil, nil, DashboardServiceConfig{RecentLimit: 5})

	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 4, summary.Counts.InLab)
}
