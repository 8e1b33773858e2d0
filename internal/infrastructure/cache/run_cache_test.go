package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/repository"
)

// fakeRepo counts repository hits so tests can observe the read-through.
type fakeRepo struct {
	latestHits int
	runs       map[string]*analysis.Run
}

func (f *fakeRepo) Persist(ctx context.Context, run *analysis.Run, alerts []analysis.Alert, articles []event.Article) error {
	f.runs[run.Country] = run
	return nil
}

func (f *fakeRepo) Latest(ctx context.Context, country string) (*analysis.Run, error) {
	f.latestHits++
	run, ok := f.runs[country]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return run, nil
}

func (f *fakeRepo) LatestAll(ctx context.Context, countries []string) (map[string]*analysis.Run, error) {
	out := map[string]*analysis.Run{}
	for _, c := range countries {
		if run, ok := f.runs[c]; ok {
			out[c] = run
		}
	}
	return out, nil
}

func (f *fakeRepo) History(ctx context.Context, country string, limit int) ([]*analysis.Run, error) {
	return nil, nil
}

func (f *fakeRepo) AlertsForCountry(ctx context.Context, country string, limit int) ([]analysis.Alert, error) {
	return nil, nil
}

func (f *fakeRepo) ArticlesForRun(ctx context.Context, runID uuid.UUID) ([]event.Article, error) {
	return nil, nil
}

func setupCache(t *testing.T) (*RunCache, *fakeRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &fakeRepo{runs: map[string]*analysis.Run{}}
	return NewRunCacheWithClient(client, repo, time.Minute, zap.NewNop()), repo, mr
}

func TestRunCache_ReadThrough(t *testing.T) {
	c, repo, _ := setupCache(t)
	ctx := context.Background()
	repo.runs["Sudan"] = analysis.NewRun("Sudan", time.Now())

	first, err := c.Latest(ctx, "Sudan")
	require.NoError(t, err)
	second, err := c.Latest(ctx, "Sudan")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	// Second read is served from Redis.
	assert.Equal(t, 1, repo.latestHits)
}

func TestRunCache_NotFoundNotCached(t *testing.T) {
	c, _, _ := setupCache(t)

	_, err := c.Latest(context.Background(), "Atlantis")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRunCache_PersistInvalidates(t *testing.T) {
	c, repo, _ := setupCache(t)
	ctx := context.Background()

	older := analysis.NewRun("Mali", time.Now().Add(-time.Hour))
	repo.runs["Mali"] = older
	_, err := c.Latest(ctx, "Mali")
	require.NoError(t, err)

	newer := analysis.NewRun("Mali", time.Now())
	require.NoError(t, c.Persist(ctx, newer, nil, nil))

	got, err := c.Latest(ctx, "Mali")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
}

func TestRunCache_CorruptEntryRefetches(t *testing.T) {
	c, repo, mr := setupCache(t)
	ctx := context.Background()
	repo.runs["Chad"] = analysis.NewRun("Chad", time.Now())
	require.NoError(t, mr.Set("sentinel:latest:Chad", "{not json"))

	got, err := c.Latest(ctx, "Chad")

	require.NoError(t, err)
	assert.Equal(t, repo.runs["Chad"].ID, got.ID)
}

func TestRunCache_LatestAllRefreshesEntries(t *testing.T) {
	c, repo, _ := setupCache(t)
	ctx := context.Background()
	repo.runs["Sudan"] = analysis.NewRun("Sudan", time.Now())
	repo.runs["Mali"] = analysis.NewRun("Mali", time.Now())

	all, err := c.LatestAll(ctx, []string{"Sudan", "Mali", "Chad"})
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Per-country reads now hit Redis, not the repository.
	_, err = c.Latest(ctx, "Sudan")
	require.NoError(t, err)
	assert.Equal(t, 0, repo.latestHits)
}
