package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
)

type cacheRepoStub struct {
	values  map[string]string
	getErr  error
	deleted int
}

func (r *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	v, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = v
	return nil
}

func (r *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	r.values[key] = value.(string)
	return nil
}

func (r *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	n := len(r.values)
	r.values = map[string]string{}
	r.deleted += n
	return n, nil
}

func TestCacheServiceHitMissAndMetrics(t *testing.T) {
	repo := &cacheRepoStub{values: map[string]string{}}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var got string
	hit, err := svc.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "k", "v", 0))
	hit, err = svc.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", got)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))

	require.NoError(t, svc.Invalidate(ctx, "*"))
	assert.Equal(t, 1, repo.deleted)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheInvalidated))
}

func TestCacheServiceErrorsAndDisabled(t *testing.T) {
	repo := &cacheRepoStub{values: map[string]string{}, getErr: errors.New("redis down")}
	svc := NewCacheService(repo, nil, 0, nil, true)

	var got string
	hit, err := svc.Get(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.False(t, hit)

	disabled := NewCacheService(repo, nil, 0, nil, false)
	assert.False(t, disabled.Enabled())
	hit, err = disabled.Get(context.Background(), "k", &got)
	assert.NoError(t, err)
	assert.False(t, hit)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}
